package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/domain"
	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func newTestBillingService(store *repository.MemoryStore) BillingService {
	return NewBillingService(store, store, store, store, zap.NewNop())
}

func seedBilling(t *testing.T) (*repository.MemoryStore, *domain.Resident) {
	t.Helper()
	store := repository.NewMemoryStore()
	r := store.AddResident(&domain.Resident{FullName: "Asha Rao"})
	room := store.AddRoom(&domain.Room{RoomNumber: "101", RoomType: "double", Capacity: 2, MonthlyRate: decimal.RequireFromString("15000.00")})
	store.AssignRoom(r.ID, room.ID, day("2024-01-01"))
	return store, r
}

func TestBillingDraft(t *testing.T) {
	ctx := context.Background()
	store, r := seedBilling(t)
	svc := newTestBillingService(store)

	_, err := svc.AddExtraCharge(ctx, AddExtraChargeRequest{ResidentID: r.ID, Description: "Physiotherapy", Amount: decimal.RequireFromString("1200.50"), ChargeDate: day("2025-03-02")})
	require.NoError(t, err)
	_, err = svc.AddExtraCharge(ctx, AddExtraChargeRequest{ResidentID: r.ID, Description: "Medicines", Amount: decimal.RequireFromString("349.50"), ChargeDate: day("2025-03-05")})
	require.NoError(t, err)

	draft, err := svc.Draft(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "101", draft.RoomNumber)
	assert.True(t, draft.BaseAmount.Equal(decimal.NewFromInt(15000)))
	assert.True(t, draft.ExtraTotal.Equal(decimal.NewFromInt(1550)))
	assert.True(t, draft.Total.Equal(decimal.NewFromInt(16550)))
	assert.Len(t, draft.ExtraCharges, 2)
}

func TestBillingDraftWithoutRoom(t *testing.T) {
	store := repository.NewMemoryStore()
	r := store.AddResident(&domain.Resident{FullName: "Walk In"})
	svc := newTestBillingService(store)

	draft, err := svc.Draft(context.Background(), r.ID)
	require.NoError(t, err)
	assert.True(t, draft.Total.IsZero())
	assert.Empty(t, draft.RoomNumber)

	_, err = svc.Draft(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRecordPaymentDefaultsAndLinksCharges(t *testing.T) {
	ctx := context.Background()
	store, r := seedBilling(t)
	svc := newTestBillingService(store)

	_, err := svc.AddExtraCharge(ctx, AddExtraChargeRequest{ResidentID: r.ID, Description: "Laundry", Amount: decimal.NewFromInt(500), ChargeDate: day("2025-03-02")})
	require.NoError(t, err)

	p, err := svc.RecordPayment(ctx, RecordPaymentRequest{ResidentID: r.ID, PaymentDate: day("2025-03-10"), PaymentMethod: "upi"})
	require.NoError(t, err)
	assert.True(t, p.Amount.Equal(decimal.NewFromInt(15500)))
	assert.Equal(t, "March 2025", p.MonthYear)

	unbilled, err := svc.ListExtraCharges(ctx, r.ID, true)
	require.NoError(t, err)
	assert.Empty(t, unbilled)

	linked, err := store.ListChargesForPayment(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, linked, 1)
	assert.Equal(t, "Laundry", linked[0].Description)

	// 首次缴费决定缴费提醒日
	first, err := store.EarliestPaymentDates(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10", first[r.ID].Format(domain.DateLayout))
}

func TestRecordPaymentExplicitAmountLinksOnlyListedCharges(t *testing.T) {
	ctx := context.Background()
	store, r := seedBilling(t)
	svc := newTestBillingService(store)

	laundry, err := svc.AddExtraCharge(ctx, AddExtraChargeRequest{ResidentID: r.ID, Description: "Laundry", Amount: decimal.NewFromInt(500), ChargeDate: day("2025-03-02")})
	require.NoError(t, err)
	_, err = svc.AddExtraCharge(ctx, AddExtraChargeRequest{ResidentID: r.ID, Description: "Medicines", Amount: decimal.NewFromInt(800), ChargeDate: day("2025-03-05")})
	require.NoError(t, err)

	// 只付房费：两笔额外费用都保持未结
	rentOnly, err := svc.RecordPayment(ctx, RecordPaymentRequest{ResidentID: r.ID, PaymentDate: day("2025-03-10"), Amount: decimal.NewFromInt(15000)})
	require.NoError(t, err)
	linked, err := store.ListChargesForPayment(ctx, rentOnly.ID)
	require.NoError(t, err)
	assert.Empty(t, linked)
	unbilled, err := svc.ListExtraCharges(ctx, r.ID, true)
	require.NoError(t, err)
	assert.Len(t, unbilled, 2)

	// 明确列出的费用才会关联
	partial, err := svc.RecordPayment(ctx, RecordPaymentRequest{ResidentID: r.ID, PaymentDate: day("2025-03-12"), Amount: decimal.NewFromInt(500), ChargeIDs: []string{laundry.ID}})
	require.NoError(t, err)
	linked, err = store.ListChargesForPayment(ctx, partial.ID)
	require.NoError(t, err)
	require.Len(t, linked, 1)
	assert.Equal(t, "Laundry", linked[0].Description)
	unbilled, err = svc.ListExtraCharges(ctx, r.ID, true)
	require.NoError(t, err)
	require.Len(t, unbilled, 1)
	assert.Equal(t, "Medicines", unbilled[0].Description)
}

func TestRecordPaymentRejectsBilledCharge(t *testing.T) {
	ctx := context.Background()
	store, r := seedBilling(t)
	svc := newTestBillingService(store)

	c, err := svc.AddExtraCharge(ctx, AddExtraChargeRequest{ResidentID: r.ID, Description: "Laundry", Amount: decimal.NewFromInt(500)})
	require.NoError(t, err)
	_, err = svc.RecordPayment(ctx, RecordPaymentRequest{ResidentID: r.ID, PaymentDate: day("2025-03-10")})
	require.NoError(t, err)

	_, err = svc.RecordPayment(ctx, RecordPaymentRequest{ResidentID: r.ID, PaymentDate: day("2025-04-10"), ChargeIDs: []string{c.ID}})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAddExtraChargeValidation(t *testing.T) {
	ctx := context.Background()
	store, r := seedBilling(t)
	svc := newTestBillingService(store)

	_, err := svc.AddExtraCharge(ctx, AddExtraChargeRequest{ResidentID: r.ID, Amount: decimal.NewFromInt(10)})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.AddExtraCharge(ctx, AddExtraChargeRequest{ResidentID: r.ID, Description: "x", Amount: decimal.Zero})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.AddExtraCharge(ctx, AddExtraChargeRequest{ResidentID: "missing", Description: "x", Amount: decimal.NewFromInt(10)})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestListRoomsOccupancy(t *testing.T) {
	store, _ := seedBilling(t)
	svc := newTestBillingService(store)

	rooms, err := svc.ListRooms(context.Background())
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, 1, rooms[0].Occupancy)
	assert.Equal(t, 1, rooms[0].Available())
}

func TestReceiptWorkbook(t *testing.T) {
	ctx := context.Background()
	store, r := seedBilling(t)
	svc := newTestBillingService(store)

	_, err := svc.AddExtraCharge(ctx, AddExtraChargeRequest{ResidentID: r.ID, Description: "Laundry", Amount: decimal.NewFromInt(500), ChargeDate: day("2025-03-02")})
	require.NoError(t, err)
	p, err := svc.RecordPayment(ctx, RecordPaymentRequest{ResidentID: r.ID, PaymentDate: day("2025-03-10"), PaymentMethod: "cash"})
	require.NoError(t, err)

	receipt, err := svc.Receipt(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "receipt_Asha_Rao_2025_03.xlsx", receipt.FileName)

	f, err := excelize.OpenReader(bytes.NewReader(receipt.Content))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(receiptSheet)
	require.NoError(t, err)
	assert.Equal(t, "Payment Receipt", rows[0][0])
	assert.Equal(t, []string{"Resident", "Asha Rao"}, rows[3])
	assert.Equal(t, []string{"Period", "March 2025"}, rows[4])
	assert.Equal(t, "Monthly charges - March 2025", rows[9][0])
	assert.Equal(t, "Laundry (2025-03-02)", rows[10][0])
	assert.Equal(t, "Total", rows[11][0])

	_, err = svc.Receipt(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestReceiptLinesNeverNegative(t *testing.T) {
	p := &domain.Payment{Amount: decimal.NewFromInt(100), MonthYear: "March 2025"}
	lines := ReceiptLines(p, []*domain.ExtraCharge{{Description: "x", Amount: decimal.NewFromInt(300)}})
	require.Len(t, lines, 2)
	assert.True(t, lines[0].Amount.IsZero())
}
