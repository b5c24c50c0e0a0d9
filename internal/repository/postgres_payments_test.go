package repository

import (
	"context"
	"testing"
	"time"

	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEarliestPaymentDates(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresPaymentsRepository(db)

	mock.ExpectQuery(`SELECT resident_id::text, MIN\(payment_date\)`).
		WillReturnRows(sqlmock.NewRows([]string{"resident_id", "min"}).
			AddRow("res-1", date("2024-01-31")).
			AddRow("res-2", date("2024-03-05")))

	got, err := repo.EarliestPaymentDates(context.Background())

	require.NoError(t, err)
	assert.Equal(t, date("2024-01-31"), got["res-1"])
	assert.Equal(t, date("2024-03-05"), got["res-2"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePayment_LinksCharges(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresPaymentsRepository(db)

	p := &domain.Payment{
		ResidentID:  "res-1",
		PaymentDate: date("2025-04-30"),
		Amount:      decimal.RequireFromString("15250.00"),
		MonthYear:   "April 2025",
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO payments`).
		WithArgs(sqlmock.AnyArg(), "res-1", "2025-04-30", sqlmock.AnyArg(), "April 2025", "", "").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectExec(`UPDATE resident_extra_charges`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "res-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := repo.CreatePayment(context.Background(), p, []string{"c-1", "c-2"})

	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePayment_ChargeAlreadyBilledRollsBack(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresPaymentsRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO payments`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectExec(`UPDATE resident_extra_charges`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	err := repo.CreatePayment(context.Background(), &domain.Payment{
		ResidentID:  "res-1",
		PaymentDate: date("2025-04-30"),
		Amount:      decimal.NewFromInt(100),
	}, []string{"c-1", "c-2"})

	assert.ErrorIs(t, err, ErrChargeUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListExtraCharges_Unbilled(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresPaymentsRepository(db)

	mock.ExpectQuery(`FROM resident_extra_charges\s+WHERE resident_id = \$1 AND payment_id IS NULL`).
		WithArgs("res-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "resident_id", "description", "amount", "charge_date", "payment_id", "created_at"}).
			AddRow("c-1", "res-1", "Physiotherapy", "750.50", date("2025-04-02"), nil, time.Now()))

	charges, err := repo.ListExtraCharges(context.Background(), "res-1", true)

	require.NoError(t, err)
	require.Len(t, charges, 1)
	assert.True(t, decimal.RequireFromString("750.50").Equal(charges[0].Amount))
	assert.False(t, charges[0].Billed())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetActiveRoomForResident_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresRoomsRepository(db)

	mock.ExpectQuery(`FROM room_assignments`).
		WithArgs("res-9").
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_number", "room_type", "capacity", "monthly_rate"}))

	_, err := repo.GetActiveRoomForResident(context.Background(), "res-9")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListActiveResidents_NullableDOB(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresResidentsRepository(db)

	mock.ExpectQuery(`FROM residents\s+WHERE status = 'active'`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "date_of_birth", "status", "created_at"}).
			AddRow("res-1", "Asha Rao", date("1940-03-10"), "active", time.Now()).
			AddRow("res-2", "Ravi Menon", nil, "active", time.Now()))

	residents, err := repo.ListActiveResidents(context.Background())

	require.NoError(t, err)
	require.Len(t, residents, 2)
	require.NotNil(t, residents[0].DateOfBirth)
	assert.Equal(t, date("1940-03-10"), *residents[0].DateOfBirth)
	assert.Nil(t, residents[1].DateOfBirth)
	assert.NoError(t, mock.ExpectationsWereMet())
}
