package service

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ReceiptContentType xlsx MIME
const ReceiptContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const receiptSheet = "Receipt"

// Receipt 收据文件
type Receipt struct {
	FileName string
	Content  []byte
}

// ReceiptLine 收据明细行
type ReceiptLine struct {
	Description string
	Amount      decimal.Decimal
}

// ReceiptLines 基础费用 = 实收金额 - 关联额外费用合计（不低于 0）
func ReceiptLines(payment *domain.Payment, charges []*domain.ExtraCharge) []ReceiptLine {
	extra := decimal.Zero
	for _, c := range charges {
		extra = extra.Add(c.Amount)
	}
	base := payment.Amount.Sub(extra)
	if base.IsNegative() {
		base = decimal.Zero
	}

	lines := []ReceiptLine{{Description: "Monthly charges - " + payment.MonthYear, Amount: base}}
	for _, c := range charges {
		lines = append(lines, ReceiptLine{
			Description: fmt.Sprintf("%s (%s)", c.Description, c.ChargeDate.Format(domain.DateLayout)),
			Amount:      c.Amount,
		})
	}
	return lines
}

// BuildReceipt 生成收据工作簿
func BuildReceipt(payment *domain.Payment, resident *domain.Resident, charges []*domain.ExtraCharge) (*Receipt, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(receiptSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create style: %w", err)
	}
	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	rows := [][]any{
		{"Payment Receipt"},
		{},
		{"Receipt No.", payment.ID},
		{"Resident", resident.FullName},
		{"Period", payment.MonthYear},
		{"Payment Date", payment.PaymentDate.Format(domain.DateLayout)},
		{"Payment Method", payment.PaymentMethod},
		{},
		{"Description", "Amount"},
	}
	lines := ReceiptLines(payment, charges)
	for _, l := range lines {
		rows = append(rows, []any{l.Description, l.Amount.InexactFloat64()})
	}
	rows = append(rows, []any{"Total", payment.Amount.InexactFloat64()})
	if payment.Notes != "" {
		rows = append(rows, []any{}, []any{"Notes", payment.Notes})
	}

	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(receiptSheet, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	// 标题、明细表头、合计加粗；金额列数字格式
	headerRow := 9
	firstLine := headerRow + 1
	totalRow := firstLine + len(lines)
	for _, r := range []int{1, headerRow, totalRow} {
		if err := f.SetCellStyle(receiptSheet, fmt.Sprintf("A%d", r), fmt.Sprintf("B%d", r), boldStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set style: %w", err)
		}
	}
	if err := f.SetCellStyle(receiptSheet, fmt.Sprintf("B%d", firstLine), fmt.Sprintf("B%d", totalRow), amountStyle); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set style: %w", err)
	}
	if err := f.SetColWidth(receiptSheet, "A", "A", 40); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}
	if err := f.SetColWidth(receiptSheet, "B", "B", 20); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}

	return &Receipt{
		FileName: receiptFileName(resident.FullName, payment),
		Content:  buf.Bytes(),
	}, nil
}

func receiptFileName(name string, payment *domain.Payment) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)
	return fmt.Sprintf("receipt_%s_%s.xlsx", slug, payment.PaymentDate.Format("2006_01"))
}
