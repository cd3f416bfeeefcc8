// Package report renders a user's expenses into an in-memory xlsx
// document. A generation either yields a file or a human-readable
// message (no data, bad range), never both.
package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"vytraty/internal/core"

	"github.com/shopspring/decimal"
)

const (
	// FileName is the attachment name used when sending the report.
	FileName = "expense_report.xlsx"

	// SheetName is the single sheet every report contains.
	SheetName = "Звіт витрат"

	// usdPlaceholder fills the USD cell of rows recorded while the
	// rate source was unavailable. Such rows are excluded from the
	// USD total rather than counted as zero.
	usdPlaceholder = "-"
)

// User-facing message variants.
const (
	MsgNoDataRange    = "Витрати за вказаний період не знайдено."
	MsgNoDataAll      = "У вас поки немає витрат."
	MsgInvalidDates   = "Невірний формат дат. Використовуйте формат dd.mm.YYYY."
	MsgUserNotFound   = "Користувача не знайдено."
	MsgGenerateFailed = "Не вдалося сформувати звіт. Спробуйте ще раз."
)

// File is a rendered spreadsheet ready for transmission.
type File struct {
	Name string
	Data []byte
}

// Result is the union of the two report outcomes.
type Result struct {
	Message string
	File    *File
}

func MessageResult(msg string) Result { return Result{Message: msg} }
func FileResult(f *File) Result       { return Result{File: f} }

func (r Result) IsFile() bool { return r.File != nil }

// Build renders the table: a header, one row per expense and two summary
// rows carrying the UAH and USD totals. Amounts are written as exact
// decimal strings.
func Build(expenses []core.Expense, uahTotal, usdTotal decimal.Decimal) (*File, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	header := []any{"ID", "Назва", "Дата", "Сума (грн)", "Сума (USD)"}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, e := range expenses {
		usd := usdPlaceholder
		if e.USD != nil {
			usd = e.USD.String()
		}
		row := []any{e.ID, e.Name, e.Date.Format(core.DateLayout), e.UAH.String(), usd}
		if err := f.SetSheetRow(SheetName, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	uahRow := []any{"", "Загальна сума витрат (грн)", "", uahTotal.String(), ""}
	usdRow := []any{"", "Загальна сума витрат (USD)", "", "", usdTotal.String()}
	base := len(expenses) + 2
	if err := f.SetSheetRow(SheetName, fmt.Sprintf("A%d", base), &uahRow); err != nil {
		return nil, fmt.Errorf("write uah total: %w", err)
	}
	if err := f.SetSheetRow(SheetName, fmt.Sprintf("A%d", base+1), &usdRow); err != nil {
		return nil, fmt.Errorf("write usd total: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return &File{Name: FileName, Data: buf.Bytes()}, nil
}
