// Package export renders a bank's deposits and purchases as a statement.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"piggybank/internal/models"
	"piggybank/internal/money"
)

const (
	KindDeposit  = "deposit"
	KindPurchase = "purchase"

	SheetName = "Statement"
	dateOnly  = "2006-01-02"
)

var header = []string{"Date", "Type", "Name", "Description", "Amount", "Balance"}

// Line is one statement row. Amount is negative for purchases. Balance is
// only known for deposits, which snapshot it when they are recorded.
type Line struct {
	Date        time.Time
	Kind        string
	Name        string
	Description string
	Amount      decimal.Decimal
	Balance     *decimal.Decimal
}

type Statement struct {
	Bank        models.PiggyBank
	Lines       []Line
	GeneratedAt time.Time
}

// NewStatement merges deposits and purchased expenses, oldest first.
// Expenses that were never purchased do not move money and are left out.
func NewStatement(bank models.PiggyBank, deposits []models.Deposit, expenses []models.Expense, now time.Time) Statement {
	lines := make([]Line, 0, len(deposits)+len(expenses))
	for _, deposit := range deposits {
		balance := deposit.Balance
		lines = append(lines, Line{
			Date:        deposit.DateDeposited,
			Kind:        KindDeposit,
			Name:        deposit.Source,
			Description: deposit.Description,
			Amount:      deposit.AmountDeposited,
			Balance:     &balance,
		})
	}
	for _, expense := range expenses {
		if !expense.Purchased || expense.DatePurchased == nil {
			continue
		}
		lines = append(lines, Line{
			Date:        *expense.DatePurchased,
			Kind:        KindPurchase,
			Name:        expense.Name,
			Description: expense.Description,
			Amount:      expense.Price.Neg(),
		})
	}
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].Date.Before(lines[j].Date) })
	return Statement{Bank: bank, Lines: lines, GeneratedAt: now}
}

func (l Line) record() []string {
	balance := ""
	if l.Balance != nil {
		balance = money.Format(*l.Balance)
	}
	return []string{
		l.Date.UTC().Format(dateOnly),
		l.Kind,
		l.Name,
		l.Description,
		l.Amount.StringFixed(money.Scale),
		balance,
	}
}

// Filename is the attachment name for the statement in the given format.
func (s Statement) Filename(ext string) string {
	return fmt.Sprintf("statement_%s_%s.%s", s.Bank.ID, s.GeneratedAt.UTC().Format("20060102"), ext)
}

func WriteCSV(w io.Writer, statement Statement) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, line := range statement.Lines {
		if err := writer.Write(line.record()); err != nil {
			return err
		}
	}
	writer.Write([]string{"", "", "", "Current balance", money.Format(statement.Bank.CurrentBalance), ""})
	writer.Flush()
	return writer.Error()
}

func WriteXLSX(w io.Writer, statement Statement) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return err
	}

	if err := setRow(f, 1, header); err != nil {
		return err
	}
	for idx, line := range statement.Lines {
		if err := setRow(f, idx+2, line.record()); err != nil {
			return err
		}
	}
	summary := []string{"", "", "", "Current balance", money.Format(statement.Bank.CurrentBalance), ""}
	if err := setRow(f, len(statement.Lines)+2, summary); err != nil {
		return err
	}

	f.SetColWidth(SheetName, "A", "A", 12)
	f.SetColWidth(SheetName, "B", "B", 10)
	f.SetColWidth(SheetName, "C", "D", 30)
	f.SetColWidth(SheetName, "E", "F", 12)

	_, err := f.WriteTo(w)
	return err
}

func setRow(f *excelize.File, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	record := make([]any, len(values))
	for i, v := range values {
		record[i] = v
	}
	return f.SetSheetRow(SheetName, cell, &record)
}
