package csv

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/yurifrl/coa/pkg/ledger"
)

type FilterFunc[T any] func(T) bool

// Create renders records as CSV, skipping those filter rejects.
func Create[T any](header []string, records []T, row func(T) []string, filter FilterFunc[T]) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		if filter == nil || filter(r) {
			if err := w.Write(row(r)); err != nil {
				return nil, fmt.Errorf("write row: %w", err)
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var accountHeader = []string{
	"Account Number", "Account Name", "Description", "Normal Side", "Category",
	"Subcategory", "Balance", "Date Added", "Statement", "Username",
}

// Accounts renders the chart of accounts in display order.
func Accounts(rows []ledger.AccountRow, filter FilterFunc[ledger.AccountRow]) ([]byte, error) {
	return Create(accountHeader, rows, func(r ledger.AccountRow) []string {
		a := r.Account
		return []string{
			a.Number.String(),
			a.Name,
			a.Description,
			string(a.NormalSide),
			string(a.Category),
			a.SubCategory,
			r.CurrentBalance.StringFixed(2),
			a.DateAdded.Display(),
			string(r.StatementType),
			a.Username,
		}
	}, filter)
}

var ledgerHeader = []string{"Date", "Description", "Debit", "Credit", "Balance"}

// Ledger renders running-balance entries. Filtering happens after the
// balances were folded, so every row keeps its true balance.
func Ledger(entries []ledger.Entry, filter FilterFunc[ledger.Entry]) ([]byte, error) {
	return Create(ledgerHeader, entries, func(e ledger.Entry) []string {
		tx := e.Transaction
		debit, _ := tx.Debit()
		credit, _ := tx.Credit()
		return []string{
			tx.Date.Display(),
			tx.Description,
			amount(debit),
			amount(credit),
			e.Balance.StringFixed(2),
		}
	}, filter)
}

func amount(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return d.StringFixed(2)
}
