package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yurifrl/coa/pkg/csv"
	"github.com/yurifrl/coa/pkg/ledger"
	"github.com/yurifrl/coa/pkg/models"
)

type filters struct {
	startDate   string
	endDate     string
	minAmount   float64
	maxAmount   float64
	description string
}

func (f *filters) validate() error {
	for _, d := range []string{f.startDate, f.endDate} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(models.DisplayDate, d); err != nil {
			return fmt.Errorf("invalid date %q, want YYYY/MM/DD", d)
		}
	}
	return nil
}

// toFilterFunc filters ledger entries for display. Balances were folded over
// the whole ledger before filtering, so hidden rows still count.
func (f *filters) toFilterFunc() csv.FilterFunc[ledger.Entry] {
	return func(e ledger.Entry) bool {
		t := e.Transaction
		date := t.Date.Display()
		if f.startDate != "" && date < f.startDate {
			return false
		}
		if f.endDate != "" && date > f.endDate {
			return false
		}
		if f.minAmount != 0 && t.Amount.LessThan(decimal.NewFromFloat(f.minAmount)) {
			return false
		}
		if f.maxAmount != 0 && t.Amount.GreaterThan(decimal.NewFromFloat(f.maxAmount)) {
			return false
		}
		if f.description != "" && !strings.Contains(strings.ToLower(t.Description), strings.ToLower(f.description)) {
			return false
		}
		return true
	}
}

func applyFilter(entries []ledger.Entry, keep csv.FilterFunc[ledger.Entry]) []ledger.Entry {
	out := make([]ledger.Entry, 0, len(entries))
	for _, e := range entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
