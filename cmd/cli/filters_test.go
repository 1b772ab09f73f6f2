package main

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/yurifrl/coa/pkg/ledger"
	"github.com/yurifrl/coa/pkg/models"
)

func entries() []ledger.Entry {
	day := func(d int) models.Timestamp {
		return models.NewTimestamp(time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC))
	}
	return ledger.RunningBalances(decimal.NewFromInt(100), []models.Transaction{
		{ID: 1, Date: day(1), Description: "Office rent", Type: models.Credit, Amount: decimal.NewFromInt(40)},
		{ID: 2, Date: day(10), Description: "Client payment", Type: models.Debit, Amount: decimal.NewFromInt(250)},
		{ID: 3, Date: day(20), Description: "Paper", Type: models.Credit, Amount: decimal.NewFromInt(5)},
	})
}

func ids(es []ledger.Entry) []models.TransactionID {
	out := make([]models.TransactionID, len(es))
	for i, e := range es {
		out[i] = e.Transaction.ID
	}
	return out
}

func TestFiltersKeepFoldedBalances(t *testing.T) {
	f := &filters{startDate: "2024/03/05"}
	got := applyFilter(entries(), f.toFilterFunc())

	assert.Equal(t, []models.TransactionID{2, 3}, ids(got))
	assert.True(t, got[0].Balance.Equal(decimal.NewFromInt(310)))
}

func TestFilters(t *testing.T) {
	tests := []struct {
		name string
		f    filters
		want []models.TransactionID
	}{
		{"none", filters{}, []models.TransactionID{1, 2, 3}},
		{"end", filters{endDate: "2024/03/10"}, []models.TransactionID{1, 2}},
		{"min", filters{minAmount: 10}, []models.TransactionID{1, 2}},
		{"max", filters{maxAmount: 40}, []models.TransactionID{1, 3}},
		{"description", filters{description: "RENT"}, []models.TransactionID{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(applyFilter(entries(), tt.f.toFilterFunc())))
		})
	}
}

func TestFiltersValidate(t *testing.T) {
	assert.NoError(t, (&filters{startDate: "2024/03/01"}).validate())
	assert.Error(t, (&filters{endDate: "03-01-2024"}).validate())
}
