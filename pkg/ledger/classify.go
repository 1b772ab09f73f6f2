// Package ledger holds the pure accounting rules of the chart of accounts:
// statement classification, current balances and running balances.
package ledger

import "github.com/yurifrl/coa/pkg/models"

// Classify maps an account category to the statement it reports on.
// Unknown categories land in retained earnings.
func Classify(category models.Category) models.StatementType {
	switch category {
	case models.Asset, models.Liability, models.Equity:
		return models.BalanceSheet
	case models.Revenue, models.Expense:
		return models.IncomeStatement
	default:
		return models.RetainedEarnings
	}
}
