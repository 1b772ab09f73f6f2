package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/yurifrl/coa/pkg/models"
)

// AccountBalance applies the normal-side sign rule to the service totals.
func AccountBalance(a models.Account) decimal.Decimal {
	if a.NormalSide == models.Debit {
		return a.DebitBalance.Sub(a.CreditBalance)
	}
	return a.CreditBalance.Sub(a.DebitBalance)
}

// Entry is a transaction together with the account balance after it.
type Entry struct {
	Transaction models.Transaction
	Balance     decimal.Decimal
}

// RunningBalances folds the transactions left to right starting at initial.
// Debits add and credits subtract regardless of the account's normal side,
// as in a T-account ledger. Callers pass the full sequence every time.
func RunningBalances(initial decimal.Decimal, txs []models.Transaction) []Entry {
	entries := make([]Entry, 0, len(txs))
	balance := initial
	for _, tx := range txs {
		if tx.Type == models.Debit {
			balance = balance.Add(tx.Amount)
		} else {
			balance = balance.Sub(tx.Amount)
		}
		entries = append(entries, Entry{Transaction: tx, Balance: balance})
	}
	return entries
}

// AccountRow is an account with its derived display columns.
type AccountRow struct {
	Account        models.Account
	CurrentBalance decimal.Decimal
	StatementType  models.StatementType
}

// Rows derives the display columns for each account, keeping order.
func Rows(accounts []models.Account) []AccountRow {
	rows := make([]AccountRow, len(accounts))
	for i, a := range accounts {
		rows[i] = AccountRow{
			Account:        a,
			CurrentBalance: AccountBalance(a),
			StatementType:  Classify(a.Category),
		}
	}
	return rows
}
