package models

// Side is the debit or credit column. It doubles as an account's normal
// side and a transaction's type.
type Side string

const (
	Debit  Side = "DEBIT"
	Credit Side = "CREDIT"
)

func (s Side) Valid() bool {
	return s == Debit || s == Credit
}

// Category is the accounting category of an account. Values outside the
// declared set are kept as received.
type Category string

const (
	Asset     Category = "ASSET"
	Liability Category = "LIABILITY"
	Equity    Category = "EQUITY"
	Revenue   Category = "REVENUE"
	Expense   Category = "EXPENSE"
)

// StatementType is the financial statement an account reports on.
type StatementType string

const (
	BalanceSheet     StatementType = "Balance Sheet (BS)"
	IncomeStatement  StatementType = "Income Statement (IS)"
	RetainedEarnings StatementType = "Retained Earnings (RE)"
)
