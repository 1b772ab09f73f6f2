package table

import (
	"cmp"
	"strings"

	"github.com/yurifrl/coa/pkg/ledger"
	"github.com/yurifrl/coa/pkg/models"
)

// Account columns.
const (
	AccountNumber      Key = "accountNumber"
	AccountName        Key = "accountName"
	AccountDescription Key = "accountDescription"
	NormalSide         Key = "normalSide"
	AccountCategory    Key = "accountCategory"
	AccountSubCategory Key = "accountSubCategory"
	CurrentBalance     Key = "currentBalance"
	DateAdded          Key = "dateAdded"
	StatementType      Key = "statementType"
	Username           Key = "username"
)

// Transaction columns.
const (
	TransactionID          Key = "transactionId"
	TransactionDate        Key = "transactionDate"
	TransactionDescription Key = "transactionDescription"
	TransactionType        Key = "transactionType"
	TransactionAmount      Key = "transactionAmount"
)

// Accounts sorts chart-of-accounts rows. Current balance and statement type
// are derived on every comparison, never read from a stored field.
var Accounts = NewSorter(map[Key]CompareFunc[models.Account]{
	AccountNumber: func(a, b models.Account) int { return cmp.Compare(a.Number, b.Number) },
	AccountName:   func(a, b models.Account) int { return strings.Compare(a.Name, b.Name) },
	AccountDescription: func(a, b models.Account) int {
		return strings.Compare(a.Description, b.Description)
	},
	NormalSide:      func(a, b models.Account) int { return cmp.Compare(a.NormalSide, b.NormalSide) },
	AccountCategory: func(a, b models.Account) int { return cmp.Compare(a.Category, b.Category) },
	AccountSubCategory: func(a, b models.Account) int {
		return strings.Compare(a.SubCategory, b.SubCategory)
	},
	CurrentBalance: func(a, b models.Account) int {
		return ledger.AccountBalance(a).Cmp(ledger.AccountBalance(b))
	},
	DateAdded: func(a, b models.Account) int { return a.DateAdded.Compare(b.DateAdded.Time) },
	StatementType: func(a, b models.Account) int {
		return cmp.Compare(ledger.Classify(a.Category), ledger.Classify(b.Category))
	},
	Username: func(a, b models.Account) int { return strings.Compare(a.Username, b.Username) },
})

// Transactions sorts ledger rows.
var Transactions = NewSorter(map[Key]CompareFunc[models.Transaction]{
	TransactionID:   func(a, b models.Transaction) int { return cmp.Compare(a.ID, b.ID) },
	TransactionDate: func(a, b models.Transaction) int { return a.Date.Compare(b.Date.Time) },
	TransactionDescription: func(a, b models.Transaction) int {
		return strings.Compare(a.Description, b.Description)
	},
	TransactionType:   func(a, b models.Transaction) int { return cmp.Compare(a.Type, b.Type) },
	TransactionAmount: func(a, b models.Transaction) int { return a.Amount.Cmp(b.Amount) },
})
