package models

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// AccountNumber is the stable primary key of an account.
type AccountNumber int64

func (n AccountNumber) String() string {
	return strconv.FormatInt(int64(n), 10)
}

// ParseAccountNumber parses the decimal form used on the command line and in URLs.
func ParseAccountNumber(s string) (AccountNumber, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return AccountNumber(n), nil
}

// Account mirrors a chart-of-accounts row as served by the accounting
// service. Current balance and statement type are derived, never stored.
type Account struct {
	Number         AccountNumber   `json:"accountNumber"`
	Name           string          `json:"accountName"`
	Description    string          `json:"accountDescription"`
	NormalSide     Side            `json:"normalSide"`
	Category       Category        `json:"accountCategory"`
	SubCategory    string          `json:"accountSubCategory"`
	DebitBalance   decimal.Decimal `json:"debitBalance"`
	CreditBalance  decimal.Decimal `json:"creditBalance"`
	InitialBalance decimal.Decimal `json:"initialBalance"`
	DateAdded      Timestamp       `json:"dateAdded"`
	Username       string          `json:"username"`
}
