package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TransactionID identifies a single ledger line on the remote service.
type TransactionID int64

// Transaction is one debit or credit posted to an account. The amount is
// always positive; the effect on the balance comes from Type.
type Transaction struct {
	ID            TransactionID   `json:"transactionId"`
	AccountNumber AccountNumber   `json:"accountNumber"`
	Date          Timestamp       `json:"transactionDate"`
	Description   string          `json:"transactionDescription"`
	Type          Side            `json:"transactionType"`
	Amount        decimal.Decimal `json:"transactionAmount"`
}

// Validate reports records the service should never have produced.
func (t Transaction) Validate() error {
	if !t.Amount.IsPositive() {
		return fmt.Errorf("transaction %d: amount must be positive, got %s", t.ID, t.Amount)
	}
	if !t.Type.Valid() {
		return fmt.Errorf("transaction %d: unknown transaction type %q", t.ID, t.Type)
	}
	return nil
}

// Debit returns the amount when the transaction sits in the debit column.
func (t Transaction) Debit() (decimal.Decimal, bool) {
	if t.Type == Debit {
		return t.Amount, true
	}
	return decimal.Zero, false
}

// Credit returns the amount when the transaction sits in the credit column.
func (t Transaction) Credit() (decimal.Decimal, bool) {
	if t.Type == Credit {
		return t.Amount, true
	}
	return decimal.Zero, false
}
