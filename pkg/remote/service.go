// Package remote talks to the accounting service that owns accounts and
// transactions. Nothing here keeps state between calls.
package remote

import (
	"context"

	"github.com/yurifrl/coa/pkg/models"
)

// Service is the contract the ledger engine needs from the accounting service.
// Mutating calls take the anti-forgery token explicitly and return the
// service's confirmation message, which may be empty.
type Service interface {
	Accounts(ctx context.Context) ([]models.Account, error)
	Transactions(ctx context.Context, account models.AccountNumber) ([]models.Transaction, error)
	DeleteTransactions(ctx context.Context, token string, txs []models.Transaction) (string, error)
	DeactivateAccounts(ctx context.Context, token string, accounts []models.Account) (string, error)
}
