// Package remotetest provides an in-memory remote.Service for tests.
package remotetest

import (
	"context"
	"slices"
	"sync"

	"github.com/yurifrl/coa/pkg/models"
	"github.com/yurifrl/coa/pkg/remote"
)

// Fake serves accounts and transactions from memory and applies successful
// mutations to them, the way the real service would.
type Fake struct {
	mu           sync.Mutex
	accounts     []models.Account
	transactions map[models.AccountNumber][]models.Transaction

	// Err, when set, is returned by the next mutating call instead of applying it.
	Err error
	// Message is returned by successful mutating calls.
	Message string
	// KeepDeleted makes successful deletes leave the rows in place.
	KeepDeleted bool
	// Block, when set, is waited on inside mutating calls before they complete.
	Block chan struct{}

	Calls         []string
	DeleteTokens  []string
	DeletedBatch  [][]models.TransactionID
	DeactivateIDs [][]models.AccountNumber
}

func New(accounts []models.Account, txs map[models.AccountNumber][]models.Transaction) *Fake {
	if txs == nil {
		txs = map[models.AccountNumber][]models.Transaction{}
	}
	return &Fake{accounts: slices.Clone(accounts), transactions: txs, Message: "ok"}
}

var _ remote.Service = (*Fake)(nil)

func (f *Fake) Accounts(ctx context.Context) ([]models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "accounts")
	return slices.Clone(f.accounts), nil
}

func (f *Fake) Transactions(ctx context.Context, n models.AccountNumber) ([]models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "transactions:"+n.String())
	return slices.Clone(f.transactions[n]), nil
}

func (f *Fake) DeleteTransactions(ctx context.Context, token string, txs []models.Transaction) (string, error) {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "delete-transactions")
	f.DeleteTokens = append(f.DeleteTokens, token)

	ids := make([]models.TransactionID, len(txs))
	for i, tx := range txs {
		ids[i] = tx.ID
	}
	f.DeletedBatch = append(f.DeletedBatch, ids)

	if f.Err != nil {
		return "", f.Err
	}
	if !f.KeepDeleted {
		for n, list := range f.transactions {
			f.transactions[n] = slices.DeleteFunc(slices.Clone(list), func(tx models.Transaction) bool {
				return slices.Contains(ids, tx.ID)
			})
		}
	}
	return f.Message, nil
}

func (f *Fake) DeactivateAccounts(ctx context.Context, token string, accounts []models.Account) (string, error) {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "deactivate-accounts")

	ids := make([]models.AccountNumber, len(accounts))
	for i, a := range accounts {
		ids[i] = a.Number
	}
	f.DeactivateIDs = append(f.DeactivateIDs, ids)

	if f.Err != nil {
		return "", f.Err
	}
	f.accounts = slices.DeleteFunc(f.accounts, func(a models.Account) bool {
		return slices.Contains(ids, a.Number)
	})
	return f.Message, nil
}

// Mutations counts the mutating calls received so far.
func (f *Fake) Mutations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.DeletedBatch) + len(f.DeactivateIDs)
}

// CallLog returns a copy of every call made so far.
func (f *Fake) CallLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.Calls)
}

func (f *Fake) wait() {
	if f.Block != nil {
		<-f.Block
	}
}
