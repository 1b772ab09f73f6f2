package selection

import "github.com/yurifrl/coa/pkg/models"

// Tracker holds the account and transaction selections of one
// chart-of-accounts view. The transaction selection belongs to the ledger
// that is currently open and never outlives it.
type Tracker struct {
	Accounts     Set[models.AccountNumber]
	Transactions Set[models.TransactionID]
	open         *models.AccountNumber
}

// Open records the ledger being viewed. Switching to another account clears
// the transaction selection.
func (t *Tracker) Open(n models.AccountNumber) {
	if t.open != nil && *t.open == n {
		return
	}
	t.open = &n
	t.Transactions = Set[models.TransactionID]{}
}

// Close leaves the ledger view.
func (t *Tracker) Close() {
	t.open = nil
	t.Transactions = Set[models.TransactionID]{}
}

// OpenAccount returns the ledger being viewed, if any.
func (t *Tracker) OpenAccount() (models.AccountNumber, bool) {
	if t.open == nil {
		return 0, false
	}
	return *t.open, true
}

// Reset empties both selections and closes the ledger.
func (t *Tracker) Reset() {
	t.Accounts = Set[models.AccountNumber]{}
	t.Close()
}
