package executors

// The preview is pure: it reads a plan against already-fetched accounts and
// ledgers and says what applying it would do. The stateful parts (fetching,
// submitting through the batch controller) stay on *Executor.

import (
	"github.com/yurifrl/coa/pkg/ledger"
	"github.com/yurifrl/coa/pkg/models"
	"github.com/yurifrl/coa/pkg/plan"
)

// Status is what applying a plan line would do.
//
//   - Ready:    the line would be submitted.
//   - Missing:  the account or transaction is not listed by the service.
//   - Standing: the account has a non-zero balance and cannot be deactivated.
type Status int

const (
	Ready Status = iota
	Missing
	Standing
)

func (s Status) String() string {
	switch s {
	case Missing:
		return "missing"
	case Standing:
		return "standing-balance"
	default:
		return "ready"
	}
}

// Item is one line of a preview. Transaction is nil for deactivation lines.
type Item struct {
	Account     models.AccountNumber
	Transaction *models.Transaction
	Record      models.Account
	Status      Status
}

// Preview is the result of BuildPreview.
type Preview struct {
	Deletions     []Item
	Deactivations []Item
}

// BuildPreview checks every plan line against the service's accounts and the
// ledgers of the accounts the plan touches.
func BuildPreview(p *plan.Plan, accounts []models.Account, ledgers map[models.AccountNumber][]models.Transaction) *Preview {
	byNumber := make(map[models.AccountNumber]models.Account, len(accounts))
	for _, a := range accounts {
		byNumber[a.Number] = a
	}

	out := &Preview{}
	for _, b := range p.DeleteTransactions {
		txs := make(map[models.TransactionID]models.Transaction, len(ledgers[b.Account]))
		for _, tx := range ledgers[b.Account] {
			txs[tx.ID] = tx
		}
		for _, id := range b.Transactions {
			item := Item{Account: b.Account, Transaction: &models.Transaction{ID: id, AccountNumber: b.Account}, Status: Missing}
			if tx, ok := txs[id]; ok {
				item.Transaction = &tx
				item.Status = Ready
			}
			out.Deletions = append(out.Deletions, item)
		}
	}

	for _, n := range p.Deactivate {
		item := Item{Account: n, Status: Missing}
		if a, ok := byNumber[n]; ok {
			item.Record = a
			item.Status = Ready
			if !ledger.AccountBalance(a).IsZero() {
				item.Status = Standing
			}
		}
		out.Deactivations = append(out.Deactivations, item)
	}
	return out
}

// Blocked counts lines that would stop Apply.
func (p *Preview) Blocked() int {
	n := 0
	for _, items := range [][]Item{p.Deletions, p.Deactivations} {
		for _, it := range items {
			if it.Status != Ready {
				n++
			}
		}
	}
	return n
}

// ReadyCount counts lines that would be submitted.
func (p *Preview) ReadyCount() int {
	return len(p.Deletions) + len(p.Deactivations) - p.Blocked()
}
