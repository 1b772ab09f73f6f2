package plan

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yurifrl/coa/pkg/models"
)

// LedgerBatch lists transactions to delete from one account's ledger.
type LedgerBatch struct {
	Account      models.AccountNumber   `yaml:"account"`
	Transactions []models.TransactionID `yaml:"transactions"`
}

// Plan is a batch file: accounts to deactivate and transactions to delete.
//
//	delete_transactions:
//	  - account: 1010
//	    transactions: [41, 42]
//	deactivate: [3030, 3040]
type Plan struct {
	DeleteTransactions []LedgerBatch          `yaml:"delete_transactions"`
	Deactivate         []models.AccountNumber `yaml:"deactivate"`
}

func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate rejects empty plans, empty ledger batches and repeated entries.
func (p *Plan) Validate() error {
	if len(p.Deactivate) == 0 && len(p.DeleteTransactions) == 0 {
		return fmt.Errorf("plan has nothing to do")
	}

	seen := map[models.AccountNumber]bool{}
	for _, n := range p.Deactivate {
		if seen[n] {
			return fmt.Errorf("account %s listed twice under deactivate", n)
		}
		seen[n] = true
	}

	ledgers := map[models.AccountNumber]bool{}
	for i, b := range p.DeleteTransactions {
		if b.Account == 0 {
			return fmt.Errorf("delete_transactions[%d]: missing account", i)
		}
		if ledgers[b.Account] {
			return fmt.Errorf("delete_transactions: account %s listed twice", b.Account)
		}
		ledgers[b.Account] = true
		if len(b.Transactions) == 0 {
			return fmt.Errorf("delete_transactions[%d]: account %s has no transactions", i, b.Account)
		}
	}
	return nil
}

func (p *Plan) Print(w io.Writer) {
	for i, b := range p.DeleteTransactions {
		ids := make([]string, len(b.Transactions))
		for j, id := range b.Transactions {
			ids[j] = fmt.Sprint(id)
		}
		fmt.Fprintf(w, "[%d] delete account=%s transactions=%s\n", i+1, b.Account, strings.Join(ids, ","))
	}
	for i, n := range p.Deactivate {
		fmt.Fprintf(w, "[%d] deactivate account=%s\n", len(p.DeleteTransactions)+i+1, n)
	}
}
