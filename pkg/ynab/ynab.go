package ynab

import (
	"context"
	"fmt"
	"hash/fnv"
	"net/http"
	"sync"
	"time"

	"github.com/brunomvsouza/ynab.go"
	"github.com/brunomvsouza/ynab.go/api/account"
	"github.com/brunomvsouza/ynab.go/api/transaction"
	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"

	"github.com/yurifrl/coa/pkg/models"
	"github.com/yurifrl/coa/pkg/remote"
)

// Backend serves a YNAB budget as a read-only chart of accounts. YNAB
// identifies accounts and transactions by UUID; Backend derives stable
// numeric identifiers from them and remembers the mapping.
type Backend struct {
	client   ynab.ClientServicer
	budgetID string
	logger   *log.Logger

	mu  sync.Mutex
	ids map[models.AccountNumber]string
}

func New(token, budgetID string, logger *log.Logger) *Backend {
	if logger == nil {
		logger = log.Default()
	}
	return &Backend{
		client:   ynab.NewClient(token),
		budgetID: budgetID,
		logger:   logger,
		ids:      map[models.AccountNumber]string{},
	}
}

var _ remote.Service = (*Backend)(nil)

func (b *Backend) Accounts(ctx context.Context) ([]models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snapshot, err := b.client.Account().GetAccounts(b.budgetID, nil)
	if err != nil {
		return nil, &remote.TransportError{Op: "fetch accounts", Err: err}
	}

	var accounts []models.Account
	b.mu.Lock()
	defer b.mu.Unlock()
	if snapshot != nil {
		for _, a := range snapshot.Accounts {
			mapped, ok := mapAccount(a)
			if !ok {
				continue
			}
			b.ids[mapped.Number] = a.ID
			accounts = append(accounts, mapped)
		}
	}
	b.logger.Debug("ynab accounts", "budget_id", b.budgetID, "count", len(accounts))
	return accounts, nil
}

func (b *Backend) Transactions(ctx context.Context, n models.AccountNumber) ([]models.Transaction, error) {
	const op = "fetch transactions"
	accountID, ok := b.lookup(n)
	if !ok {
		if _, err := b.Accounts(ctx); err != nil {
			return nil, err
		}
		if accountID, ok = b.lookup(n); !ok {
			return nil, &remote.ServiceError{Op: op, StatusCode: http.StatusNotFound, Message: fmt.Sprintf("Account %s was not found.", n)}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	txs, err := b.client.Transaction().GetTransactionsByAccount(b.budgetID, accountID, nil)
	if err != nil {
		return nil, &remote.TransportError{Op: op, Err: err}
	}

	out := make([]models.Transaction, 0, len(txs))
	for _, tx := range txs {
		if mapped, ok := mapTransaction(n, tx); ok {
			out = append(out, mapped)
		}
	}
	return out, nil
}

// DeleteTransactions is refused: the YNAB backend never writes.
func (b *Backend) DeleteTransactions(ctx context.Context, token string, txs []models.Transaction) (string, error) {
	return "", readOnly("delete transactions")
}

// DeactivateAccounts is refused: the YNAB backend never writes.
func (b *Backend) DeactivateAccounts(ctx context.Context, token string, accounts []models.Account) (string, error) {
	return "", readOnly("deactivate accounts")
}

func (b *Backend) lookup(n models.AccountNumber) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.ids[n]
	return id, ok
}

func readOnly(op string) error {
	return &remote.ServiceError{Op: op, StatusCode: http.StatusMethodNotAllowed, Message: "The YNAB budget is read-only."}
}

// --- mapping ---

var liabilityTypes = map[string]bool{
	"creditCard":     true,
	"lineOfCredit":   true,
	"otherLiability": true,
	"mortgage":       true,
	"autoLoan":       true,
	"studentLoan":    true,
	"personalLoan":   true,
	"medicalDebt":    true,
	"otherDebt":      true,
}

// mapAccount skips closed and deleted accounts. Balances are milliunits;
// a positive balance sits in the debit column.
func mapAccount(a *account.Account) (models.Account, bool) {
	if a == nil || a.Closed || a.Deleted {
		return models.Account{}, false
	}

	out := models.Account{
		Number:        numberFor(a.ID),
		Name:          a.Name,
		Description:   string(a.Type),
		NormalSide:    models.Debit,
		Category:      models.Asset,
		SubCategory:   string(a.Type),
		DebitBalance:  decimal.Zero,
		CreditBalance: decimal.Zero,
	}
	if liabilityTypes[string(a.Type)] {
		out.NormalSide = models.Credit
		out.Category = models.Liability
	}

	balance := milliunits(a.Balance)
	if balance.IsNegative() {
		out.CreditBalance = balance.Neg()
	} else {
		out.DebitBalance = balance
	}
	out.InitialBalance = decimal.Zero
	return out, true
}

// mapTransaction skips deleted and zero-amount transactions. Inflows are
// debits, outflows credits.
func mapTransaction(n models.AccountNumber, tx *transaction.Transaction) (models.Transaction, bool) {
	if tx == nil || tx.Deleted || tx.Amount == 0 {
		return models.Transaction{}, false
	}

	out := models.Transaction{
		ID:            models.TransactionID(hash(tx.ID)),
		AccountNumber: n,
		Date:          date(tx),
		Type:          models.Debit,
		Amount:        milliunits(tx.Amount),
	}
	if tx.Amount < 0 {
		out.Type = models.Credit
		out.Amount = out.Amount.Neg()
	}
	switch {
	case tx.PayeeName != nil && *tx.PayeeName != "":
		out.Description = *tx.PayeeName
	case tx.Memo != nil:
		out.Description = *tx.Memo
	}
	return out, true
}

func date(tx *transaction.Transaction) models.Timestamp {
	t, err := time.Parse(time.DateOnly, tx.Date.Format(time.DateOnly))
	if err != nil || t.Year() <= 1 {
		return models.Timestamp{}
	}
	return models.NewTimestamp(t)
}

func milliunits(v int64) decimal.Decimal {
	return decimal.New(v, -3)
}

// numberFor derives a nine-digit account number from a YNAB UUID.
func numberFor(id string) models.AccountNumber {
	return models.AccountNumber(hash(id)%900_000_000 + 100_000_000)
}

func hash(id string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	return int64(h.Sum64() >> 1)
}
