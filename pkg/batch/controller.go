package batch

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/yurifrl/coa/pkg/ledger"
	"github.com/yurifrl/coa/pkg/models"
	"github.com/yurifrl/coa/pkg/reconcile"
	"github.com/yurifrl/coa/pkg/remote"
	"github.com/yurifrl/coa/pkg/selection"
	"github.com/yurifrl/coa/pkg/session"
	"github.com/yurifrl/coa/pkg/table"
)

// Outcome describes how a submission ended.
type Outcome struct {
	Action       Action                 `json:"action"`
	State        State                  `json:"state"`
	Accounts     []models.AccountNumber `json:"accounts,omitempty"`
	Transactions []models.TransactionID `json:"transactions,omitempty"`
	Message      string                 `json:"message,omitempty"`
	// Stale is set when the view changed while the request was in flight;
	// the local collections were left alone.
	Stale bool `json:"stale,omitempty"`

	AccountReport     *reconcile.Report[models.AccountNumber] `json:"-"`
	TransactionReport *reconcile.Report[models.TransactionID] `json:"-"`
	// RefreshErr is set when the command succeeded but re-fetching failed.
	RefreshErr error `json:"-"`
}

// Controller owns the chart-of-accounts view: the canonical account and
// transaction collections, the user's selections and the batch commands
// that mutate them. It is safe for concurrent use. The lock is never held
// while talking to the service.
type Controller struct {
	svc    remote.Service
	tokens session.TokenProvider
	logger *log.Logger

	mu           sync.Mutex
	accounts     []models.Account
	transactions []models.Transaction
	open         models.Account
	sel          selection.Tracker
	viewEpoch    uint64
	ledgerEpoch  uint64
	ledgerFetch  uint64
	states       map[Action]State
}

func New(svc remote.Service, tokens session.TokenProvider, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.Default()
	}
	return &Controller{
		svc:    svc,
		tokens: tokens,
		logger: logger,
		states: make(map[Action]State, len(Actions)),
	}
}

// Load enters the view: selections start empty, accounts are fetched and,
// when pending is set, that account's ledger is opened right away.
func (c *Controller) Load(ctx context.Context, pending *models.AccountNumber) error {
	c.mu.Lock()
	c.viewEpoch++
	c.ledgerEpoch++
	c.accounts = nil
	c.transactions = nil
	c.open = models.Account{}
	c.sel.Reset()
	c.mu.Unlock()

	if err := c.RefreshAccounts(ctx); err != nil {
		return err
	}
	if pending != nil {
		return c.Open(ctx, *pending)
	}
	return nil
}

// Leave drops the view. Responses still in flight are ignored when they land.
func (c *Controller) Leave() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.viewEpoch++
	c.ledgerEpoch++
	c.accounts = nil
	c.transactions = nil
	c.open = models.Account{}
	c.sel.Reset()
}

// RefreshAccounts replaces the account collection with a fresh fetch.
func (c *Controller) RefreshAccounts(ctx context.Context) error {
	c.mu.Lock()
	epoch := c.viewEpoch
	c.mu.Unlock()

	accounts, err := c.svc.Accounts(ctx)
	if err != nil {
		c.logger.Error("failed to fetch accounts", "err", err)
		return fmt.Errorf("refresh accounts: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.viewEpoch {
		c.logger.Debug("discarding stale accounts response")
		return nil
	}

	c.accounts = accounts
	visible := make(map[models.AccountNumber]models.Account, len(accounts))
	for _, a := range accounts {
		visible[a.Number] = a
	}
	c.sel.Accounts = c.sel.Accounts.Retain(func(n models.AccountNumber) bool {
		_, ok := visible[n]
		return ok
	})
	if n, ok := c.sel.OpenAccount(); ok {
		if a, found := visible[n]; found {
			c.open = a
		} else {
			c.logger.Info("open account is no longer listed, closing its ledger", "account", n)
			c.closeLedger()
		}
	}
	c.logger.Debug("accounts loaded", "count", len(accounts))
	return nil
}

// Open shows the ledger of account n. Opening a different account than the
// current one clears the transaction selection; reopening the current one
// only re-fetches it.
func (c *Controller) Open(ctx context.Context, n models.AccountNumber) error {
	c.mu.Lock()
	account, ok := c.findAccount(n)
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("open ledger %s: %w", n, ErrNotVisible)
	}
	if cur, open := c.sel.OpenAccount(); !open || cur != n {
		c.ledgerEpoch++
		c.transactions = nil
	}
	c.sel.Open(n)
	c.open = account
	epoch, seq := c.ledgerEpoch, c.nextFetch()
	c.mu.Unlock()

	return c.fetchLedger(ctx, n, epoch, seq)
}

// RefreshLedger re-fetches the open ledger.
func (c *Controller) RefreshLedger(ctx context.Context) error {
	c.mu.Lock()
	n, ok := c.sel.OpenAccount()
	epoch, seq := c.ledgerEpoch, c.nextFetch()
	c.mu.Unlock()
	if !ok {
		return ErrNoLedger
	}
	return c.fetchLedger(ctx, n, epoch, seq)
}

// nextFetch numbers a ledger fetch so only the latest one is applied. The
// caller holds c.mu.
func (c *Controller) nextFetch() uint64 {
	c.ledgerFetch++
	return c.ledgerFetch
}

func (c *Controller) fetchLedger(ctx context.Context, n models.AccountNumber, epoch, seq uint64) error {
	txs, err := c.svc.Transactions(ctx, n)
	if err != nil {
		c.logger.Error("failed to fetch transactions", "account", n, "err", err)
		return fmt.Errorf("fetch ledger %s: %w", n, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.ledgerEpoch || seq != c.ledgerFetch {
		c.logger.Debug("discarding stale ledger response", "account", n)
		return nil
	}

	c.transactions = txs
	visible := make(map[models.TransactionID]struct{}, len(txs))
	for _, tx := range txs {
		visible[tx.ID] = struct{}{}
	}
	c.sel.Transactions = c.sel.Transactions.Retain(func(id models.TransactionID) bool {
		_, ok := visible[id]
		return ok
	})
	c.logger.Debug("ledger loaded", "account", n, "count", len(txs))
	return nil
}

// Close returns from the ledger to the chart of accounts.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLedger()
}

// closeLedger drops the open ledger. The caller holds c.mu.
func (c *Controller) closeLedger() {
	c.ledgerEpoch++
	c.transactions = nil
	c.open = models.Account{}
	c.sel.Close()
}

// --- views ---

// Accounts returns the accounts in display order.
func (c *Controller) Accounts() []models.Account {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.accounts)
}

// Rows returns the accounts in display order with their derived columns.
func (c *Controller) Rows() []ledger.AccountRow {
	return ledger.Rows(c.Accounts())
}

// OpenAccount returns the account whose ledger is shown, if any.
func (c *Controller) OpenAccount() (models.Account, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.sel.OpenAccount(); !ok {
		return models.Account{}, false
	}
	return c.open, true
}

// Transactions returns the open ledger's transactions in display order.
func (c *Controller) Transactions() []models.Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.transactions)
}

// Ledger folds the open ledger's transactions, in display order, starting
// from the account's initial balance.
func (c *Controller) Ledger() ([]ledger.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.sel.OpenAccount(); !ok {
		return nil, ErrNoLedger
	}
	return ledger.RunningBalances(c.open.InitialBalance, c.transactions), nil
}

// SortAccounts reorders the displayed accounts by key, ascending.
func (c *Controller) SortAccounts(key table.Key) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	sorted, err := table.Accounts.Sort(c.accounts, key)
	if err != nil {
		return err
	}
	c.accounts = sorted
	return nil
}

// SortTransactions reorders the open ledger by key, ascending. Running
// balances follow the new order.
func (c *Controller) SortTransactions(key table.Key) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.sel.OpenAccount(); !ok {
		return ErrNoLedger
	}
	sorted, err := table.Transactions.Sort(c.transactions, key)
	if err != nil {
		return err
	}
	c.transactions = sorted
	return nil
}

// --- selection ---

// ToggleAccount adds or removes account n from the account selection.
func (c *Controller) ToggleAccount(n models.AccountNumber, included bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.findAccount(n); included && !ok {
		return fmt.Errorf("account %s: %w", n, ErrNotVisible)
	}
	c.sel.Accounts = c.sel.Accounts.Toggle(n, included)
	return nil
}

// ToggleTransaction adds or removes a transaction of the open ledger from
// the transaction selection.
func (c *Controller) ToggleTransaction(id models.TransactionID, included bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.sel.OpenAccount(); !ok {
		return ErrNoLedger
	}
	if included && !slices.ContainsFunc(c.transactions, func(tx models.Transaction) bool { return tx.ID == id }) {
		return fmt.Errorf("transaction %d: %w", id, ErrNotVisible)
	}
	c.sel.Transactions = c.sel.Transactions.Toggle(id, included)
	return nil
}

func (c *Controller) SelectedAccounts() []models.AccountNumber {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sel.Accounts.Items()
}

func (c *Controller) SelectedTransactions() []models.TransactionID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sel.Transactions.Items()
}

// State returns where action currently is in its lifecycle.
func (c *Controller) State(action Action) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.states[action]
}

// --- submissions ---

// DeactivateAccounts submits the selected accounts for deactivation. Every
// selected account must have a zero current balance.
func (c *Controller) DeactivateAccounts(ctx context.Context) (*Outcome, error) {
	out := &Outcome{Action: DeactivateAccounts}

	c.mu.Lock()
	if err := c.begin(DeactivateAccounts); err != nil {
		c.mu.Unlock()
		out.State = Rejected
		return out, err
	}
	ids := c.sel.Accounts.Items()
	records := make([]models.Account, 0, len(ids))
	for _, n := range ids {
		if a, ok := c.findAccount(n); ok {
			records = append(records, a)
		}
	}
	epoch := c.viewEpoch
	c.mu.Unlock()
	defer c.setState(DeactivateAccounts, Idle)

	out.Accounts = ids

	token, err := c.token(ctx)
	if err != nil {
		return c.reject(out, &PreconditionError{Action: DeactivateAccounts, Reason: ReasonMissingToken, Err: err})
	}
	if len(records) == 0 {
		return c.reject(out, &PreconditionError{Action: DeactivateAccounts, Reason: ReasonEmptySelection})
	}
	var standing []models.AccountNumber
	for _, a := range records {
		if !ledger.AccountBalance(a).IsZero() {
			standing = append(standing, a.Number)
		}
	}
	if len(standing) > 0 {
		return c.reject(out, &PreconditionError{Action: DeactivateAccounts, Reason: ReasonStandingBalance, Accounts: standing})
	}

	c.setState(DeactivateAccounts, Submitting)
	c.logger.Info("submitting batch", "action", DeactivateAccounts, "count", len(records))
	msg, err := c.svc.DeactivateAccounts(ctx, token, records)
	if err != nil {
		return c.fail(out, err)
	}
	c.succeed(out, msg)

	c.mu.Lock()
	if epoch != c.viewEpoch {
		c.mu.Unlock()
		out.Stale = true
		c.logger.Info("view changed while submitting, leaving it untouched", "action", DeactivateAccounts)
		return out, nil
	}
	c.accounts = slices.DeleteFunc(slices.Clone(c.accounts), func(a models.Account) bool {
		return slices.Contains(ids, a.Number)
	})
	c.sel.Accounts = selection.Set[models.AccountNumber]{}
	c.mu.Unlock()

	if err := c.RefreshAccounts(ctx); err != nil {
		out.RefreshErr = err
		c.logger.Warn("refresh after deactivation failed", "err", err)
		return out, nil
	}
	out.AccountReport = reconcile.Build(ids, c.Accounts(), accountNumber)
	if n := out.AccountReport.LingeringCount(); n > 0 {
		c.logger.Warn("service still lists deactivated accounts", "count", n, "accounts", out.AccountReport.Lingering())
	}
	return out, nil
}

// DeleteTransactions submits the selected transactions of the open ledger
// for deletion.
func (c *Controller) DeleteTransactions(ctx context.Context) (*Outcome, error) {
	out := &Outcome{Action: DeleteTransactions}

	c.mu.Lock()
	if err := c.begin(DeleteTransactions); err != nil {
		c.mu.Unlock()
		out.State = Rejected
		return out, err
	}
	_, open := c.sel.OpenAccount()
	ids := c.sel.Transactions.Items()
	records := make([]models.Transaction, 0, len(ids))
	for _, id := range ids {
		if i := slices.IndexFunc(c.transactions, func(tx models.Transaction) bool { return tx.ID == id }); i >= 0 {
			records = append(records, c.transactions[i])
		}
	}
	epoch := c.ledgerEpoch
	c.mu.Unlock()
	defer c.setState(DeleteTransactions, Idle)

	out.Transactions = ids

	token, err := c.token(ctx)
	if err != nil {
		return c.reject(out, &PreconditionError{Action: DeleteTransactions, Reason: ReasonMissingToken, Err: err})
	}
	if !open {
		return c.reject(out, &PreconditionError{Action: DeleteTransactions, Reason: ReasonNoLedger})
	}
	if len(records) == 0 {
		return c.reject(out, &PreconditionError{Action: DeleteTransactions, Reason: ReasonEmptySelection})
	}

	c.setState(DeleteTransactions, Submitting)
	c.logger.Info("submitting batch", "action", DeleteTransactions, "count", len(records))
	msg, err := c.svc.DeleteTransactions(ctx, token, records)
	if err != nil {
		return c.fail(out, err)
	}
	c.succeed(out, msg)

	c.mu.Lock()
	if epoch != c.ledgerEpoch {
		c.mu.Unlock()
		out.Stale = true
		c.logger.Info("ledger changed while submitting, leaving it untouched", "action", DeleteTransactions)
		return out, nil
	}
	c.transactions = slices.DeleteFunc(slices.Clone(c.transactions), func(tx models.Transaction) bool {
		return slices.Contains(ids, tx.ID)
	})
	c.sel.Transactions = selection.Set[models.TransactionID]{}
	c.mu.Unlock()

	ledgerErr := c.RefreshLedger(ctx)
	if ledgerErr == nil {
		out.TransactionReport = reconcile.Build(ids, c.Transactions(), transactionID)
		if n := out.TransactionReport.LingeringCount(); n > 0 {
			c.logger.Warn("service still lists deleted transactions", "count", n, "transactions", out.TransactionReport.Lingering())
		}
	}
	// Balances of the open account changed too.
	if err := errors.Join(ledgerErr, c.RefreshAccounts(ctx)); err != nil {
		out.RefreshErr = err
		c.logger.Warn("refresh after deletion failed", "err", err)
	}
	return out, nil
}

// --- helpers ---

// begin moves action out of Idle. The caller holds c.mu.
func (c *Controller) begin(action Action) error {
	if c.states[action] != Idle {
		c.logger.Warn("submission already in flight", "action", action, "state", c.states[action])
		return &PreconditionError{Action: action, Reason: ReasonInFlight}
	}
	c.states[action] = Validating
	return nil
}

func (c *Controller) setState(action Action, s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[action] = s
}

func (c *Controller) reject(out *Outcome, err *PreconditionError) (*Outcome, error) {
	c.setState(out.Action, Rejected)
	out.State = Rejected
	c.logger.Warn("batch rejected", "action", out.Action, "reason", err.Reason, "accounts", err.Accounts)
	return out, err
}

func (c *Controller) fail(out *Outcome, err error) (*Outcome, error) {
	state := Failed
	if errors.Is(err, remote.ErrForbidden) {
		state = Denied
	}
	c.setState(out.Action, state)
	out.State = state
	c.logger.Error("batch failed", "action", out.Action, "state", state, "err", err)
	return out, fmt.Errorf("%s: %w", out.Action, err)
}

func (c *Controller) succeed(out *Outcome, msg string) {
	c.setState(out.Action, Succeeded)
	out.State = Succeeded
	out.Message = msg
	c.logger.Info("batch succeeded", "action", out.Action, "message", msg)
}

func (c *Controller) token(ctx context.Context) (string, error) {
	if c.tokens == nil {
		return "", session.ErrNoToken
	}
	token, err := c.tokens.CSRFToken(ctx)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", session.ErrNoToken
	}
	return token, nil
}

// findAccount looks n up in the displayed accounts. The caller holds c.mu.
func (c *Controller) findAccount(n models.AccountNumber) (models.Account, bool) {
	i := slices.IndexFunc(c.accounts, func(a models.Account) bool { return a.Number == n })
	if i < 0 {
		return models.Account{}, false
	}
	return c.accounts[i], true
}

func accountNumber(a models.Account) models.AccountNumber { return a.Number }

func transactionID(tx models.Transaction) models.TransactionID { return tx.ID }
