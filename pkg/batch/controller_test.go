package batch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yurifrl/coa/pkg/models"
	"github.com/yurifrl/coa/pkg/remote"
	"github.com/yurifrl/coa/pkg/remote/remotetest"
	"github.com/yurifrl/coa/pkg/session"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newFake() *remotetest.Fake {
	accounts := []models.Account{
		{Number: 1010, Name: "Cash", NormalSide: models.Debit, Category: models.Asset,
			DebitBalance: d("5.00"), CreditBalance: d("0"), InitialBalance: d("100")},
		{Number: 2020, Name: "Payables", NormalSide: models.Credit, Category: models.Liability,
			DebitBalance: d("40"), CreditBalance: d("40")},
		{Number: 3030, Name: "Dormant", NormalSide: models.Debit, Category: models.Asset},
	}
	txs := map[models.AccountNumber][]models.Transaction{
		1010: {
			{ID: 1, AccountNumber: 1010, Type: models.Debit, Amount: d("50")},
			{ID: 2, AccountNumber: 1010, Type: models.Credit, Amount: d("30")},
			{ID: 3, AccountNumber: 1010, Type: models.Debit, Amount: d("10")},
		},
		2020: {
			{ID: 9, AccountNumber: 2020, Type: models.Credit, Amount: d("40")},
		},
	}
	return remotetest.New(accounts, txs)
}

func newController(t *testing.T, svc remote.Service, token string) *Controller {
	t.Helper()
	c := New(svc, session.Static(token), log.New(io.Discard))
	require.NoError(t, c.Load(context.Background(), nil))
	return c
}

func txIDs(txs []models.Transaction) []models.TransactionID {
	ids := make([]models.TransactionID, len(txs))
	for i, tx := range txs {
		ids[i] = tx.ID
	}
	return ids
}

func TestLoadOpensPendingLedger(t *testing.T) {
	pending := models.AccountNumber(1010)
	c := New(newFake(), session.Static("csrf"), log.New(io.Discard))

	require.NoError(t, c.Load(context.Background(), &pending))

	account, ok := c.OpenAccount()
	require.True(t, ok)
	assert.Equal(t, "Cash", account.Name)
	assert.Equal(t, []models.TransactionID{1, 2, 3}, txIDs(c.Transactions()))
}

func TestLoadUnknownPendingAccount(t *testing.T) {
	pending := models.AccountNumber(9999)
	c := New(newFake(), session.Static("csrf"), log.New(io.Discard))

	err := c.Load(context.Background(), &pending)
	assert.ErrorIs(t, err, ErrNotVisible)
	assert.Len(t, c.Accounts(), 3)
}

func TestLedgerRunningBalances(t *testing.T) {
	c := newController(t, newFake(), "csrf")
	require.NoError(t, c.Open(context.Background(), 1010))

	entries, err := c.Ledger()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, want := range []string{"150", "120", "130"} {
		assert.True(t, entries[i].Balance.Equal(d(want)), "entry %d: %s", i, entries[i].Balance)
	}

	c.Close()
	_, err = c.Ledger()
	assert.ErrorIs(t, err, ErrNoLedger)
}

func TestSortAccounts(t *testing.T) {
	c := newController(t, newFake(), "csrf")

	require.NoError(t, c.SortAccounts("accountName"))
	names := []string{}
	for _, a := range c.Accounts() {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"Cash", "Dormant", "Payables"}, names)

	assert.Error(t, c.SortAccounts("nope"))
}

func TestToggleRequiresVisibleRows(t *testing.T) {
	c := newController(t, newFake(), "csrf")

	assert.ErrorIs(t, c.ToggleAccount(4040, true), ErrNotVisible)
	assert.NoError(t, c.ToggleAccount(4040, false))
	assert.ErrorIs(t, c.ToggleTransaction(1, true), ErrNoLedger)

	require.NoError(t, c.Open(context.Background(), 1010))
	assert.ErrorIs(t, c.ToggleTransaction(9, true), ErrNotVisible)

	require.NoError(t, c.ToggleTransaction(1, true))
	require.NoError(t, c.ToggleTransaction(1, true))
	assert.Equal(t, []models.TransactionID{1}, c.SelectedTransactions())
}

func TestOpeningAnotherAccountClearsTransactionSelection(t *testing.T) {
	c := newController(t, newFake(), "csrf")
	ctx := context.Background()

	require.NoError(t, c.Open(ctx, 1010))
	require.NoError(t, c.ToggleTransaction(2, true))
	require.NoError(t, c.Open(ctx, 1010))
	assert.Equal(t, []models.TransactionID{2}, c.SelectedTransactions())

	require.NoError(t, c.Open(ctx, 2020))
	assert.Empty(t, c.SelectedTransactions())
	assert.Equal(t, []models.TransactionID{9}, txIDs(c.Transactions()))
}

func TestDeactivateRejectsStandingBalance(t *testing.T) {
	fake := newFake()
	c := newController(t, fake, "csrf")
	require.NoError(t, c.ToggleAccount(1010, true))
	require.NoError(t, c.ToggleAccount(2020, true))

	out, err := c.DeactivateAccounts(context.Background())

	var pre *PreconditionError
	require.ErrorAs(t, err, &pre)
	assert.Equal(t, ReasonStandingBalance, pre.Reason)
	assert.Equal(t, []models.AccountNumber{1010}, pre.Accounts)
	assert.Equal(t, Rejected, out.State)
	assert.Equal(t, "You cannot deactivate an account with a standing balance.", UserMessage(DeactivateAccounts, err))

	assert.Zero(t, fake.Mutations())
	assert.Len(t, c.Accounts(), 3)
	assert.Equal(t, []models.AccountNumber{1010, 2020}, c.SelectedAccounts())
	assert.Equal(t, Idle, c.State(DeactivateAccounts))
}

func TestDeactivateSucceeds(t *testing.T) {
	fake := newFake()
	c := newController(t, fake, "csrf")
	require.NoError(t, c.ToggleAccount(2020, true))
	require.NoError(t, c.ToggleAccount(3030, true))

	out, err := c.DeactivateAccounts(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Succeeded, out.State)
	assert.Equal(t, "ok", out.Message)
	assert.Equal(t, [][]models.AccountNumber{{2020, 3030}}, fake.DeactivateIDs)
	require.Len(t, c.Accounts(), 1)
	assert.Equal(t, models.AccountNumber(1010), c.Accounts()[0].Number)
	assert.Empty(t, c.SelectedAccounts())
	require.NotNil(t, out.AccountReport)
	assert.Equal(t, 2, out.AccountReport.RemovedCount())
	assert.Equal(t, Idle, c.State(DeactivateAccounts))
}

func TestDeleteTransactionsRemovesExactlySubmitted(t *testing.T) {
	fake := newFake()
	c := newController(t, fake, "csrf")
	ctx := context.Background()
	require.NoError(t, c.Open(ctx, 1010))
	require.NoError(t, c.ToggleTransaction(1, true))
	require.NoError(t, c.ToggleTransaction(3, true))

	out, err := c.DeleteTransactions(ctx)
	require.NoError(t, err)

	assert.Equal(t, Succeeded, out.State)
	assert.Equal(t, []models.TransactionID{1, 3}, out.Transactions)
	assert.Equal(t, []string{"csrf"}, fake.DeleteTokens)
	assert.Equal(t, []models.TransactionID{2}, txIDs(c.Transactions()))
	assert.Empty(t, c.SelectedTransactions())
	require.NotNil(t, out.TransactionReport)
	assert.Zero(t, out.TransactionReport.LingeringCount())
	assert.NoError(t, out.RefreshErr)
}

func TestDeleteTransactionsReportsLingeringRows(t *testing.T) {
	fake := newFake()
	fake.KeepDeleted = true
	c := newController(t, fake, "csrf")
	ctx := context.Background()
	require.NoError(t, c.Open(ctx, 1010))
	require.NoError(t, c.ToggleTransaction(2, true))

	out, err := c.DeleteTransactions(ctx)
	require.NoError(t, err)

	assert.Equal(t, []models.TransactionID{2}, out.TransactionReport.Lingering())
	assert.Equal(t, []models.TransactionID{1, 2, 3}, txIDs(c.Transactions()))
}

func TestSubmissionFailuresLeaveStateAlone(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		state   State
		message string
	}{
		{
			name:    "forbidden",
			err:     fmt.Errorf("delete transactions: %w", remote.ErrForbidden),
			state:   Denied,
			message: "You do not have permission to delete these transactions.",
		},
		{
			name:    "service message",
			err:     &remote.ServiceError{Op: "delete transactions", StatusCode: http.StatusConflict, Message: "Transaction 1 is posted."},
			state:   Failed,
			message: "Transaction 1 is posted.",
		},
		{
			name:    "transport",
			err:     &remote.TransportError{Op: "delete transactions", Err: io.ErrUnexpectedEOF},
			state:   Failed,
			message: "An error occurred while deleting transactions. Please try again.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFake()
			fake.Err = tt.err
			c := newController(t, fake, "csrf")
			ctx := context.Background()
			require.NoError(t, c.Open(ctx, 1010))
			require.NoError(t, c.ToggleTransaction(1, true))

			out, err := c.DeleteTransactions(ctx)
			require.Error(t, err)
			assert.Equal(t, tt.state, out.State)
			assert.Equal(t, tt.message, UserMessage(DeleteTransactions, err))
			assert.Equal(t, []models.TransactionID{1, 2, 3}, txIDs(c.Transactions()))
			assert.Equal(t, []models.TransactionID{1}, c.SelectedTransactions())
			assert.Equal(t, Idle, c.State(DeleteTransactions))
		})
	}
}

func TestMissingTokenRejectsLocally(t *testing.T) {
	fake := newFake()
	c := newController(t, fake, "")
	require.NoError(t, c.ToggleAccount(3030, true))

	out, err := c.DeactivateAccounts(context.Background())

	var pre *PreconditionError
	require.ErrorAs(t, err, &pre)
	assert.Equal(t, ReasonMissingToken, pre.Reason)
	assert.ErrorIs(t, err, session.ErrNoToken)
	assert.Equal(t, Rejected, out.State)
	assert.Zero(t, fake.Mutations())
}

func TestEmptySelectionRejectsLocally(t *testing.T) {
	fake := newFake()
	c := newController(t, fake, "csrf")

	_, err := c.DeactivateAccounts(context.Background())
	var pre *PreconditionError
	require.ErrorAs(t, err, &pre)
	assert.Equal(t, ReasonEmptySelection, pre.Reason)

	_, err = c.DeleteTransactions(context.Background())
	require.ErrorAs(t, err, &pre)
	assert.Equal(t, ReasonNoLedger, pre.Reason)
	assert.Zero(t, fake.Mutations())
}

func TestSecondSubmissionWhileInFlightIsRefused(t *testing.T) {
	fake := newFake()
	fake.Block = make(chan struct{})
	c := newController(t, fake, "csrf")
	ctx := context.Background()
	require.NoError(t, c.Open(ctx, 1010))
	require.NoError(t, c.ToggleTransaction(1, true))

	done := make(chan *Outcome)
	go func() {
		out, _ := c.DeleteTransactions(ctx)
		done <- out
	}()
	require.Eventually(t, func() bool { return c.State(DeleteTransactions) == Submitting }, time.Second, 5*time.Millisecond)

	_, err := c.DeleteTransactions(ctx)
	var pre *PreconditionError
	require.ErrorAs(t, err, &pre)
	assert.Equal(t, ReasonInFlight, pre.Reason)

	close(fake.Block)
	out := <-done
	assert.Equal(t, Succeeded, out.State)
	assert.Len(t, fake.DeletedBatch, 1)
	assert.Equal(t, Idle, c.State(DeleteTransactions))
}

func TestStaleResponseLeavesNewLedgerAlone(t *testing.T) {
	fake := newFake()
	fake.Block = make(chan struct{})
	c := newController(t, fake, "csrf")
	ctx := context.Background()
	require.NoError(t, c.Open(ctx, 1010))
	require.NoError(t, c.ToggleTransaction(1, true))

	done := make(chan *Outcome)
	go func() {
		out, _ := c.DeleteTransactions(ctx)
		done <- out
	}()
	require.Eventually(t, func() bool { return c.State(DeleteTransactions) == Submitting }, time.Second, 5*time.Millisecond)

	require.NoError(t, c.Open(ctx, 2020))
	require.NoError(t, c.ToggleTransaction(9, true))

	close(fake.Block)
	out := <-done
	assert.Equal(t, Succeeded, out.State)
	assert.True(t, out.Stale)
	assert.Equal(t, []models.TransactionID{9}, txIDs(c.Transactions()))
	assert.Equal(t, []models.TransactionID{9}, c.SelectedTransactions())
}

func TestReopeningSameLedgerKeepsDeletionInFlight(t *testing.T) {
	fake := newFake()
	fake.Block = make(chan struct{})
	c := newController(t, fake, "csrf")
	ctx := context.Background()
	require.NoError(t, c.Open(ctx, 1010))
	require.NoError(t, c.ToggleTransaction(1, true))

	done := make(chan *Outcome)
	go func() {
		out, _ := c.DeleteTransactions(ctx)
		done <- out
	}()
	require.Eventually(t, func() bool { return c.State(DeleteTransactions) == Submitting }, time.Second, 5*time.Millisecond)

	require.NoError(t, c.Open(ctx, 1010))
	assert.Equal(t, []models.TransactionID{1}, c.SelectedTransactions())

	close(fake.Block)
	out := <-done
	assert.Equal(t, Succeeded, out.State)
	assert.False(t, out.Stale)
	assert.Equal(t, []models.TransactionID{2, 3}, txIDs(c.Transactions()))
	assert.Empty(t, c.SelectedTransactions())

	_, err := c.DeleteTransactions(ctx)
	var pre *PreconditionError
	require.ErrorAs(t, err, &pre)
	assert.Equal(t, ReasonEmptySelection, pre.Reason)
	assert.Equal(t, [][]models.TransactionID{{1}}, fake.DeletedBatch)
}

func TestStaleDeactivationLeavesReloadedViewAlone(t *testing.T) {
	fake := newFake()
	fake.Block = make(chan struct{})
	c := newController(t, fake, "csrf")
	ctx := context.Background()
	require.NoError(t, c.ToggleAccount(2020, true))

	done := make(chan *Outcome)
	go func() {
		out, _ := c.DeactivateAccounts(ctx)
		done <- out
	}()
	require.Eventually(t, func() bool { return c.State(DeactivateAccounts) == Submitting }, time.Second, 5*time.Millisecond)

	c.Leave()
	require.NoError(t, c.Load(ctx, nil))
	require.NoError(t, c.ToggleAccount(3030, true))

	close(fake.Block)
	out := <-done
	assert.Equal(t, Succeeded, out.State)
	assert.True(t, out.Stale)
	assert.Nil(t, out.AccountReport)
	assert.Len(t, c.Accounts(), 3)
	assert.Equal(t, []models.AccountNumber{3030}, c.SelectedAccounts())
}

func TestDeactivatingOpenAccountClosesItsLedger(t *testing.T) {
	fake := newFake()
	c := newController(t, fake, "csrf")
	ctx := context.Background()
	require.NoError(t, c.Open(ctx, 2020))
	require.NoError(t, c.ToggleAccount(2020, true))

	out, err := c.DeactivateAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Succeeded, out.State)

	_, ok := c.OpenAccount()
	assert.False(t, ok)
	assert.Empty(t, c.Transactions())
	_, err = c.Ledger()
	assert.ErrorIs(t, err, ErrNoLedger)
}
