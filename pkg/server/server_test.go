package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yurifrl/coa/pkg/batch"
	"github.com/yurifrl/coa/pkg/models"
	"github.com/yurifrl/coa/pkg/remote/remotetest"
	"github.com/yurifrl/coa/pkg/session"
)

func newTestServer(t *testing.T) (*httptest.Server, *remotetest.Fake) {
	t.Helper()
	fake := remotetest.New(
		[]models.Account{
			{Number: 1010, Name: "Cash", NormalSide: models.Debit, Category: models.Asset,
				DebitBalance: decimal.NewFromInt(5), InitialBalance: decimal.NewFromInt(100)},
			{Number: 4010, Name: "Sales", NormalSide: models.Credit, Category: models.Revenue},
		},
		map[models.AccountNumber][]models.Transaction{
			1010: {
				{ID: 1, AccountNumber: 1010, Description: "Sale", Type: models.Debit, Amount: decimal.NewFromInt(50)},
				{ID: 2, AccountNumber: 1010, Description: "Rent", Type: models.Credit, Amount: decimal.NewFromInt(30)},
			},
		},
	)
	logger := log.New(io.Discard)
	ctrl := batch.New(fake, session.Static("csrf"), logger)
	srv := httptest.NewServer(New(ctrl, logger, "", []string{"*"}).Handler())
	t.Cleanup(srv.Close)
	return srv, fake
}

func call(t *testing.T, srv *httptest.Server, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestLoadAndSortAccounts(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := call(t, srv, http.MethodPost, "/api/view", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rows := decode[[]AccountRow](t, resp)
	require.Len(t, rows, 2)
	assert.Equal(t, models.BalanceSheet, rows[0].StatementType)
	assert.True(t, rows[0].CurrentBalance.Equal(decimal.NewFromInt(5)))

	resp = call(t, srv, http.MethodGet, "/api/accounts?sort=statementType", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rows = decode[[]AccountRow](t, resp)
	assert.Equal(t, models.AccountNumber(1010), rows[0].Number)

	resp = call(t, srv, http.MethodGet, "/api/accounts?sort=bogus", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLoadWithEmptyChunkedBody(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/view", strings.NewReader(""))
	req.ContentLength = -1
	rec := httptest.NewRecorder()
	srv.Config.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var rows []AccountRow
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&rows))
	assert.Len(t, rows, 2)

	resp := call(t, srv, http.MethodPost, "/api/view", `{"selectedAccount":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPendingAccountOpensLedger(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := call(t, srv, http.MethodPost, "/api/view", `{"selectedAccount":1010}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = call(t, srv, http.MethodGet, "/api/ledger", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ledger := decode[LedgerResponse](t, resp)
	assert.Equal(t, "Cash", ledger.Account.Name)
	require.Len(t, ledger.Transactions, 2)
	assert.True(t, ledger.Transactions[1].Balance.Equal(decimal.NewFromInt(120)))
}

func TestDeleteTransactionsFlow(t *testing.T) {
	srv, fake := newTestServer(t)
	call(t, srv, http.MethodPost, "/api/view", "")

	resp := call(t, srv, http.MethodPut, "/api/ledger/1010", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = call(t, srv, http.MethodPut, "/api/ledger/transactions/2/selected", `{"included":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = call(t, srv, http.MethodPost, "/api/actions/delete-transactions", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, "succeeded", body["state"])
	assert.Equal(t, [][]models.TransactionID{{2}}, fake.DeletedBatch)

	resp = call(t, srv, http.MethodGet, "/api/ledger.csv", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "Rent")
}

func TestDeactivateStandingBalanceIsRejected(t *testing.T) {
	srv, fake := newTestServer(t)
	call(t, srv, http.MethodPost, "/api/view", "")

	resp := call(t, srv, http.MethodPut, "/api/accounts/1010/selected", `{"included":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = call(t, srv, http.MethodPost, "/api/actions/deactivate-accounts", "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, "rejected", body["state"])
	assert.Equal(t, "You cannot deactivate an account with a standing balance.", body["userMessage"])
	assert.Zero(t, fake.Mutations())
}

func TestErrors(t *testing.T) {
	srv, _ := newTestServer(t)
	call(t, srv, http.MethodPost, "/api/view", "")

	tests := []struct {
		method, path, body string
		status             int
	}{
		{http.MethodPut, "/api/accounts/9999/selected", `{"included":true}`, http.StatusNotFound},
		{http.MethodPut, "/api/accounts/abc/selected", `{"included":true}`, http.StatusBadRequest},
		{http.MethodPut, "/api/accounts/1010/selected", `{`, http.StatusBadRequest},
		{http.MethodGet, "/api/ledger", "", http.StatusConflict},
		{http.MethodPut, "/api/ledger/9999", "", http.StatusNotFound},
		{http.MethodPost, "/api/actions/launch", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			resp := call(t, srv, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			body := decode[map[string]any](t, resp)
			assert.Equal(t, "error", body["status"])
		})
	}
}
