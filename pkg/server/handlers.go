package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/yurifrl/coa/pkg/batch"
	"github.com/yurifrl/coa/pkg/csv"
	"github.com/yurifrl/coa/pkg/models"
	"github.com/yurifrl/coa/pkg/table"
)

// AccountRow is a chart-of-accounts line as the front end renders it.
type AccountRow struct {
	models.Account
	CurrentBalance decimal.Decimal      `json:"currentBalance"`
	StatementType  models.StatementType `json:"statementType"`
	Selected       bool                 `json:"selected"`
}

// LedgerRow is a transaction with the balance after it.
type LedgerRow struct {
	models.Transaction
	Balance  decimal.Decimal `json:"balance"`
	Selected bool            `json:"selected"`
}

type LedgerResponse struct {
	Account      models.Account `json:"account"`
	Transactions []LedgerRow    `json:"transactions"`
}

type SubmitResponse struct {
	*batch.Outcome
	UserMessage           string                 `json:"userMessage"`
	LingeringAccounts     []models.AccountNumber `json:"lingeringAccounts,omitempty"`
	LingeringTransactions []models.TransactionID `json:"lingeringTransactions,omitempty"`
	RefreshError          string                 `json:"refreshError,omitempty"`
}

type loadRequest struct {
	SelectedAccount *models.AccountNumber `json:"selectedAccount"`
}

type toggleRequest struct {
	Included bool `json:"included"`
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	var req loadRequest
	// An empty body, chunked or not, means no pending account.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.respondError(w, r, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := s.ctrl.Load(r.Context(), req.SelectedAccount); err != nil {
		s.respondLoadError(w, r, err)
		return
	}
	s.writeAccounts(w, r)
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	s.ctrl.Leave()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	if key := r.URL.Query().Get("sort"); key != "" {
		if err := s.ctrl.SortAccounts(table.Key(key)); err != nil {
			s.respondError(w, r, http.StatusBadRequest, err.Error(), err)
			return
		}
	}
	s.writeAccounts(w, r)
}

func (s *Server) writeAccounts(w http.ResponseWriter, r *http.Request) {
	selected := map[models.AccountNumber]bool{}
	for _, n := range s.ctrl.SelectedAccounts() {
		selected[n] = true
	}
	rows := s.ctrl.Rows()
	out := make([]AccountRow, len(rows))
	for i, row := range rows {
		out[i] = AccountRow{
			Account:        row.Account,
			CurrentBalance: row.CurrentBalance,
			StatementType:  row.StatementType,
			Selected:       selected[row.Account.Number],
		}
	}
	if err := s.writeJSON(w, http.StatusOK, out); err != nil {
		s.logger.Warn("failed to write json response", "err", err)
	}
}

func (s *Server) handleAccountsCSV(w http.ResponseWriter, r *http.Request) {
	data, err := csv.Accounts(s.ctrl.Rows(), nil)
	if err != nil {
		s.respondError(w, r, http.StatusInternalServerError, "failed to render csv", err)
		return
	}
	s.writeCSV(w, "chart-of-accounts.csv", data)
}

func (s *Server) handleToggleAccount(w http.ResponseWriter, r *http.Request) {
	n, err := models.ParseAccountNumber(chi.URLParam(r, "number"))
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "invalid account number", err)
		return
	}
	req, ok := s.decodeToggle(w, r)
	if !ok {
		return
	}
	if err := s.ctrl.ToggleAccount(n, req.Included); err != nil {
		s.respondError(w, r, statusFor(err), err.Error(), err)
		return
	}
	_ = s.writeJSON(w, http.StatusOK, map[string]any{"selected": s.ctrl.SelectedAccounts()})
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	n, err := models.ParseAccountNumber(chi.URLParam(r, "number"))
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "invalid account number", err)
		return
	}
	if err := s.ctrl.Open(r.Context(), n); err != nil {
		s.respondLoadError(w, r, err)
		return
	}
	s.writeLedger(w, r)
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	s.ctrl.Close()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	if key := r.URL.Query().Get("sort"); key != "" {
		if err := s.ctrl.SortTransactions(table.Key(key)); err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, batch.ErrNoLedger) {
				status = http.StatusConflict
			}
			s.respondError(w, r, status, err.Error(), err)
			return
		}
	}
	s.writeLedger(w, r)
}

func (s *Server) writeLedger(w http.ResponseWriter, r *http.Request) {
	account, ok := s.ctrl.OpenAccount()
	entries, err := s.ctrl.Ledger()
	if !ok || err != nil {
		s.respondError(w, r, http.StatusConflict, batch.ErrNoLedger.Error(), err)
		return
	}

	selected := map[models.TransactionID]bool{}
	for _, id := range s.ctrl.SelectedTransactions() {
		selected[id] = true
	}
	rows := make([]LedgerRow, len(entries))
	for i, e := range entries {
		rows[i] = LedgerRow{Transaction: e.Transaction, Balance: e.Balance, Selected: selected[e.Transaction.ID]}
	}
	if err := s.writeJSON(w, http.StatusOK, LedgerResponse{Account: account, Transactions: rows}); err != nil {
		s.logger.Warn("failed to write json response", "err", err)
	}
}

func (s *Server) handleLedgerCSV(w http.ResponseWriter, r *http.Request) {
	account, ok := s.ctrl.OpenAccount()
	entries, err := s.ctrl.Ledger()
	if !ok || err != nil {
		s.respondError(w, r, http.StatusConflict, batch.ErrNoLedger.Error(), err)
		return
	}
	data, err := csv.Ledger(entries, nil)
	if err != nil {
		s.respondError(w, r, http.StatusInternalServerError, "failed to render csv", err)
		return
	}
	s.writeCSV(w, fmt.Sprintf("ledger-%s.csv", account.Number), data)
}

func (s *Server) handleToggleTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "invalid transaction id", err)
		return
	}
	req, ok := s.decodeToggle(w, r)
	if !ok {
		return
	}
	if err := s.ctrl.ToggleTransaction(models.TransactionID(id), req.Included); err != nil {
		s.respondError(w, r, statusFor(err), err.Error(), err)
		return
	}
	_ = s.writeJSON(w, http.StatusOK, map[string]any{"selected": s.ctrl.SelectedTransactions()})
}

func (s *Server) handleActionState(w http.ResponseWriter, r *http.Request) {
	action, ok := s.action(w, r)
	if !ok {
		return
	}
	_ = s.writeJSON(w, http.StatusOK, map[string]any{"action": action, "state": s.ctrl.State(action)})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	action, ok := s.action(w, r)
	if !ok {
		return
	}

	var (
		out *batch.Outcome
		err error
	)
	switch action {
	case batch.DeleteTransactions:
		out, err = s.ctrl.DeleteTransactions(r.Context())
	case batch.DeactivateAccounts:
		out, err = s.ctrl.DeactivateAccounts(r.Context())
	}

	resp := SubmitResponse{Outcome: out, UserMessage: batch.UserMessage(action, err)}
	if err != nil {
		status := statusFor(err)
		s.logger.Warn("submission failed", "action", action, "state", out.State, "err", err)
		if werr := s.writeJSON(w, status, resp); werr != nil {
			s.logger.Warn("failed to write json response", "err", werr)
		}
		return
	}

	if out.AccountReport != nil {
		resp.LingeringAccounts = out.AccountReport.Lingering()
	}
	if out.TransactionReport != nil {
		resp.LingeringTransactions = out.TransactionReport.Lingering()
	}
	if out.RefreshErr != nil {
		resp.RefreshError = batch.LoadMessage(out.RefreshErr)
	}
	if err := s.writeJSON(w, http.StatusOK, resp); err != nil {
		s.logger.Warn("failed to write json response", "err", err)
	}
}

func (s *Server) action(w http.ResponseWriter, r *http.Request) (batch.Action, bool) {
	action := batch.Action(chi.URLParam(r, "action"))
	for _, a := range batch.Actions {
		if a == action {
			return action, true
		}
	}
	s.respondError(w, r, http.StatusNotFound, fmt.Sprintf("unknown action %q", action), nil)
	return "", false
}

func (s *Server) decodeToggle(w http.ResponseWriter, r *http.Request) (toggleRequest, bool) {
	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, "invalid request body", err)
		return req, false
	}
	return req, true
}

func (s *Server) writeCSV(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	if _, err := w.Write(data); err != nil {
		s.logger.Warn("failed to write csv response", "err", err)
	}
}
