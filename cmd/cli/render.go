package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/yurifrl/coa/pkg/batch"
	"github.com/yurifrl/coa/pkg/ledger"
	"github.com/yurifrl/coa/pkg/models"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true)
	negativeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))  // red
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))  // gray
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // green
)

func money(d decimal.Decimal) string {
	s := fmt.Sprintf("%12s", d.StringFixed(2))
	if d.IsNegative() {
		return negativeStyle.Render(s)
	}
	return s
}

func printAccounts(w io.Writer, rows []ledger.AccountRow) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-10s | %-28s | %-6s | %-9s | %-22s | %12s | %s",
		"Number", "Name", "Side", "Category", "Statement", "Balance", "Added")))
	for _, r := range rows {
		a := r.Account
		fmt.Fprintf(w, "%-10s | %-28s | %-6s | %-9s | %-22s | %s | %s\n",
			a.Number, a.Name, a.NormalSide, a.Category, r.StatementType, money(r.CurrentBalance), a.DateAdded.Display())
	}
}

func printLedger(w io.Writer, account models.Account, entries []ledger.Entry) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%s %s", account.Number, account.Name)))
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("initial balance %s", account.InitialBalance.StringFixed(2))))
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-8s | %-10s | %-30s | %12s | %12s | %12s",
		"ID", "Date", "Description", "Debit", "Credit", "Balance")))
	for _, e := range entries {
		tx := e.Transaction
		debit, credit := "", ""
		if d, ok := tx.Debit(); ok {
			debit = d.StringFixed(2)
		}
		if c, ok := tx.Credit(); ok {
			credit = c.StringFixed(2)
		}
		fmt.Fprintf(w, "%-8d | %-10s | %-30s | %12s | %12s | %s\n",
			tx.ID, tx.Date.Display(), tx.Description, debit, credit, money(e.Balance))
	}
}

func printOutcome(w io.Writer, out *batch.Outcome) {
	msg := out.Message
	if msg == "" {
		msg = fmt.Sprintf("%s %s", out.Action, out.State)
	}
	fmt.Fprintln(w, okStyle.Render(msg))
	if out.Stale {
		fmt.Fprintln(w, mutedStyle.Render("view changed while the request was in flight"))
	}
	if out.AccountReport != nil && out.AccountReport.LingeringCount() > 0 {
		fmt.Fprintln(w, negativeStyle.Render(fmt.Sprintf("still listed: %v", out.AccountReport.Lingering())))
	}
	if out.TransactionReport != nil && out.TransactionReport.LingeringCount() > 0 {
		fmt.Fprintln(w, negativeStyle.Render(fmt.Sprintf("still listed: %v", out.TransactionReport.Lingering())))
	}
	if out.RefreshErr != nil {
		fmt.Fprintln(w, mutedStyle.Render(batch.LoadMessage(out.RefreshErr)))
	}
}
