package executors

import (
	"context"
	"fmt"
	"slices"

	"github.com/charmbracelet/lipgloss"

	"github.com/yurifrl/coa/pkg/models"
	"github.com/yurifrl/coa/pkg/plan"
)

// Plan fetches what the plan touches, builds the preview and prints it.
// Nothing is submitted.
func (e *Executor) Plan(ctx context.Context, p *plan.Plan) (*Preview, error) {
	e.logger.Debug("planning batch", "ledgers", len(p.DeleteTransactions), "deactivate", len(p.Deactivate))

	accounts, err := e.svc.Accounts(ctx)
	if err != nil {
		return nil, err
	}

	ledgers := make(map[models.AccountNumber][]models.Transaction, len(p.DeleteTransactions))
	for _, b := range p.DeleteTransactions {
		if !slices.ContainsFunc(accounts, func(a models.Account) bool { return a.Number == b.Account }) {
			continue
		}
		txs, err := e.svc.Transactions(ctx, b.Account)
		if err != nil {
			return nil, err
		}
		ledgers[b.Account] = txs
	}

	preview := BuildPreview(p, accounts, ledgers)
	e.logger.Debug("processing plan preview", "ready", preview.ReadyCount(), "blocked", preview.Blocked())

	deleteStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9"))     // red
	deactivateStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11")) // yellow
	blockedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))     // gray

	for _, it := range preview.Deletions {
		tx := it.Transaction
		if it.Status != Ready {
			line := fmt.Sprintf("%s | #%-6d | %s", it.Account, tx.ID, it.Status)
			fmt.Fprintln(e.out, blockedStyle.Render("! "+line))
			continue
		}
		line := fmt.Sprintf("%s | #%-6d | %s | %-30s | %-6s | %s",
			it.Account, tx.ID, tx.Date.Display(), tx.Description, tx.Type, tx.Amount.StringFixed(2))
		fmt.Fprintln(e.out, deleteStyle.Render("- "+line))
	}

	for _, it := range preview.Deactivations {
		if it.Status != Ready {
			line := fmt.Sprintf("%s | %-30s | %s", it.Account, it.Record.Name, it.Status)
			fmt.Fprintln(e.out, blockedStyle.Render("! "+line))
			continue
		}
		line := fmt.Sprintf("%s | %-30s | deactivate", it.Account, it.Record.Name)
		fmt.Fprintln(e.out, deactivateStyle.Render("~ "+line))
	}

	if preview.Blocked() == 0 {
		fmt.Fprintf(e.out, "\nPlan: %d line(s) will be submitted\n", preview.ReadyCount())
	} else {
		fmt.Fprintf(e.out, "\nPlan: %d line(s) will be submitted, %d blocked\n", preview.ReadyCount(), preview.Blocked())
	}

	return preview, nil
}
