package executors

import (
	"context"
	"fmt"

	"github.com/yurifrl/coa/pkg/batch"
	"github.com/yurifrl/coa/pkg/plan"
)

// Apply submits the plan through the batch controller. Deletions go first,
// one ledger at a time, so balances they clear count when the deactivations
// are validated. The first failing line stops the run.
func (e *Executor) Apply(ctx context.Context, p *plan.Plan) ([]*batch.Outcome, error) {
	e.logger.Debug("applying plan")

	if err := e.ctrl.Load(ctx, nil); err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	defer e.ctrl.Leave()

	var outcomes []*batch.Outcome
	for _, b := range p.DeleteTransactions {
		if err := e.ctrl.Open(ctx, b.Account); err != nil {
			return outcomes, err
		}
		for _, id := range b.Transactions {
			if err := e.ctrl.ToggleTransaction(id, true); err != nil {
				return outcomes, fmt.Errorf("account %s: %w", b.Account, err)
			}
		}

		out, err := e.ctrl.DeleteTransactions(ctx)
		outcomes = append(outcomes, out)
		if err != nil {
			e.logger.Error(batch.UserMessage(batch.DeleteTransactions, err), "account", b.Account)
			return outcomes, err
		}
		e.report(out)
		e.ctrl.Close()
	}

	if len(p.Deactivate) == 0 {
		return outcomes, nil
	}
	for _, n := range p.Deactivate {
		if err := e.ctrl.ToggleAccount(n, true); err != nil {
			return outcomes, err
		}
	}
	out, err := e.ctrl.DeactivateAccounts(ctx)
	outcomes = append(outcomes, out)
	if err != nil {
		e.logger.Error(batch.UserMessage(batch.DeactivateAccounts, err))
		return outcomes, err
	}
	e.report(out)
	return outcomes, nil
}

func (e *Executor) report(out *batch.Outcome) {
	switch {
	case out.AccountReport != nil:
		e.logger.Info("deactivated accounts", "count", len(out.Accounts), "lingering", out.AccountReport.LingeringCount(), "message", out.Message)
	case out.TransactionReport != nil:
		e.logger.Info("deleted transactions", "count", len(out.Transactions), "lingering", out.TransactionReport.LingeringCount(), "message", out.Message)
	default:
		e.logger.Info("batch submitted", "action", out.Action, "message", out.Message)
	}
	if out.RefreshErr != nil {
		e.logger.Warn("could not refresh after submitting", "action", out.Action, "err", out.RefreshErr)
	}
}
