package batch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yurifrl/coa/pkg/models"
	"github.com/yurifrl/coa/pkg/remote"
)

var (
	// ErrNotVisible is returned when a toggle names a row the view does not show.
	ErrNotVisible = errors.New("row is not visible")
	// ErrNoLedger is returned by ledger operations while no account is open.
	ErrNoLedger = errors.New("no account ledger is open")
)

// Reason identifies which precondition a submission failed.
type Reason string

const (
	ReasonMissingToken    Reason = "missing-token"
	ReasonEmptySelection  Reason = "empty-selection"
	ReasonStandingBalance Reason = "standing-balance"
	ReasonNoLedger        Reason = "no-ledger"
	ReasonInFlight        Reason = "in-flight"
)

// PreconditionError is a local rejection; nothing was sent to the service.
type PreconditionError struct {
	Action Action
	Reason Reason
	// Accounts lists the offending accounts for ReasonStandingBalance.
	Accounts []models.AccountNumber
	Err      error
}

func (e *PreconditionError) Error() string {
	msg := fmt.Sprintf("%s rejected: %s", e.Action, e.Reason)
	if len(e.Accounts) > 0 {
		nums := make([]string, len(e.Accounts))
		for i, n := range e.Accounts {
			nums[i] = n.String()
		}
		msg += " (" + strings.Join(nums, ", ") + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PreconditionError) Unwrap() error {
	return e.Err
}

// UserMessage renders the text shown to the user after a submission of action
// ended with err.
func UserMessage(action Action, err error) string {
	if err == nil {
		return ""
	}

	var pre *PreconditionError
	if errors.As(err, &pre) {
		switch pre.Reason {
		case ReasonMissingToken:
			return "Your session is missing a security token. Please sign in again."
		case ReasonEmptySelection:
			if action == DeactivateAccounts {
				return "Select at least one account to deactivate."
			}
			return "Select at least one transaction to delete."
		case ReasonStandingBalance:
			return "You cannot deactivate an account with a standing balance."
		case ReasonNoLedger:
			return "Open an account ledger before deleting transactions."
		case ReasonInFlight:
			return "A previous request is still being processed."
		}
	}

	if errors.Is(err, remote.ErrForbidden) {
		if action == DeactivateAccounts {
			return "You do not have permission to deactivate these accounts."
		}
		return "You do not have permission to delete these transactions."
	}

	var svcErr *remote.ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Message
	}

	if action == DeactivateAccounts {
		return "An error occurred while deactivating accounts. Please try again."
	}
	return "An error occurred while deleting transactions. Please try again."
}

// LoadMessage renders the text shown when fetching accounts or a ledger fails.
func LoadMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrNotVisible) {
		return "That account is not in the chart of accounts."
	}
	if errors.Is(err, remote.ErrForbidden) {
		return "You do not have permission to access this resource."
	}
	var svcErr *remote.ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Message
	}
	return "An error has occurred. Please try again!"
}
