// Package batch validates selections, submits batch commands to the
// accounting service and reconciles the local collections with the result.
package batch

// Action names a batch command.
type Action string

const (
	DeleteTransactions Action = "delete-transactions"
	DeactivateAccounts Action = "deactivate-accounts"
)

// Actions lists every batch command.
var Actions = []Action{DeleteTransactions, DeactivateAccounts}

// State is the position of one action in its submission lifecycle.
//
//	Idle -> Validating -> Rejected | Submitting
//	Submitting -> Succeeded | Denied | Failed
//
// Every terminal state returns to Idle once the submission call returns.
type State int

const (
	Idle State = iota
	Validating
	Submitting
	Succeeded
	Denied
	Rejected
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Validating:
		return "validating"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case Denied:
		return "denied"
	case Rejected:
		return "rejected"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText lets states appear by name in JSON and logs.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
