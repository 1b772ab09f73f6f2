package executors

import (
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/yurifrl/coa/pkg/batch"
	"github.com/yurifrl/coa/pkg/remote"
)

// Executor previews and applies batch plans. Previews read straight from
// the service; applying goes through the batch controller so every line is
// validated and reconciled like an interactive submission.
type Executor struct {
	logger *log.Logger
	svc    remote.Service
	ctrl   *batch.Controller
	out    io.Writer
}

func New(logger *log.Logger, svc remote.Service, ctrl *batch.Controller, out io.Writer) *Executor {
	if out == nil {
		out = os.Stdout
	}
	return &Executor{
		logger: logger,
		svc:    svc,
		ctrl:   ctrl,
		out:    out,
	}
}
