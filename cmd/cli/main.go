package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"

	"github.com/yurifrl/coa/pkg/batch"
	"github.com/yurifrl/coa/pkg/config"
	"github.com/yurifrl/coa/pkg/csv"
	"github.com/yurifrl/coa/pkg/executors"
	"github.com/yurifrl/coa/pkg/models"
	"github.com/yurifrl/coa/pkg/plan"
	"github.com/yurifrl/coa/pkg/remote"
	"github.com/yurifrl/coa/pkg/table"
)

var (
	cliFilters filters
	cfgFile    string

	sortKey   string
	csvOutput bool
	rawOutput bool
	account   string
)

// env is what every command needs once configuration is loaded.
type env struct {
	cfg    *config.Config
	logger *log.Logger
	svc    remote.Service
	ctrl   *batch.Controller
}

func setup(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Build(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "coa",
		Level:           cfg.LogLevel(),
	})
	svc := cfg.NewService(logger)
	return &env{
		cfg:    cfg,
		logger: logger,
		svc:    svc,
		ctrl:   batch.New(svc, cfg.TokenProvider(), logger),
	}, nil
}

var rootCmd = &cobra.Command{
	Use:           "coa",
	Short:         "Chart of accounts command-line interface",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Show help when no subcommand is provided
		return cmd.Help()
	},
}

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List the chart of accounts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		if err := e.ctrl.Load(cmd.Context(), nil); err != nil {
			return fmt.Errorf("%s: %w", batch.LoadMessage(err), err)
		}
		if sortKey != "" {
			if err := e.ctrl.SortAccounts(table.Key(sortKey)); err != nil {
				return fmt.Errorf("%w (keys: %v)", err, table.Accounts.Keys())
			}
		}

		rows := e.ctrl.Rows()
		switch {
		case rawOutput:
			_, err = pp.Println(rows)
			return err
		case csvOutput:
			data, err := csv.Accounts(rows, nil)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(data)
			return err
		}
		printAccounts(os.Stdout, rows)
		return nil
	},
}

var ledgerCmd = &cobra.Command{
	Use:   "ledger <account>",
	Short: "Show an account's ledger with running balances",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := models.ParseAccountNumber(args[0])
		if err != nil {
			return err
		}
		if err := cliFilters.validate(); err != nil {
			return err
		}
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		if err := e.ctrl.Load(cmd.Context(), &n); err != nil {
			return fmt.Errorf("%s: %w", batch.LoadMessage(err), err)
		}
		if sortKey != "" {
			if err := e.ctrl.SortTransactions(table.Key(sortKey)); err != nil {
				return fmt.Errorf("%w (keys: %v)", err, table.Transactions.Keys())
			}
		}

		acct, _ := e.ctrl.OpenAccount()
		entries, err := e.ctrl.Ledger()
		if err != nil {
			return err
		}
		keep := cliFilters.toFilterFunc()

		switch {
		case rawOutput:
			_, err = pp.Println(applyFilter(entries, keep))
			return err
		case csvOutput:
			data, err := csv.Ledger(entries, keep)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(data)
			return err
		}
		printLedger(os.Stdout, acct, applyFilter(entries, keep))
		return nil
	},
}

var deactivateCmd = &cobra.Command{
	Use:   "deactivate <account>...",
	Short: "Deactivate accounts with a zero balance",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		numbers := make([]models.AccountNumber, len(args))
		for i, arg := range args {
			n, err := models.ParseAccountNumber(arg)
			if err != nil {
				return err
			}
			numbers[i] = n
		}

		e, err := setup(cmd)
		if err != nil {
			return err
		}
		if err := e.ctrl.Load(cmd.Context(), nil); err != nil {
			return fmt.Errorf("%s: %w", batch.LoadMessage(err), err)
		}
		for _, n := range numbers {
			if err := e.ctrl.ToggleAccount(n, true); err != nil {
				return err
			}
		}

		out, err := e.ctrl.DeactivateAccounts(cmd.Context())
		if err != nil {
			return fmt.Errorf("%s: %w", batch.UserMessage(batch.DeactivateAccounts, err), err)
		}
		printOutcome(os.Stdout, out)
		return nil
	},
}

var deleteTransactionsCmd = &cobra.Command{
	Use:   "delete-transactions --account <number> <id>...",
	Short: "Delete transactions from an account's ledger",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := models.ParseAccountNumber(account)
		if err != nil {
			return err
		}
		ids := make([]models.TransactionID, len(args))
		for i, arg := range args {
			id, err := strconv.ParseInt(arg, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid transaction id %q", arg)
			}
			ids[i] = models.TransactionID(id)
		}

		e, err := setup(cmd)
		if err != nil {
			return err
		}
		if err := e.ctrl.Load(cmd.Context(), &n); err != nil {
			return fmt.Errorf("%s: %w", batch.LoadMessage(err), err)
		}
		for _, id := range ids {
			if err := e.ctrl.ToggleTransaction(id, true); err != nil {
				return err
			}
		}

		out, err := e.ctrl.DeleteTransactions(cmd.Context())
		if err != nil {
			return fmt.Errorf("%s: %w", batch.UserMessage(batch.DeleteTransactions, err), err)
		}
		printOutcome(os.Stdout, out)
		return nil
	},
}

var planCmd = &cobra.Command{
	Use:   "plan <plan_file>",
	Short: "Preview a YAML batch plan (dry-run)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		planPath := args[0]

		p, err := plan.Load(planPath)
		if err != nil {
			return err
		}
		e, err := setup(cmd)
		if err != nil {
			return err
		}

		fmt.Printf("Plan preview for %s\n", planPath)
		p.Print(os.Stdout)
		fmt.Println()
		exec := executors.New(e.logger, e.svc, e.ctrl, os.Stdout)
		_, err = exec.Plan(cmd.Context(), p)
		return err
	},
}

var applyCmd = &cobra.Command{
	Use:   "apply <plan_file>",
	Short: "Submit a YAML batch plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := plan.Load(args[0])
		if err != nil {
			return err
		}
		e, err := setup(cmd)
		if err != nil {
			return err
		}

		exec := executors.New(e.logger, e.svc, e.ctrl, os.Stdout)
		outcomes, err := exec.Apply(cmd.Context(), p)
		for _, out := range outcomes {
			if out.State == batch.Succeeded {
				printOutcome(os.Stdout, out)
			}
		}
		return err
	},
}

func init() {
	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "Config file (default is config.yaml)")
	pf.String("service-url", "", "Accounting service base URL")
	pf.String("backend", "", "Service backend: http or ynab")
	pf.Duration("timeout", 0, "Request timeout")
	pf.String("cookie", "", "Session cookie header sent with every request")
	pf.String("csrf-token", "", "Anti-forgery token for batch commands")
	pf.String("budget-id", "", "YNAB budget ID (ynab backend)")
	pf.String("log-level", "", "Log level (debug, info, warn, error)")

	// Output flags
	for _, c := range []*cobra.Command{accountsCmd, ledgerCmd} {
		c.Flags().StringVar(&sortKey, "sort", "", "Sort by column key (ascending)")
		c.Flags().BoolVar(&csvOutput, "csv", false, "Print CSV")
		c.Flags().BoolVar(&rawOutput, "raw", false, "Dump raw records")
	}

	// Filter flags (ledger only)
	ledgerCmd.Flags().StringVar(&cliFilters.startDate, "start", "", "Start date (YYYY/MM/DD)")
	ledgerCmd.Flags().StringVar(&cliFilters.endDate, "end", "", "End date (YYYY/MM/DD)")
	ledgerCmd.Flags().Float64Var(&cliFilters.minAmount, "min", 0, "Minimum amount")
	ledgerCmd.Flags().Float64Var(&cliFilters.maxAmount, "max", 0, "Maximum amount")
	ledgerCmd.Flags().StringVar(&cliFilters.description, "description", "", "Filter by description (case insensitive)")

	deleteTransactionsCmd.Flags().StringVar(&account, "account", "", "Account whose ledger holds the transactions")
	_ = deleteTransactionsCmd.MarkFlagRequired("account")

	rootCmd.AddCommand(accountsCmd, ledgerCmd, deactivateCmd, deleteTransactionsCmd, planCmd, applyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
