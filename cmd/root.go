package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teemow/workspacekit/internal/google"
	"github.com/teemow/workspacekit/internal/instrumentation"
	"github.com/teemow/workspacekit/internal/logging"
	"github.com/teemow/workspacekit/internal/provider"
	"github.com/teemow/workspacekit/internal/server"
	"github.com/teemow/workspacekit/internal/workspace"
)

// version will be set by main
var version = "dev"

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// state carries the persistent flags and what PersistentPreRunE builds from
// them to every subcommand.
type state struct {
	account     string
	timezone    string
	concurrency int
	logLevel    string
	logFormat   string
	metricsAddr string
	output      string
	tokenDir    string

	cfg           workspace.Config
	logger        *slog.Logger
	instr         *instrumentation.Provider
	metricsServer *server.MetricsServer

	// client replaces the authenticated HTTP client. Used by tests.
	client provider.Client
}

// Execute is the main entry point for the CLI application
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	st := &state{}
	root := newRootCmd(st)
	err := root.ExecuteContext(ctx)
	st.shutdown()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workspacekit",
		Short: "Query and manage Gmail, Drive, Calendar and Tasks",
		Long: `workspacekit is a command line client for Google Workspace.

Messages, files, events and tasks are selected with filter flags that are
compiled to each service's native query. Relative dates such as --today or
--last-days are resolved in the configured time zone.

Authorize an account first:
  workspacekit auth login --account work`,
		SilenceUsage:      true,
		PersistentPreRunE: st.setup,
	}

	defaults := workspace.DefaultConfig()
	pf := cmd.PersistentFlags()
	pf.StringVar(&st.account, "account", defaults.Account, "Account whose stored token is used (env WORKSPACE_ACCOUNT)")
	pf.StringVar(&st.timezone, "timezone", defaults.TimeZone, "IANA time zone for relative dates and timestamps (env WORKSPACE_TIMEZONE)")
	pf.IntVar(&st.concurrency, "concurrency", defaults.Concurrency, "Concurrent requests for batch operations, at most 20 (env WORKSPACE_CONCURRENCY)")
	pf.StringVar(&st.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	pf.StringVar(&st.logFormat, "log-format", "text", "Log format: text or json")
	pf.StringVar(&st.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics and health probes on this address while the command runs")
	pf.StringVarP(&st.output, "output", "o", "text", "Output format: text or json")
	pf.StringVar(&st.tokenDir, "token-dir", os.Getenv("WORKSPACE_TOKEN_DIR"), "Directory holding OAuth tokens (default: user cache directory)")

	cmd.AddCommand(newAuthCmd(st))
	cmd.AddCommand(newGmailCmd(st))
	cmd.AddCommand(newDriveCmd(st))
	cmd.AddCommand(newCalendarCmd(st))
	cmd.AddCommand(newTasksCmd(st))
	cmd.AddCommand(newSummaryCmd(st))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func (st *state) setup(cmd *cobra.Command, _ []string) error {
	logger, err := logging.New(logging.Options{Level: st.logLevel, Format: st.logFormat, Writer: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	st.logger = logger
	slog.SetDefault(logger)

	if st.output != "text" && st.output != "json" {
		return fmt.Errorf("invalid output format %q, must be one of: text, json", st.output)
	}

	st.cfg = workspace.DefaultConfig()
	st.cfg.Account = st.account
	st.cfg.TimeZone = st.timezone
	st.cfg.Concurrency = st.concurrency
	if err := st.cfg.Validate(); err != nil {
		return err
	}

	return st.startInstrumentation(cmd.Context())
}

func (st *state) startInstrumentation(ctx context.Context) error {
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	instrConfig.Account = st.cfg.Account
	instrConfig.TimeZone = st.cfg.TimeZone
	instrConfig.Services = workspace.Services()
	if st.metricsAddr != "" {
		instrConfig.Enabled = true
		instrConfig.MetricsExporter = instrumentation.ExporterPrometheus
	}
	if err := instrConfig.Validate(); err != nil {
		return err
	}

	p, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	st.instr = p

	if st.metricsAddr == "" {
		return nil
	}
	st.metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    st.metricsAddr,
		InstrumentationProvider: p,
		Logger:                  st.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create metrics server: %w", err)
	}
	go func() {
		if err := st.metricsServer.Start(); err != nil {
			st.logger.Error("metrics server failed", logging.Err(err))
		}
	}()
	return nil
}

func (st *state) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer cancel()
	if st.metricsServer != nil {
		if err := st.metricsServer.Shutdown(ctx); err != nil {
			st.logger.Warn("metrics server shutdown failed", logging.Err(err))
		}
	}
	if st.instr != nil {
		if err := st.instr.Shutdown(ctx); err != nil && st.logger != nil {
			st.logger.Warn("instrumentation shutdown failed", logging.Err(err))
		}
	}
}

func (st *state) options() []workspace.Option {
	opts := []workspace.Option{workspace.WithLogger(st.logger)}
	if st.instr != nil && st.instr.Enabled() {
		opts = append(opts, workspace.WithMetrics(st.instr.Metrics()))
	}
	return opts
}

func googleCredentials() google.Credentials {
	return google.CredentialsFromEnv()
}

func (st *state) tokenStore() (*google.Store, error) {
	return google.NewStore(st.tokenDir, googleCredentials().Config())
}

// open builds the services for the selected account.
func (st *state) open(ctx context.Context) (*workspace.Workspace, error) {
	if st.client != nil {
		return workspace.New(st.client, st.cfg, st.options()...)
	}
	store, err := st.tokenStore()
	if err != nil {
		return nil, err
	}
	return workspace.Open(ctx, store, st.cfg, st.options()...)
}
