// speccov reconciles a documented-scenario catalog against a test plan and
// reports specification coverage into an Allure-style results directory.
//
// Usage:
//
//	speccov run --collector doctree --doctree-dir docs/specs --items plan.ndjson
//	speccov run --collector static --catalog-file scenarios.yaml --items - --target 80
//	speccov shared provision
//	speccov summarize --shared-dir /tmp/speccov-shared-1234 --target 80
//
// The test plan is NDJSON, one item per line:
//
//	{"node_id":"tests/test_login.py::test_ok","scenarios":["auth/login"]}
//	{"node_id":"tests/test_sso.py::test_ok","scenarios":["auth/sso"],"deselected":true}
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dkoosis/speccov/internal/config"
	"github.com/dkoosis/speccov/internal/summary"
	"github.com/dkoosis/speccov/pkg/allure"
	"github.com/dkoosis/speccov/pkg/collector"
	"github.com/dkoosis/speccov/pkg/collector/doctree"
	"github.com/dkoosis/speccov/pkg/collector/static"
	"github.com/dkoosis/speccov/pkg/items"
	"github.com/dkoosis/speccov/pkg/matcher"
	"github.com/dkoosis/speccov/pkg/runner"
	"github.com/dkoosis/speccov/pkg/sharedstore"
)

// Set via ldflags at build time
var version = "dev"

var logger *log.Logger

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	logger = log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: false})

	registry := collector.NewRegistry()
	registry.Register("doctree", doctree.Registration())
	registry.Register("static", static.Registration())

	exitCode := runner.ExitOK

	rootCmd := &cobra.Command{
		Use:           "speccov",
		Short:         "Specification coverage for test runs",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	var noColor bool
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		newRunCmd(registry, &noColor, &exitCode),
		newSummarizeCmd(&noColor, &exitCode),
		newSharedCmd(&exitCode),
		newCollectorsCmd(registry),
	)

	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		logger.Error(err.Error())
		return runner.ExitUsageError
	}
	return exitCode
}

// themeFor picks the summary theme: mono when colors are off or stdout is
// not a terminal.
func themeFor(noColor bool) summary.Theme {
	if noColor || os.Getenv("NO_COLOR") != "" || !term.IsTerminal(int(os.Stdout.Fd())) {
		return summary.MonoTheme()
	}
	return summary.DefaultTheme()
}

func newRunCmd(registry *collector.Registry, noColor *bool, exitCode *int) *cobra.Command {
	var (
		flags     config.Flags
		itemsPath string
		marksPath string
		only      bool
		sharedDir string
		workerIdx int
		root      string
		cfgPath   string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Match a test plan against the scenario catalog and report coverage",
		Run: func(cmd *cobra.Command, args []string) {
			flags.TargetSet = cmd.Flags().Changed("target")
			*exitCode = runRun(cmd, registry, flags, runOptions{
				root:      root,
				cfgPath:   cfgPath,
				itemsPath: itemsPath,
				marksPath: marksPath,
				only:      only,
				sharedDir: sharedDir,
				workerIdx: workerIdx,
				noColor:   *noColor,
			})
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&root, "root", ".", "Project root for configuration and relative paths")
	fs.StringVar(&cfgPath, "config", "", "Config file path, overrides <root>/"+config.FileName)
	fs.StringVar(&flags.Collector, "collector", "", "Collector type (see 'speccov collectors')")
	fs.StringVar(&itemsPath, "items", "-", "NDJSON test plan file, '-' for stdin")
	fs.StringVar(&marksPath, "marks", "", "Write cross-reference marks for executing items to this NDJSON file")
	fs.IntVar(&flags.Target, "target", 0, "Minimum coverage percent; shortfalls abort after the summary")
	fs.StringVar(&flags.ResultsDir, "results-dir", "", "Directory for result entries")
	fs.StringVar(&flags.LinkName, "link-name", "", "Display name for scenario links")
	fs.StringSliceVar(&flags.Labels, "label", nil, "Custom label name, repeatable")
	fs.BoolVar(&only, "only", false, "Report-only mode: match and report without executing tests")
	fs.StringVar(&sharedDir, "shared-dir", "", "Shared store directory (distributed runs)")
	fs.IntVar(&workerIdx, "worker-index", 0, "Zero-based worker index (distributed runs)")

	// Collector options are registrable without instantiating a collector.
	for _, name := range registry.Names() {
		if reg, ok := registry.Lookup(name); ok {
			reg.RegisterFlags(fs)
		}
	}
	return cmd
}

type runOptions struct {
	root      string
	cfgPath   string
	itemsPath string
	marksPath string
	only      bool
	sharedDir string
	workerIdx int
	noColor   bool
}

func runRun(cmd *cobra.Command, registry *collector.Registry, flags config.Flags, opts runOptions) int {
	cfg, err := config.LoadFile(opts.root, opts.cfgPath)
	if err != nil {
		logger.Error(err.Error())
		return runner.ExitUsageError
	}
	cfg.MergeFlags(flags)
	if err := cfg.Validate(); err != nil {
		logger.Error(err.Error())
		return runner.ExitUsageError
	}

	settings := &collector.Settings{
		Root:    cfg.Root,
		Options: cfg.CollectorOptions,
		Lists:   cfg.CollectorLists,
	}
	reg, ok := registry.Lookup(cfg.Collector)
	if !ok {
		logger.Error("unexpected collector type", "type", cfg.Collector, "registered", registry.Names())
		return runner.ExitUsageError
	}
	reg.FlagOverrides(cmd.Flags(), settings)

	col, err := reg.New(settings)
	if err != nil {
		logger.Error(err.Error())
		return runner.ExitUsageError
	}

	reporter, err := allure.NewFileReporter(cfg.ResultsDir)
	if err != nil {
		logger.Error(err.Error())
		return runner.ExitUsageError
	}

	plan, malformed, err := readPlan(opts.itemsPath)
	if err != nil {
		logger.Error(err.Error())
		return runner.ExitUsageError
	}
	if malformed > 0 {
		logger.Warn("malformed test plan lines skipped", "count", malformed)
	}

	role := runner.Role{}
	var store *sharedstore.Store
	if opts.sharedDir != "" {
		store, err = sharedstore.Open(opts.sharedDir)
		if err != nil {
			logger.Error(err.Error())
			return runner.ExitUsageError
		}
		role = runner.Role{Distributed: true, WorkerIndex: opts.workerIdx}
	}

	m := matcher.New(matcher.Config{CustomLabels: cfg.Labels, LinkName: cfg.LinkName}, col, reporter)
	session := &runner.Session{
		Matcher: m,
		Store:   store,
		Role:    role,
		Target:  cfg.Target,
		Theme:   themeFor(opts.noColor),
		Out:     os.Stdout,
	}

	if err := session.StartSession(); err != nil {
		logger.Error(err.Error())
		return runner.ExitUsageError
	}
	session.ItemsResolved(plan.Selected)
	session.ItemsDeselected(plan.Deselected)

	if err := writeMarks(opts.marksPath, m.Marks()); err != nil {
		logger.Error(err.Error())
		return runner.ExitUsageError
	}

	code, err := session.FinishSession()
	if err != nil {
		logger.Error(err.Error())
	}
	if opts.only && code == runner.ExitOK {
		// Report-only runs executed nothing; signal that like an empty
		// test selection, after the summary.
		logger.Info("report-only mode, no tests executed")
		return runner.ExitNoTestsCollected
	}
	return code
}

// readPlan reads the NDJSON test plan from a file or stdin.
func readPlan(path string) (items.Plan, int, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return items.Plan{}, 0, fmt.Errorf("opening test plan: %w", err)
		}
		defer file.Close()
		r = file
	}
	return items.ParseStream(r)
}

// writeMarks dumps the per-item cross-reference metadata as NDJSON so the
// host framework can decorate its own results.
func writeMarks(path string, marks []matcher.ItemMark) error {
	if path == "" {
		return nil
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writing marks file: %w", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	for _, mark := range marks {
		if err := enc.Encode(mark); err != nil {
			return fmt.Errorf("writing marks file: %w", err)
		}
	}
	return nil
}

func newSummarizeCmd(noColor *bool, exitCode *int) *cobra.Command {
	var (
		sharedDir string
		target    int
		keep      bool
	)
	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Read the coverage number back from the shared store and print the final summary",
		Run: func(cmd *cobra.Command, args []string) {
			*exitCode = runSummarize(sharedDir, target, keep, *noColor)
		},
	}
	cmd.Flags().StringVar(&sharedDir, "shared-dir", "", "Shared store directory (required)")
	cmd.Flags().IntVar(&target, "target", 0, "Minimum coverage percent")
	cmd.Flags().BoolVar(&keep, "keep", false, "Keep the shared store directory instead of removing it")
	_ = cmd.MarkFlagRequired("shared-dir")
	return cmd
}

func runSummarize(sharedDir string, target int, keep, noColor bool) int {
	store, err := sharedstore.Open(sharedDir)
	if err != nil {
		logger.Error(err.Error())
		return runner.ExitUsageError
	}
	if !keep {
		defer func() {
			if err := store.Remove(); err != nil {
				logger.Warn("removing shared store", "err", err)
			}
		}()
	}

	session := &runner.Session{
		Store:  store,
		Role:   runner.Role{Distributed: true, Coordinator: true},
		Target: target,
		Theme:  themeFor(noColor),
		Out:    os.Stdout,
	}
	code, err := session.FinishSession()
	if err != nil {
		logger.Error(err.Error())
	}
	return code
}

func newSharedCmd(exitCode *int) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shared",
		Short: "Manage the cross-worker shared store",
	}

	provision := &cobra.Command{
		Use:   "provision",
		Short: "Create a shared store directory and print its path",
		Run: func(cmd *cobra.Command, args []string) {
			store, err := sharedstore.Provision()
			if err != nil {
				logger.Error(err.Error())
				*exitCode = runner.ExitUsageError
				return
			}
			fmt.Fprintln(cmd.OutOrStdout(), store.Dir())
		},
	}

	var dir string
	remove := &cobra.Command{
		Use:   "remove",
		Short: "Remove a shared store directory",
		Run: func(cmd *cobra.Command, args []string) {
			store, err := sharedstore.Open(dir)
			if err != nil {
				logger.Error(err.Error())
				*exitCode = runner.ExitUsageError
				return
			}
			if err := store.Remove(); err != nil {
				logger.Error(err.Error())
				*exitCode = runner.ExitUsageError
			}
		},
	}
	remove.Flags().StringVar(&dir, "shared-dir", "", "Shared store directory (required)")
	_ = remove.MarkFlagRequired("shared-dir")

	cmd.AddCommand(provision, remove)
	return cmd
}

func newCollectorsCmd(registry *collector.Registry) *cobra.Command {
	return &cobra.Command{
		Use:   "collectors",
		Short: "List registered collector types",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range registry.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
}
