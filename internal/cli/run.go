package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/statestore/internal/journal"
	"github.com/roach88/statestore/internal/scenario"
	"github.com/roach88/statestore/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Journal   string // journal database path (optional)
	GoldenDir string // golden directory override
	Update    bool   // regenerate golden files
	Filter    string // scenario filter (glob pattern on the file name)
}

// ScenarioReport is the outcome of one scenario file.
type ScenarioReport struct {
	Name    string            `json:"name"`
	File    string            `json:"file"`
	Pass    bool              `json:"pass"`
	StoreID string            `json:"store_id,omitempty"`
	Events  int               `json:"events"`
	Final   *scenario.Counter `json:"final,omitempty"`
	Stats   *store.Stats      `json:"stats,omitempty"`
	Errors  []string          `json:"errors,omitempty"`
}

// RunReport summarises a run command.
type RunReport struct {
	Scenarios []ScenarioReport `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario|dir>...",
		Short: "Run scenario files against a store",
		Long: `Run scenario files (YAML, or TOML with a .toml extension) against a fresh
counter store each, check their expectations and compare their traces
against golden files.

Directories are searched recursively for .yaml, .yml and .toml files.
A golden file <golden-dir>/<scenario name>.golden is compared when it
exists; --update writes it instead. The golden directory defaults to
"golden" next to each scenario file.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, journal not writable, etc.)

Examples:
  statestore run ./scenarios
  statestore run priority.yaml --journal audit.db
  statestore run ./scenarios --filter "hist*" --format json
  statestore run ./scenarios --update`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(cmd, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "record commits and failures in this SQLite database")
	cmd.Flags().StringVar(&opts.GoldenDir, "golden-dir", "", "directory holding golden traces")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runScenarios(cmd *cobra.Command, opts *RunOptions, args []string) error {
	files, err := findScenarioFiles(args, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	out := newOutputFormatter(cmd, opts.RootOptions)

	var runOpts []scenario.Option
	runOpts = append(runOpts, scenario.WithLogger(opts.logger()))
	if opts.Journal != "" {
		j, err := journal.Open(opts.Journal)
		if err != nil {
			return out.Fail(ErrCodeJournal, WrapExitError(ExitCommandError, "failed to open journal", err))
		}
		defer j.Close()
		runOpts = append(runOpts, scenario.WithJournal(j))
	}

	report := RunReport{
		Scenarios: make([]ScenarioReport, 0, len(files)),
		Total:     len(files),
	}
	for _, file := range files {
		r := runScenarioFile(cmd.Context(), file, opts, out, runOpts)
		report.Scenarios = append(report.Scenarios, r)
		if r.Pass {
			report.Passed++
		} else {
			report.Failed++
		}
	}

	if err := out.Success(report); err != nil {
		return err
	}

	if report.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenarios failed", report.Failed, report.Total))
	}
	return nil
}

func runScenarioFile(ctx context.Context, file string, opts *RunOptions, out *OutputFormatter, runOpts []scenario.Option) ScenarioReport {
	report := ScenarioReport{Name: filepath.Base(file), File: file}
	if ctx == nil {
		ctx = context.Background()
	}

	sc, err := scenario.Load(file)
	if err != nil {
		report.Errors = []string{fmt.Sprintf("failed to load scenario: %v", err)}
		return report
	}
	report.Name = sc.Name

	result, err := scenario.Run(ctx, sc, runOpts...)
	if err != nil {
		report.Errors = []string{fmt.Sprintf("execution failed: %v", err)}
		return report
	}
	report.StoreID = result.StoreID
	report.Events = len(result.Trace)
	report.Final = &result.Final
	report.Stats = &result.Stats
	report.Errors = append(report.Errors, result.Errors...)

	out.Trace(sc.Name, result.Trace)

	goldenPath := goldenFilePath(file, opts.GoldenDir, sc.Name)
	if err := checkGolden(goldenPath, sc.Name, result, opts.Update); err != nil {
		report.Errors = append(report.Errors, err.Error())
	}

	report.Pass = result.Pass && len(report.Errors) == 0
	return report
}

// RenderText prints one line per scenario, its stats, any errors and a
// summary.
func (r RunReport) RenderText(w io.Writer) {
	if r.Total == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return
	}
	for _, s := range r.Scenarios {
		s.RenderText(w)
	}
	fmt.Fprintf(w, "\n%d passed, %d failed, %d total\n", r.Passed, r.Failed, r.Total)
}

// RenderText prints a ✓ or ✗ line for the scenario. Scenarios that ran
// also print their store counters.
func (r ScenarioReport) RenderText(w io.Writer) {
	if r.Pass {
		fmt.Fprintf(w, "✓ %s (%d events, final count %d)\n", r.Name, r.Events, r.Final.Count)
	} else {
		fmt.Fprintf(w, "✗ %s\n", r.Name)
	}
	if r.Stats != nil {
		fmt.Fprint(w, "    ")
		writeStats(w, *r.Stats)
		fmt.Fprintln(w)
	}
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

// goldenFilePath returns the path to the golden file for a scenario.
func goldenFilePath(scenarioFile, goldenDir, name string) string {
	if goldenDir == "" {
		goldenDir = filepath.Join(filepath.Dir(scenarioFile), "golden")
	}
	return filepath.Join(goldenDir, name+".golden")
}

// checkGolden compares the trace with the golden file, or writes it when
// update is set. A missing golden file is not an error.
func checkGolden(path, name string, result *scenario.Result, update bool) error {
	data, err := scenario.MarshalTrace(name, result)
	if err != nil {
		return fmt.Errorf("failed to marshal trace: %w", err)
	}

	if update {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("failed to create golden directory: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write golden file: %w", err)
		}
		return nil
	}

	want, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read golden file: %w", err)
	}
	if !bytes.Equal(want, data) {
		return fmt.Errorf("trace does not match golden file %s (run with --update to regenerate)", path)
	}
	return nil
}

// findScenarioFiles expands files and directories into scenario files.
func findScenarioFiles(paths []string, filter string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("scenario path not found: %s", p)
		}

		if !info.IsDir() {
			ok, err := matchScenario(p, filter)
			if err != nil {
				return nil, err
			}
			if ok {
				files = append(files, p)
			}
			continue
		}

		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !isScenarioFile(path) {
				return nil
			}
			ok, err := matchScenario(path, filter)
			if err != nil {
				return err
			}
			if ok {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func isScenarioFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".toml":
		return true
	}
	return false
}

func matchScenario(path, filter string) (bool, error) {
	if filter == "" {
		return true, nil
	}
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	matched, err := filepath.Match(filter, name)
	if err != nil {
		return false, fmt.Errorf("invalid filter pattern: %w", err)
	}
	return matched, nil
}
