package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/statestore/internal/journal"
)

// JournalOptions holds flags for the journal command.
type JournalOptions struct {
	*RootOptions
	Store  string // store ID to show in detail
	Verify bool   // recompute commit fingerprints
}

// StoreReport is the detailed journal view of one store.
type StoreReport struct {
	StoreID    string            `json:"store_id"`
	Commits    []journal.Commit  `json:"commits"`
	Failures   []journal.Failure `json:"failures"`
	Mismatched []int64           `json:"mismatched,omitempty"`

	verified bool // fingerprints were checked; text output reports them
}

// StoreList is the journal's store summary.
type StoreList []journal.StoreSummary

// Verification is the fingerprint check of every store in a journal.
type Verification []StoreReport

func (v Verification) mismatched() int {
	n := 0
	for _, r := range v {
		n += len(r.Mismatched)
	}
	return n
}

// NewJournalCommand creates the journal command.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "journal <db>",
		Short: "Inspect a commit journal",
		Long: `Inspect a SQLite commit journal written by "statestore run --journal".

Without --store, lists every store with its commit and failure counts.
With --store, prints that store's commits and failures in sequence order.
--verify recomputes each commit fingerprint from the stored state.

Exit codes:
  0 - Success
  1 - One or more fingerprints did not verify
  2 - Command error (database not found, store unknown, etc.)

Examples:
  statestore journal audit.db
  statestore journal audit.db --store 0190c3a1-... --verify
  statestore journal audit.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournal(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Store, "store", "", "store ID to show in detail")
	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "verify commit fingerprints")

	return cmd
}

func runJournal(cmd *cobra.Command, opts *JournalOptions, path string) error {
	out := newOutputFormatter(cmd, opts.RootOptions)

	// Opening would create an empty database.
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return out.Fail(ErrCodeNotFound, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path)))
	}

	j, err := journal.Open(path)
	if err != nil {
		return out.Fail(ErrCodeJournal, WrapExitError(ExitCommandError, "failed to open journal", err))
	}
	defer j.Close()

	ctx := cmd.Context()
	if opts.Store == "" {
		stores, err := j.Stores(ctx)
		if err != nil {
			return out.Fail(ErrCodeJournal, WrapExitError(ExitCommandError, "failed to list stores", err))
		}
		if !opts.Verify {
			list := make(StoreList, 0, len(stores))
			return out.Success(append(list, stores...))
		}

		v := make(Verification, 0, len(stores))
		for _, s := range stores {
			r, err := storeReport(cmd, j, s.StoreID)
			if err != nil {
				return out.Fail(ErrCodeJournal, err)
			}
			v = append(v, r)
		}
		if err := out.Success(v); err != nil {
			return err
		}
		if n := v.mismatched(); n > 0 {
			return NewExitError(ExitFailure, fmt.Sprintf("%d commits failed verification", n))
		}
		return nil
	}

	r, rerr := storeReport(cmd, j, opts.Store)
	if rerr != nil {
		return out.Fail(ErrCodeJournal, rerr)
	}
	if len(r.Commits) == 0 && len(r.Failures) == 0 {
		return out.Fail(ErrCodeNotFound, NewExitError(ExitCommandError, fmt.Sprintf("store not found in journal: %s", opts.Store)))
	}
	r.verified = opts.Verify
	if err := out.Success(r); err != nil {
		return err
	}
	if len(r.Mismatched) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d commits failed verification", len(r.Mismatched)))
	}
	return nil
}

func storeReport(cmd *cobra.Command, j *journal.Journal, storeID string) (StoreReport, *ExitError) {
	ctx := cmd.Context()
	commits, err := j.Commits(ctx, storeID)
	if err != nil {
		return StoreReport{}, WrapExitError(ExitCommandError, "failed to read commits", err)
	}
	failures, err := j.Failures(ctx, storeID)
	if err != nil {
		return StoreReport{}, WrapExitError(ExitCommandError, "failed to read failures", err)
	}

	r := StoreReport{StoreID: storeID, Commits: commits, Failures: failures}
	for _, c := range commits {
		if !c.Verify() {
			r.Mismatched = append(r.Mismatched, c.Seq)
		}
	}
	return r, nil
}

// RenderText prints one line per store.
func (l StoreList) RenderText(w io.Writer) {
	if len(l) == 0 {
		fmt.Fprintln(w, "Journal is empty.")
		return
	}
	for _, s := range l {
		fmt.Fprintf(w, "%s  commits=%d failures=%d\n", s.StoreID, s.Commits, s.Failures)
	}
}

// RenderText prints the store's commits and failures in sequence order,
// followed by the verification line when fingerprints were checked.
func (r StoreReport) RenderText(w io.Writer) {
	fmt.Fprintf(w, "Store %s\n", r.StoreID)
	fmt.Fprintf(w, "\nCommits (%d):\n", len(r.Commits))
	for _, c := range r.Commits {
		fmt.Fprintf(w, "  #%d %s %s %s\n", c.Seq, c.Action, shortFingerprint(c.Fingerprint), c.State)
	}
	fmt.Fprintf(w, "\nFailures (%d):\n", len(r.Failures))
	for _, f := range r.Failures {
		fmt.Fprintf(w, "  #%d %s %s %s\n", f.Seq, f.Action, f.Code, f.Error)
	}
	if r.verified {
		r.renderVerification(w)
	}
}

// RenderText prints one verification line per store.
func (v Verification) RenderText(w io.Writer) {
	if len(v) == 0 {
		fmt.Fprintln(w, "Journal is empty.")
		return
	}
	for _, r := range v {
		r.renderVerification(w)
	}
}

func (r StoreReport) renderVerification(w io.Writer) {
	if len(r.Mismatched) == 0 {
		fmt.Fprintf(w, "✓ %s: %d commits verified\n", r.StoreID, len(r.Commits))
		return
	}
	fmt.Fprintf(w, "✗ %s: fingerprint mismatch at seq %v\n", r.StoreID, r.Mismatched)
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
