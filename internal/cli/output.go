package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/statestore/internal/scenario"
	"github.com/roach88/statestore/internal/store"
)

// Exit codes.
const (
	ExitSuccess      = 0 // scenarios passed, journal verified
	ExitFailure      = 1 // expectations, golden traces or fingerprints did not match
	ExitCommandError = 2 // bad arguments, missing paths, journal not openable
)

// Error codes reported in JSON responses.
const (
	ErrCodeJournal  = "E001" // journal could not be opened or read
	ErrCodeNotFound = "E002" // journal database does not exist
)

// ExitError carries the process exit code of a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error // optional cause
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError creates an ExitError around err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode maps err to a process exit code. Errors that carry no
// ExitError exit with ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// TextRenderer is implemented by payloads with a human-readable form.
type TextRenderer interface {
	RenderText(w io.Writer)
}

// Response is the JSON envelope of every command.
type Response struct {
	Status string         `json:"status"` // "ok" or "error"
	Data   any            `json:"data,omitempty"`
	Error  *ResponseError `json:"error,omitempty"`
}

// ResponseError describes a failed command.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   string `json:"cause,omitempty"`
}

// OutputFormatter writes command results as text or as a JSON envelope.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // traces in verbose mode; defaults to Writer
	Verbose   bool
}

func newOutputFormatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

func (f *OutputFormatter) json() bool { return f.Format == "json" }

// Success writes data. In text mode a TextRenderer renders itself; other
// values are printed with fmt.
func (f *OutputFormatter) Success(data any) error {
	if f.json() {
		return json.NewEncoder(f.Writer).Encode(Response{Status: "ok", Data: data})
	}
	if r, ok := data.(TextRenderer); ok {
		r.RenderText(f.Writer)
		return nil
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Fail reports err under code and returns it. Text mode writes nothing:
// main prints the returned error once.
func (f *OutputFormatter) Fail(code string, err *ExitError) error {
	if !f.json() {
		return err
	}
	resp := Response{
		Status: "error",
		Error:  &ResponseError{Code: code, Message: err.Message},
	}
	if err.Err != nil {
		resp.Error.Cause = err.Err.Error()
	}
	if encErr := json.NewEncoder(f.Writer).Encode(resp); encErr != nil {
		return errors.Join(err, encErr)
	}
	return err
}

// Trace writes a scenario's events to ErrWriter in verbose mode, keeping
// stdout clean for JSON.
func (f *OutputFormatter) Trace(name string, events []scenario.Event) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	for _, e := range events {
		fmt.Fprintf(w, "  [%s] #%d %s %s count=%d", name, e.Seq, e.Type, e.Action, e.Count)
		if e.Code != "" {
			fmt.Fprintf(w, " code=%s", e.Code)
		}
		fmt.Fprintln(w)
	}
}

// writeStats renders the counters a scenario reader cares about on one
// line.
func writeStats(w io.Writer, st store.Stats) {
	fmt.Fprintf(w, "commits=%d unchanged=%d publishes=%d failures=%d dropped=%d",
		st.Commits, st.Unchanged, st.Publishes, st.Failures, st.Dropped)
	if st.Throttled > 0 || st.Debounced > 0 {
		fmt.Fprintf(w, " throttled=%d debounced=%d", st.Throttled, st.Debounced)
	}
	if st.Cleared > 0 {
		fmt.Fprintf(w, " cleared=%d", st.Cleared)
	}
}
