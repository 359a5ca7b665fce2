package scenario

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/statestore/internal/canon"
)

// TraceSnapshot is the part of a result compared against golden files.
// It leaves out IDs and timing-dependent counters.
type TraceSnapshot struct {
	Scenario  string  `json:"scenario"`
	Trace     []Event `json:"trace"`
	Published []int   `json:"published"`
	Final     Counter `json:"final"`
}

// MarshalTrace renders the golden form of result: canonical JSON, indented
// two spaces, with a trailing newline.
func MarshalTrace(name string, result *Result) ([]byte, error) {
	snap := TraceSnapshot{
		Scenario:  name,
		Trace:     result.Trace,
		Published: result.Published,
		Final:     result.Final,
	}
	data, err := canon.Marshal(snap)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/scenario -update
func RunWithGolden(t *testing.T, sc *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), sc, opts...)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, sc.Name, result)
}

// AssertGolden compares result's trace against the golden file for name.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := MarshalTrace(name, result)
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
