package scenario

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statestore/internal/journal"
	"github.com/roach88/statestore/internal/store"
	"github.com/roach88/statestore/internal/testutil"
)

func intPtr(v int) *int { return &v }

func TestRun_ExpectationsPass(t *testing.T) {
	sc := &Scenario{
		Name:        "pass",
		Description: "three increments",
		Steps: []Step{
			{Action: ActionIncrement, Repeat: 3},
		},
		Expect: &Expect{
			Count:     intPtr(3),
			Order:     []string{"increment", "increment", "increment"},
			Published: []int{1, 2, 3},
			Failures:  []string{},
		},
	}

	result, err := Run(context.Background(), sc, WithIDGenerator(testutil.NewFixedIDGenerator("store-1")))
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)
	assert.Equal(t, "store-1", result.StoreID)
	assert.Equal(t, Counter{Count: 3}, result.Final)
	assert.Equal(t, int64(3), result.Stats.Commits)
	assert.Equal(t, int64(3), result.Stats.Publishes)
}

func TestRun_ExpectationsFail(t *testing.T) {
	label := "never"
	sc := &Scenario{
		Name:        "fail",
		Description: "every expectation is wrong",
		Steps: []Step{
			{Action: ActionIncrement},
			{Action: ActionFail},
		},
		Expect: &Expect{
			Count:     intPtr(5),
			Label:     &label,
			Order:     []string{"set"},
			Failures:  []string{"TIMEOUT"},
			Published: []int{9},
		},
	}

	result, err := Run(context.Background(), sc)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 5)
	assert.Contains(t, result.Errors[0], "final count: expected 5, got 1")
	assert.Contains(t, result.Errors[1], "final label")
	assert.Contains(t, result.Errors[2], "commit order")
	assert.Contains(t, result.Errors[3], "failures: expected [TIMEOUT], got [TRANSITION_FAILED]")
	assert.Contains(t, result.Errors[4], "published")
}

func TestRun_FailureMessageAndCode(t *testing.T) {
	sc := &Scenario{
		Name:        "codes",
		Description: "failure events carry the state at failure",
		Initial:     Counter{Count: 10},
		Steps: []Step{
			{Action: ActionFail, Message: "boom"},
		},
	}

	result, err := Run(context.Background(), sc)
	require.NoError(t, err)

	require.Len(t, result.Trace, 1)
	assert.Equal(t, Event{Seq: 1, Type: EventFailure, Action: "fail", Count: 10, Code: "TRANSITION_FAILED"}, result.Trace[0])
	assert.Equal(t, int64(1), result.Stats.Failures)
}

func TestRun_NoWaitLetsHighPriorityQueueBehindRunningAction(t *testing.T) {
	sc := &Scenario{
		Name:        "nowait",
		Description: "the running action finishes first",
		Steps: []Step{
			{Action: ActionSlow, Name: "running", Delay: 0, NoWait: true},
			{Action: ActionSet, Name: "urgent", Value: 50, Priority: 9},
		},
	}

	result, err := Run(context.Background(), sc)
	require.NoError(t, err)
	assert.Equal(t, []string{"running", "urgent"}, result.Order())
	assert.Equal(t, 50, result.Final.Count)
}

func TestRun_HistoryOpsRequireHistory(t *testing.T) {
	sc := &Scenario{
		Name:        "no-history",
		Description: "undo without history",
		Steps: []Step{
			{Action: ActionIncrement},
			{Op: OpUndo},
		},
	}

	_, err := Run(context.Background(), sc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "steps[1]: undo")
	assert.Contains(t, err.Error(), "history")
}

func TestRun_RestoreWithoutSnapshot(t *testing.T) {
	sc := &Scenario{
		Name:        "restore",
		Description: "restore needs a snapshot",
		Steps:       []Step{{Op: OpRestore}},
	}

	_, err := Run(context.Background(), sc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "restore without a prior snapshot")
}

func TestRun_InvalidSchema(t *testing.T) {
	sc := &Scenario{
		Name:        "schema",
		Description: "broken schema source",
		Schema:      &SchemaSpec{Source: "#Counter: {", Path: "#Counter"},
		Steps:       []Step{{Action: ActionIncrement}},
	}

	_, err := Run(context.Background(), sc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema")
}

func TestRun_SettleTimeout(t *testing.T) {
	sc := &Scenario{
		Name:        "stuck",
		Description: "a slow action outlives the settle timeout",
		Steps: []Step{
			{Action: ActionSlow, Delay: store.Duration(time.Second)},
		},
	}

	_, err := Run(context.Background(), sc, WithSettleTimeout(20*time.Millisecond))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did not settle")
}

func TestRun_JournalRecordsCommitsAndFailures(t *testing.T) {
	j, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer j.Close()

	sc := &Scenario{
		Name:        "journaled",
		Description: "commits and failures reach the journal",
		Steps: []Step{
			{Action: ActionIncrement, Repeat: 2},
			{Action: ActionSet, Value: 2},
			{Action: ActionFail, Message: "boom"},
		},
	}

	result, err := Run(context.Background(), sc,
		WithJournal(j),
		WithIDGenerator(testutil.NewFixedIDGenerator("journaled-store")))
	require.NoError(t, err)

	ctx := context.Background()
	commits, err := j.Commits(ctx, result.StoreID)
	require.NoError(t, err)
	require.Len(t, commits, 2, "the unchanged set is not journaled")
	for i, c := range commits {
		assert.Equal(t, "increment", c.Action)
		assert.True(t, c.Verify())
		state, err := journal.Decode[Counter](c)
		require.NoError(t, err)
		assert.Equal(t, i+1, state.Count)
	}

	failures, err := j.Failures(ctx, result.StoreID)
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "fail", failures[0].Action)
	assert.Equal(t, "TRANSITION_FAILED", failures[0].Code)
	assert.Contains(t, failures[0].Error, "boom")
}

func TestRun_SchemaViolationNotJournaled(t *testing.T) {
	j, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer j.Close()

	sc := &Scenario{
		Name:        "violations",
		Description: "rejected states never reach the journal",
		Schema:      &SchemaSpec{Source: "#Counter: {count: int & <=5, label?: string}", Path: "#Counter"},
		Steps: []Step{
			{Action: ActionSet, Value: 5},
			{Action: ActionSet, Value: 6},
		},
	}

	result, err := Run(context.Background(), sc, WithJournal(j))
	require.NoError(t, err)
	assert.Equal(t, []string{"VALIDATION_FAILED"}, result.FailureCodes())
	assert.Equal(t, 5, result.Final.Count)

	commits, err := j.Commits(context.Background(), result.StoreID)
	require.NoError(t, err)
	assert.Len(t, commits, 1)
}
