package store

import (
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/roach88/statestore/internal/equality"
	"github.com/roach88/statestore/internal/testutil"
)

func TestConfigFromYAML(t *testing.T) {
	src := `
batch_delay: 20ms
action_timeout: 1s
clear_queue_on_error: false
history_limit: 50
max_actions_per_cycle: 10
max_processing_time_ms: 8
`
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte(src), &cfg))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, Duration(20*time.Millisecond), cfg.BatchDelay)
	assert.Equal(t, Duration(time.Second), cfg.ActionTimeout)
	require.NotNil(t, cfg.ClearQueueOnError)
	assert.False(t, *cfg.ClearQueueOnError)

	s := newTestStore(t, Options[counter](cfg)...)
	assert.Equal(t, 20*time.Millisecond, s.BatchDelay())
	assert.Equal(t, 50, s.HistoryLimit())
	assert.False(t, s.clearQueueOnError)
	assert.Equal(t, 10, s.maxActionsPerCycle)
	assert.Equal(t, 8*time.Millisecond, s.maxProcessingTime)
	assert.Equal(t, time.Second, s.actionTimeout)
}

func TestConfigFromTOML(t *testing.T) {
	src := `
batch_delay = "5ms"
history_limit = 3
equality_cache = true
`
	var cfg Config
	require.NoError(t, toml.Unmarshal([]byte(src), &cfg))
	assert.Equal(t, Duration(5*time.Millisecond), cfg.BatchDelay)
	assert.Equal(t, 3, cfg.HistoryLimit)

	s := newTestStore(t, Options[counter](cfg)...)
	assert.True(t, s.clearQueueOnError)
	assert.Equal(t, DefaultMaxActionsPerCycle, s.maxActionsPerCycle)
	assert.True(t, equality.CacheEnabled())
}

func TestConfigEqualityCacheIsPerStore(t *testing.T) {
	off := false
	s := newTestStore(t, Options[counter](Config{EqualityCache: &off})...)
	assert.True(t, equality.CacheEnabled(), "process-wide switch untouched")

	values := testutil.Collect(s.Subscribe().C())
	s.Set(counter{Count: 1})
	s.Set(counter{Count: 1})
	settle(t, s)
	assert.Equal(t, int64(1), s.Stats().Commits)
	assert.Equal(t, int64(1), s.Stats().Unchanged)
	require.True(t, values.WaitFor(1, time.Second))
}

func TestConfigDefaultsToSimpleMode(t *testing.T) {
	s := newTestStore(t, Options[counter](Config{})...)
	assert.Zero(t, s.BatchDelay())
	assert.Zero(t, s.HistoryLimit())
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{BatchDelay: -1, HistoryLimit: -2, MaxActionsPerCycle: -1, MaxProcessingTimeMs: -1}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch_delay")
	assert.Contains(t, err.Error(), "history_limit")
	assert.Contains(t, err.Error(), "max_actions_per_cycle")
	assert.Contains(t, err.Error(), "max_processing_time_ms")
}

func TestDurationText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, Duration(90*time.Second), d)

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(text))

	assert.Error(t, d.UnmarshalText([]byte("soon")))
}

func TestClockAndIDs(t *testing.T) {
	c := NewClockAt(10)
	assert.Equal(t, int64(11), c.Next())
	assert.Equal(t, int64(11), c.Current())

	g := NewSequenceGenerator("s")
	assert.Equal(t, "s-1", g.Generate())
	assert.Equal(t, "s-2", g.Generate())

	assert.Len(t, UUIDv7Generator{}.Generate(), 36)
}
