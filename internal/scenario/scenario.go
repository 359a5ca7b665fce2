package scenario

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/roach88/statestore/internal/store"
)

// Scenario drives a counter store through a list of steps and checks the
// outcome.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name" toml:"name"`

	// Description explains what this scenario demonstrates.
	Description string `yaml:"description" toml:"description"`

	// Config is applied to the store before the first step.
	Config store.Config `yaml:"config,omitempty" toml:"config,omitempty"`

	// Initial is the state the store starts with.
	Initial Counter `yaml:"initial,omitempty" toml:"initial,omitempty"`

	// Schema optionally constrains every produced state.
	Schema *SchemaSpec `yaml:"schema,omitempty" toml:"schema,omitempty"`

	// Steps run in order. After each step the runner waits for the store
	// to settle unless the step sets nowait.
	Steps []Step `yaml:"steps" toml:"steps"`

	// Expect is checked against the final result.
	Expect *Expect `yaml:"expect,omitempty" toml:"expect,omitempty"`
}

// SchemaSpec is an inline CUE schema.
type SchemaSpec struct {
	Source string `yaml:"source" toml:"source"`
	Path   string `yaml:"path,omitempty" toml:"path,omitempty"`
}

// Step is one unit of work: a dispatched action, an atomic group of
// actions, or a store operation.
type Step struct {
	// Action is one of increment, set, fail, slow.
	Action string `yaml:"action,omitempty" toml:"action,omitempty"`

	// Name overrides the action name. Defaults to Action.
	Name string `yaml:"name,omitempty" toml:"name,omitempty"`

	By      int            `yaml:"by,omitempty" toml:"by,omitempty"`
	Value   int            `yaml:"value,omitempty" toml:"value,omitempty"`
	Label   string         `yaml:"label,omitempty" toml:"label,omitempty"`
	Message string         `yaml:"message,omitempty" toml:"message,omitempty"`
	Delay   store.Duration `yaml:"delay,omitempty" toml:"delay,omitempty"`

	Priority  int            `yaml:"priority,omitempty" toml:"priority,omitempty"`
	Timeout   store.Duration `yaml:"timeout,omitempty" toml:"timeout,omitempty"`
	OnTimeout *int           `yaml:"on_timeout,omitempty" toml:"on_timeout,omitempty"`
	Debounce  store.Duration `yaml:"debounce,omitempty" toml:"debounce,omitempty"`
	Throttle  store.Duration `yaml:"throttle,omitempty" toml:"throttle,omitempty"`
	Key       string         `yaml:"key,omitempty" toml:"key,omitempty"`

	// Repeat dispatches the action this many times in one submission.
	Repeat int `yaml:"repeat,omitempty" toml:"repeat,omitempty"`

	// Group dispatches its actions in one submission.
	Group []Step `yaml:"group,omitempty" toml:"group,omitempty"`

	// Op is one of undo, redo, revert, snapshot, restore.
	Op string `yaml:"op,omitempty" toml:"op,omitempty"`

	// Index is the history position for revert.
	Index int `yaml:"index,omitempty" toml:"index,omitempty"`

	// NoWait skips settling after this step.
	NoWait bool `yaml:"nowait,omitempty" toml:"nowait,omitempty"`
}

// Expect holds the checks applied after the last step. Unset fields are
// not checked.
type Expect struct {
	Count *int    `yaml:"count,omitempty" toml:"count,omitempty"`
	Label *string `yaml:"label,omitempty" toml:"label,omitempty"`

	// Order lists the names of committing actions in commit order.
	Order []string `yaml:"order,omitempty" toml:"order,omitempty"`

	// Failures lists failure codes in order.
	Failures []string `yaml:"failures,omitempty" toml:"failures,omitempty"`

	// Published lists the counts subscribers received.
	Published []int `yaml:"published,omitempty" toml:"published,omitempty"`
}

// Step operations.
const (
	OpUndo     = "undo"
	OpRedo     = "redo"
	OpRevert   = "revert"
	OpSnapshot = "snapshot"
	OpRestore  = "restore"
)

// Format selects the scenario file syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatOf picks the format from a file extension. Anything other than
// .toml is read as YAML.
func FormatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// Load reads and parses a scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return Parse(data, FormatOf(path))
}

// Parse decodes a scenario with strict field checking and validates it.
func Parse(data []byte, format Format) (*Scenario, error) {
	var sc Scenario
	switch format {
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&sc); err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true) // Reject unknown fields
		if err := dec.Decode(&sc); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown scenario format %q", format)
	}

	if err := validateScenario(&sc); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &sc, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if err := s.Config.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if s.Schema != nil && strings.TrimSpace(s.Schema.Source) == "" {
		return fmt.Errorf("schema: source is required")
	}

	for i, step := range s.Steps {
		if err := validateStep(fmt.Sprintf("steps[%d]", i), step, true); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(where string, st Step, top bool) error {
	set := 0
	if st.Action != "" {
		set++
	}
	if len(st.Group) > 0 {
		set++
	}
	if st.Op != "" {
		set++
	}
	if set != 1 {
		return fmt.Errorf("%s: exactly one of action, group or op is required", where)
	}

	switch {
	case st.Op != "":
		if !top {
			return fmt.Errorf("%s: op is not allowed inside a group", where)
		}
		switch st.Op {
		case OpUndo, OpRedo, OpSnapshot, OpRestore:
		case OpRevert:
			if st.Index < 0 {
				return fmt.Errorf("%s: index must be non-negative", where)
			}
		default:
			return fmt.Errorf("%s: unknown op %q", where, st.Op)
		}
	case len(st.Group) > 0:
		if !top {
			return fmt.Errorf("%s: groups cannot be nested", where)
		}
		for i, inner := range st.Group {
			if err := validateStep(fmt.Sprintf("%s.group[%d]", where, i), inner, false); err != nil {
				return err
			}
			if inner.NoWait {
				return fmt.Errorf("%s.group[%d]: nowait applies to the whole group", where, i)
			}
		}
	default:
		if !knownAction(st.Action) {
			return fmt.Errorf("%s: unknown action %q", where, st.Action)
		}
		if st.Repeat < 0 {
			return fmt.Errorf("%s: repeat must be non-negative", where)
		}
		if st.Delay < 0 || st.Timeout < 0 || st.Debounce < 0 || st.Throttle < 0 {
			return fmt.Errorf("%s: durations must be non-negative", where)
		}
	}
	return nil
}
