// Package schema validates state values against CUE schemas.
//
//	s, err := schema.Compile(`#Counter: count: int & >=0`, "#Counter")
//	errs := s.Check(counter{Count: -1}) // ["count: invalid value -1 (out of bound >=0)"]
//
// Check results plug into action.Validated, middleware.Validate and
// store.WithValidator through Validator.
package schema

import (
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/statestore/internal/action"
)

// CompileError reports an invalid schema source.
type CompileError struct {
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// Schema is a compiled CUE constraint. cue.Context is not safe for
// concurrent use, so checks are serialized.
type Schema struct {
	mu  sync.Mutex
	ctx *cue.Context
	def cue.Value
}

// Compile compiles src and selects the value at path (for example
// "#Counter"). An empty path uses the whole file.
func Compile(src, path string) (*Schema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if path != "" {
		v = v.LookupPath(cue.ParsePath(path))
		if !v.Exists() {
			return nil, &CompileError{Message: fmt.Sprintf("schema has no value at %q", path)}
		}
		if err := v.Err(); err != nil {
			return nil, formatCUEError(err)
		}
	}
	return &Schema{ctx: ctx, def: v}, nil
}

// MustCompile is Compile that panics on error.
func MustCompile(src, path string) *Schema {
	s, err := Compile(src, path)
	if err != nil {
		panic(err)
	}
	return s
}

// Check returns one message per violation; empty means value conforms.
// Values are encoded as Go values, so json tags name the fields.
func (s *Schema) Check(value any) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.ctx.Encode(value)
	if err := v.Err(); err != nil {
		return messages(err)
	}
	if err := s.def.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return messages(err)
	}
	return nil
}

// Validator adapts s for typed states.
func Validator[S any](s *Schema) action.Validator[S] {
	return func(state S) []string {
		return s.Check(state)
	}
}

func messages(err error) []string {
	var out []string
	for _, e := range errors.Errors(err) {
		format, args := e.Msg()
		msg := fmt.Sprintf(format, args...)
		if path := strings.Join(e.Path(), "."); path != "" {
			msg = path + ": " + msg
		}
		out = append(out, msg)
	}
	if len(out) == 0 {
		out = []string{err.Error()}
	}
	return out
}

// formatCUEError keeps the first error with its position.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	ce := &CompileError{Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		ce.Pos = positions[0]
	}
	return ce
}
