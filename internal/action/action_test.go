package action

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	Count int
}

func (c counter) Validate() []string {
	if c.Count < 0 {
		return []string{"count must be non-negative"}
	}
	return nil
}

func inc(c counter) counter { return counter{Count: c.Count + 1} }

func TestKind(t *testing.T) {
	a := New("increment", Sync(inc))
	assert.Equal(t, "increment", a.Kind())
	assert.Equal(t, "increment", a.GateKey())

	anon := Action[counter]{Reduce: Sync(inc)}
	assert.NotEmpty(t, anon.Kind())
	assert.NotEqual(t, "anonymous", anon.Kind())

	assert.Equal(t, "anonymous", Action[counter]{}.Kind())
	assert.Equal(t, "search", a.WithKey("search").GateKey())
}

func TestWithMethodsCopy(t *testing.T) {
	base := New("increment", Sync(inc))
	p := base.WithPriority(10).WithDebounce(time.Second)

	assert.Equal(t, 0, base.Priority)
	assert.False(t, base.Gated())
	assert.Equal(t, 10, p.Priority)
	assert.True(t, p.Gated())
	assert.True(t, base.WithThrottle(time.Millisecond).Gated())
}

func TestReadyAndFail(t *testing.T) {
	ctx := context.Background()

	r := Sync(inc)(ctx, counter{})
	assert.False(t, r.IsPending())
	got, err := r.Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Count)

	boom := errors.New("boom")
	_, err = SyncE(func(counter) (counter, error) { return counter{}, boom })(ctx, counter{}).Await(ctx)
	assert.ErrorIs(t, err, boom)
}

func TestAsyncAwait(t *testing.T) {
	ctx := context.Background()
	r := Async(func(_ context.Context, c counter) (counter, error) {
		time.Sleep(5 * time.Millisecond)
		return inc(c), nil
	})(ctx, counter{Count: 4})

	assert.True(t, r.IsPending())
	got, err := r.Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Count)
}

func TestAwaitContextDone(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	r := Async(func(_ context.Context, c counter) (counter, error) {
		time.Sleep(200 * time.Millisecond)
		return c, nil
	})(ctx, counter{})

	_, err := r.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPendingRecoversPanic(t *testing.T) {
	ctx := context.Background()
	r := Async(func(context.Context, counter) (counter, error) {
		panic("kaboom")
	})(ctx, counter{})

	_, err := r.Await(ctx)
	require.Error(t, err)
	assert.True(t, IsPanicError(err))
	assert.Contains(t, err.Error(), "kaboom")
}

func TestSet(t *testing.T) {
	got, err := Set(counter{Count: 9})(context.Background(), counter{}).Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 9, got.Count)
}
