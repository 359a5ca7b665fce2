package equality

// Comparator bundles the three equality strategies around one hash cache.
type Comparator struct {
	cache *Cache
}

// NewComparator creates a comparator backed by cache. A nil cache behaves
// like a disabled one.
func NewComparator(cache *Cache) *Comparator {
	if cache == nil {
		cache = NewCache(WithEnabled(false))
	}
	return &Comparator{cache: cache}
}

// Cache returns the comparator's hash cache.
func (c *Comparator) Cache() *Cache {
	return c.cache
}

// Equal is the package-level Equal; provided so a Comparator can stand in
// wherever an equality strategy is injected.
func (c *Comparator) Equal(a, b any) bool {
	return Equal(a, b)
}

// ShallowEqual compares by identity, then by cached hash, then by Equal.
func (c *Comparator) ShallowEqual(a, b any) bool {
	if identical(a, b) {
		return true
	}
	if c.cache.Enabled() {
		_, okA := identityOf(a)
		_, okB := identityOf(b)
		if okA && okB && hashable(a) && hashable(b) {
			if c.cache.hashFor(a) != c.cache.hashFor(b) {
				return false
			}
		}
	}
	return Equal(a, b)
}

// DeepEqual compares structurally. See the package DeepEqual.
func (c *Comparator) DeepEqual(a, b any) bool {
	return DeepEqual(a, b)
}

var defaultComparator = NewComparator(NewCache())

// Default returns the process-wide comparator.
func Default() *Comparator {
	return defaultComparator
}

// SetCacheEnabled is the global switch for the default hash cache.
// Memory-constrained deployments turn it off.
func SetCacheEnabled(enabled bool) {
	defaultComparator.cache.SetEnabled(enabled)
}

// CacheEnabled reports the state of the global switch.
func CacheEnabled() bool {
	return defaultComparator.cache.Enabled()
}

// ShallowEqual uses the default comparator.
func ShallowEqual(a, b any) bool {
	return defaultComparator.ShallowEqual(a, b)
}

// Typed adapts an any-based strategy to a typed equality function.
func Typed[S any](eq func(a, b any) bool) func(a, b S) bool {
	return func(a, b S) bool {
		return eq(a, b)
	}
}
