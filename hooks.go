package cacheops

// Hooks are lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking; the cache calls them on hot
// paths. Wrap with hooks/async to decouple slow consumers.
type Hooks interface {
	// Lookup outcome for a cacheable invocation.
	Hit(cache, key string)
	Miss(cache, key string)

	// An entry was deleted by the cache on read.
	// reason ∈ {"corrupt", "decode"}
	SelfHeal(cache, key, reason string)

	// The store returned ok=false on a write (backpressure/admission).
	SetRejected(cache, key string)

	// A key (or, with all=true, the whole cache) was evicted.
	Evicted(cache, key string, all bool)

	// The selector committed to a backend. forced reports whether the
	// provider was forced by configuration rather than detected.
	ProviderSelected(provider string, forced bool)

	// A cache loader failed on a miss.
	LoadError(cache, key string, err error)
}

// NopHooks is the default no-op.
type NopHooks struct{}

func (NopHooks) Hit(string, string)              {}
func (NopHooks) Miss(string, string)             {}
func (NopHooks) SelfHeal(string, string, string) {}
func (NopHooks) SetRejected(string, string)      {}
func (NopHooks) Evicted(string, string, bool)    {}
func (NopHooks) ProviderSelected(string, bool)   {}
func (NopHooks) LoadError(string, string, error) {}
