package depcache

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The cache calls them on hot paths.
type Hooks interface {
	// An entry was deleted by the cache on read.
	// reason ∈ {"stale", "corrupt", "value_decode"}
	EntryEvicted(storageKey, reason string)

	// A dependency staleness check failed at read time; failOpen tells how
	// the failure was resolved (true: kept checking, false: treated stale).
	CheckFailed(kind string, failOpen bool, err error)

	// A dependency baseline could not be captured at write time and the
	// entry was written without it (baseline-failure tolerance on).
	BaselineDropped(kind string, err error)

	// The advisory lock for a fallback tag bump timed out.
	// That tag's invalidation is lost for the call.
	LockTimeout(tag string)

	// A tag's version counter was bumped to version.
	TagInvalidated(tag string, version uint64)

	// Store returned ok=false on Set (backpressure/eviction).
	StoreSetRejected(storageKey string, bulk bool)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) EntryEvicted(string, string)      {}
func (NopHooks) CheckFailed(string, bool, error)  {}
func (NopHooks) BaselineDropped(string, error)    {}
func (NopHooks) LockTimeout(string)               {}
func (NopHooks) TagInvalidated(string, uint64)    {}
func (NopHooks) StoreSetRejected(string, bool)    {}
