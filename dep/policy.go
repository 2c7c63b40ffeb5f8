package dep

// Config carries the fail-open knobs a cache resolves per dependency check.
type Config struct {
	// GlobalFailOpen, when set, overrides every type-specific flag for every
	// dependency kind. Unset means "defer to the type".
	GlobalFailOpen *bool

	// QueryFailOpen applies to query dependencies only: their checks touch
	// an external system and are the ones most likely to fail transiently.
	QueryFailOpen bool
}

// TypePolicy is implemented by dependency types that expose their own
// fail-open flag. Types without one fall through to the fail-closed default.
type TypePolicy interface {
	// TypeFailOpen returns (failOpen, true) when cfg carries a flag for this
	// type, (false, false) otherwise.
	TypeFailOpen(cfg Config) (failOpen, ok bool)
}

// ResolveFailOpen decides how a failed staleness check for d is treated.
// Precedence: global override, then the type's own flag, then fail closed.
// Fail closed means the entry is treated as stale (safety over
// availability); fail open means the failure is logged and evaluation moves
// on to the remaining dependencies.
func ResolveFailOpen(cfg Config, d Dependency) bool {
	if cfg.GlobalFailOpen != nil {
		return *cfg.GlobalFailOpen
	}
	if tp, ok := d.(TypePolicy); ok {
		if open, ok := tp.TypeFailOpen(cfg); ok {
			return open
		}
	}
	return false
}
