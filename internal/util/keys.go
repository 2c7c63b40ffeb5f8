package util

// Backend key layout. Everything depcache writes lives under one of these
// prefixes; the tag keyspace doubles as the version-counter store and must
// never collide with entry keys. External code must not write under them.

// EntryKey addresses a cache entry.
func EntryKey(ns, key string) string { return "entry:" + ns + ":" + key }

// TagKey addresses a tag's version counter.
func TagKey(ns, tag string) string { return "tag:" + ns + ":" + tag }

// LockName names the advisory lock guarding fallback increments for a tag.
func LockName(ns, tag string) string { return "lock:" + ns + ":tag:" + tag }
