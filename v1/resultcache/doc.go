// Package resultcache memoizes expensive, non-deterministic text-generation
// results in process memory.
//
// Entries are keyed by a digest of a caller-supplied raw string and bounded
// both in age (TTL since write) and in count (max size). Expiration is lazy:
// a stale entry is only discovered and removed when it is read. There is no
// background sweeper; memory held by stale but unread entries is reclaimed by
// capacity eviction on a later Set or by Clear.
//
// A ResultCache is meant to be constructed once by the owner of the process
// and handed to every component that needs memoization.
package resultcache
