// Package dedupe provides a time- and size-bounded cache of entity ids the
// gateway has already created, so replayed webhook deliveries can be answered
// without hitting the store. The store's uniqueness constraints stay
// authoritative; the cache is only a fast path.
package dedupe
