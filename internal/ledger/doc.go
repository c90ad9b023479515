// Package ledger remembers which events a station has already seen and which
// commands it has emitted itself.
//
// Deduplication is id based and bounded by an LRU cache. Suppression is kind
// based: a second (type, subtype) occurrence inside the window W is a
// continuation of the first, whatever its id.
package ledger
