// Package timer keeps the one-shot timers of the station keyed by kind.
//
// Each kind holds at most one pending timer bound to a tag. Starting a kind
// again replaces the previous timer. Expired timers are not run on their own
// goroutine: they are posted back to the owner as Fired values, and Handle
// tells the owner whether a Fired value is still current. A fire that raced
// with a cancel or a restart is stale and must be ignored.
package timer
