// Package engine is the session context of the station and its event loop.
//
// All session state (arm mode, ledger, liveness, roster, alert sessions) is
// owned by one goroutine. Hub messages, ticks, timer fires, camera changes and
// user commands are turned into Inputs; Handle maps an Input to a list of
// Effects (sends, journal lines, alert changes) which the loop then applies.
package engine
