// Package hub is the channel adapter between the station and the hub.
//
// Messages are JSON envelopes {"type": name, "data": payload} carried over a
// WebSocket. The Client keeps the socket open, reconnecting on a fixed
// interval, and delivers connectivity changes and inbound messages on a
// single channel in arrival order.
package hub
