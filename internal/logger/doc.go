// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with a console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing and runtime level changes for config hot reload,
//   - convenience functions (Infof, WarnKV, etc.).
//
// The station engine, the hub channel and the signaling client all accept a
// context and extract the logger from it, so every line carries the component
// name that produced it.
package logger
