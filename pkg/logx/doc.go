// Package logx configures hwbot's structured logging.
//
// A small value-type wrapper (logx.Logger) sits on top of zerolog so that:
//   - Console output stays readable (short timestamp + short caller)
//   - File output is JSON lines
//   - Level and sinks can be swapped at runtime (config hot reload)
package logx
