// Package storage journals outbound chat deliveries.
//
// The journal is an audit trail for operators. Relay state (poll cursor,
// last message) always starts empty on restart.
package storage
