// Package notifier delivers relay messages to the configured chat.
//
// Delivery is synchronous: Notify returns once the transport accepted or
// rejected the message.
//
// # Dedup
//
// A text equal to the last successfully sent one is suppressed. Failed sends
// leave the last-sent text untouched so the next attempt goes out.
//
// # History
//
// Sent messages are kept in a small in-memory ring and, when storage is
// enabled, appended to the delivery journal.
package notifier
