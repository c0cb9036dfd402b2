// Package practicum talks to the homework review status API.
//
// Client.Fetch returns the decoded JSON untouched, CheckResponse validates its
// shape and ParseStatus maps a record's status to the verdict message. Every
// failure is a sentinel error so callers branch with errors.Is.
package practicum
