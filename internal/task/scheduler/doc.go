// Package scheduler runs one named job on a cron or interval schedule.
//
// The job runs once right after Start, then on every trigger. Runs never
// overlap: a trigger that fires while the previous run is still going is
// skipped. Panics and errors are logged and never stop the schedule.
package scheduler
