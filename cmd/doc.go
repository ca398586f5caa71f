// Package cmd implements the workspacekit command line.
//
// Every service gets a command group (gmail, drive, calendar, tasks) whose
// filter flags map onto the fluent query builders. The persistent flags
// select the account, the time zone used for relative dates, batch
// concurrency, logging and an optional Prometheus endpoint that lives for
// the duration of the command.
package cmd
