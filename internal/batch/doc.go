// Package batch runs multi-item operations with bounded concurrency.
//
// Every batch operation in workspacekit follows one convention: the returned
// Results has exactly one entry per input item, in input order, each carrying
// either a value or the item's error. Results.Err turns the failed entries
// into a single *apierror.BatchError so callers can treat a partial failure
// as an error when they do not care about the per-item detail.
package batch
