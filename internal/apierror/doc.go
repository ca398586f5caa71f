// Package apierror defines the error kinds returned by the workspace services.
//
// Every failure surfaced to callers is either an *Error carrying a Kind or a
// *BatchError for partially failed batch operations. Callers branch with
// errors.Is against the exported sentinels:
//
//	if errors.Is(err, apierror.ErrNotFound) {
//		// ...
//	}
//
// Provider responses are mapped by HTTP status (see FromStatus) after
// googleapi.CheckResponse has decoded the error body.
package apierror
