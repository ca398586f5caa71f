package apierror

import (
	"fmt"
	"strings"
)

// Failure is one failed item of a batch operation.
type Failure struct {
	Index int
	ID    string
	Err   error
}

// BatchError reports the items of a batch that failed while others succeeded.
type BatchError struct {
	Service  string
	Op       string
	Total    int
	Failures []Failure
}

func (e *BatchError) Error() string {
	ids := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		ids = append(ids, f.ID)
	}
	return fmt.Sprintf("%s.%s: %s: %d of %d items failed [%s]",
		e.Service, e.Op, KindPartialBatchFailure, len(e.Failures), e.Total, strings.Join(ids, ", "))
}

// Is matches ErrPartialBatchFailure.
func (e *BatchError) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == KindPartialBatchFailure
}

// Unwrap exposes the per-item errors so errors.Is(err, ErrNotFound) works on a batch.
func (e *BatchError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// FailedIDs returns the ids of the failed items in input order.
func (e *BatchError) FailedIDs() []string {
	ids := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		ids = append(ids, f.ID)
	}
	return ids
}
