package vector

import (
	"errors"
	"fmt"
)

// ErrDuplicateID is returned when an entry id is already present, either in
// the store or earlier in the same batch.
var ErrDuplicateID = errors.New("duplicate entry id")

// IngestionError reports a failure to populate the index. Source is empty
// when the failure is not tied to a document.
type IngestionError struct {
	Source string
	Err    error
}

func (e *IngestionError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("ingestion failed: %v", e.Err)
	}
	return fmt.Sprintf("ingestion of %s failed: %v", e.Source, e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }
