package verification

import (
	"errors"
	"fmt"
)

// State machine violations. These are rejected with an explicit reason,
// never silently accepted.
var (
	ErrAlreadyActive     = errors.New("account already active")
	ErrMissingDocuments  = errors.New("not all required documents are verified")
	ErrMeetingRequired   = errors.New("meeting date required for medium and high risk applicants")
	ErrDocumentFinalized = errors.New("document decision is final")
	ErrInvalidDecision   = errors.New("invalid document decision")
	ErrUnauthorized      = errors.New("not authorized for this action")
)

// QualityError reports a failed quality gate check. The applicant must
// re-upload; the system does not retry.
type QualityError struct {
	Reason string
}

func (e *QualityError) Error() string {
	return fmt.Sprintf("document quality check failed: %s", e.Reason)
}

// ExtractionError reports an OCR or format failure. It does not change
// any document status; the document needs re-upload.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("document extraction failed: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }
