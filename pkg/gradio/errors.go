package gradio

import (
	"errors"
	"fmt"
)

// ErrInvalidResponse is returned when a 2xx response does not carry the
// fields the protocol expects.
var ErrInvalidResponse = errors.New("invalid response")

// SubmissionFailedError is returned when the server rejects a job submission.
type SubmissionFailedError struct {
	StatusCode int
	Body       string
}

func (e *SubmissionFailedError) Error() string {
	return fmt.Sprintf("submission failed (%d)", e.StatusCode)
}

// RetrievalFailedError is returned when the server rejects a result request.
type RetrievalFailedError struct {
	StatusCode int
	Body       string
}

func (e *RetrievalFailedError) Error() string {
	return fmt.Sprintf("retrieval failed (%d)", e.StatusCode)
}

// JobFailedError is returned when the result stream ends with an error event.
type JobFailedError struct {
	EventID EventID
	Message string
}

func (e *JobFailedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("job %s failed", e.EventID)
	}

	return fmt.Sprintf("job %s failed: %s", e.EventID, e.Message)
}

// StatusCode extracts the HTTP status carried by a submission or retrieval
// error, or 0 when err carries none.
func StatusCode(err error) int {
	var subErr *SubmissionFailedError
	if errors.As(err, &subErr) {
		return subErr.StatusCode
	}

	var retErr *RetrievalFailedError
	if errors.As(err, &retErr) {
		return retErr.StatusCode
	}

	return 0
}
