package domain

import "errors"

var (
	// ErrValidation marks bad or empty client input; surfaced immediately, never retried.
	ErrValidation = errors.New("invalid input")
	// ErrUpstream marks a failed model or database call (network, auth, quota).
	ErrUpstream = errors.New("upstream call failed")
	// ErrGenerationFormat marks a model reply that could not be parsed into the expected shape.
	ErrGenerationFormat = errors.New("unparseable generation output")
	// ErrGenerationInProgress is returned when a generation is requested while one is in flight.
	ErrGenerationInProgress = errors.New("generation already in progress")
	// ErrQuizNotFound indicates the quiz does not exist.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuizNotPublic indicates a non-owner tried to attempt an unpublished quiz.
	ErrQuizNotPublic = errors.New("quiz is not public")
	// ErrQuestionNotFound indicates an edit referenced a question ID absent from the draft.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrSubmissionNotFound indicates the submission does not exist.
	ErrSubmissionNotFound = errors.New("submission not found")
)
