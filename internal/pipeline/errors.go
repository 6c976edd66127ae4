package pipeline

import "errors"

var (
	// ErrQueueFull is returned when the job queue is at capacity. The
	// job is rejected outright; callers decide whether to retry.
	ErrQueueFull = errors.New("processing queue is full")

	// ErrJobNotFound is returned when a job ID is unknown
	ErrJobNotFound = errors.New("processing job not found")

	// ErrAdapterContractViolation is returned when the extraction
	// adapter reports a confidence outside [0,1]
	ErrAdapterContractViolation = errors.New("extraction adapter violated its contract")

	// ErrExtractionFailed wraps adapter failures during extraction
	ErrExtractionFailed = errors.New("document extraction failed")

	// ErrValidationFailed wraps failures while validating a receipt
	ErrValidationFailed = errors.New("receipt validation failed")
)
