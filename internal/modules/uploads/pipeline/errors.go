package pipeline

import (
	"errors"
	"fmt"
)

// Stage names a step of an upload.
type Stage string

const (
	StageValidation Stage = "validation"
	StageReserve    Stage = "reserve"
	StageUpload     Stage = "upload"
	StageCommit     Stage = "commit"
	StageComplete   Stage = "complete"
)

var (
	ErrNoFile         = errors.New("No file selected")
	ErrTypeNotAllowed = errors.New("File type is not allowed")
	ErrUploadInFlight = errors.New("an upload for this field is already in progress")
	ErrDuplicateField = errors.New("batch contains more than one file for the same field")
	ErrSuperseded     = errors.New("upload was superseded by a newer attempt")
)

// StageError wraps the failure of one upload stage.
type StageError struct {
	Stage Stage
	Key   string
	Err   error
}

func (e *StageError) Error() string {
	return e.Err.Error()
}

func (e *StageError) Unwrap() error { return e.Err }

// ValidationError is a local rejection; nothing was sent.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string { return e.Reason }

func (e *ValidationError) Unwrap() error { return e.Err }

// ReservationError is a failed reserve call.
type ReservationError struct {
	Err error
}

func (e *ReservationError) Error() string { return message(e.Err, "Failed to reserve upload") }

func (e *ReservationError) Unwrap() error { return e.Err }

// TransferError is a failed byte transfer to the upload target.
type TransferError struct {
	Status  int
	Message string
	Err     error
}

func (e *TransferError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("Upload failed (status %d)", e.Status)
	}
	return "Upload failed"
}

func (e *TransferError) Unwrap() error { return e.Err }

// CommitError is a failed completion call after an object-storage transfer.
type CommitError struct {
	Err error
}

func (e *CommitError) Error() string { return message(e.Err, "Failed to finalize upload") }

func (e *CommitError) Unwrap() error { return e.Err }

func message(err error, fallback string) string {
	if err == nil || err.Error() == "" {
		return fallback
	}
	return err.Error()
}

func stageErr(stage Stage, key string, err error) *StageError {
	return &StageError{Stage: stage, Key: key, Err: err}
}
