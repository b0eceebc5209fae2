package recognizer

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("audio file not found")
	ErrDirectoryNotFound = errors.New("enrollment directory not found")
	ErrAudioRead         = errors.New("cannot read audio")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// AudioReadError wraps a failure to load a sample. It matches ErrAudioRead
// and whatever Err matches (ErrNotFound for a missing file).
type AudioReadError struct {
	Path string
	Err  error
}

func (e *AudioReadError) Error() string {
	return fmt.Sprintf("read audio %s: %v", e.Path, e.Err)
}

func (e *AudioReadError) Unwrap() error { return e.Err }

func (e *AudioReadError) Is(target error) bool {
	return target == ErrAudioRead
}

// DimensionMismatchError reports two embeddings of different length.
// Speaker is empty when the comparison did not involve an enrolled name.
type DimensionMismatchError struct {
	Speaker string
	Got     int
	Want    int
}

func (e *DimensionMismatchError) Error() string {
	if e.Speaker == "" {
		return fmt.Sprintf("embedding dimension mismatch: %d vs %d", e.Got, e.Want)
	}
	return fmt.Sprintf("embedding dimension mismatch for %s: %d vs %d", e.Speaker, e.Got, e.Want)
}

func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}

// ItemError is one failed file inside a batch operation.
type ItemError struct {
	Path string
	Err  error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}
