package speakerdb

import (
	"errors"
	"fmt"
)

// ErrDuplicateName is matched by DuplicateNameError via errors.Is.
var ErrDuplicateName = errors.New("speaker already exists")

// DuplicateNameError reports a rename onto a name that is already enrolled.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("speaker %q already exists", e.Name)
}

func (e *DuplicateNameError) Is(target error) bool {
	return target == ErrDuplicateName
}
