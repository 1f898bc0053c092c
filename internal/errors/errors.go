package appErrors

import "fmt"

// ErrSequenceNotFound is a sentinel error
type ErrSequenceNotFound struct {
	SequenceID int
}

func (e *ErrSequenceNotFound) Error() string {
	return fmt.Sprintf("sequence with ID %d not found", e.SequenceID)
}

// Helper constructor
func NewSequenceNotFound(id int) error {
	return &ErrSequenceNotFound{SequenceID: id}
}

// ErrRecipientNotFound is a sentinel error
type ErrRecipientNotFound struct {
	RecipientID int
}

func (e *ErrRecipientNotFound) Error() string {
	return fmt.Sprintf("recipient with ID %d not found", e.RecipientID)
}

func NewRecipientNotFound(id int) error {
	return &ErrRecipientNotFound{RecipientID: id}
}

// ErrSequenceNotActive rejects enrollment into draft or archived sequences.
type ErrSequenceNotActive struct {
	SequenceID int
	Status     string
}

func (e *ErrSequenceNotActive) Error() string {
	return fmt.Sprintf("sequence %d is not active (status: %s)", e.SequenceID, e.Status)
}

func NewSequenceNotActive(id int, status string) error {
	return &ErrSequenceNotActive{SequenceID: id, Status: status}
}

// ErrValidation is a synchronous input rejection; no partial state exists
// when it is returned.
type ErrValidation struct {
	Reason string
}

func (e *ErrValidation) Error() string {
	return e.Reason
}

func NewValidation(format string, args ...interface{}) error {
	return &ErrValidation{Reason: fmt.Sprintf(format, args...)}
}
