package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrBookNotFound = errors.New("book not found")
	ErrUserNotFound = errors.New("user not found")
	ErrLoanNotFound = errors.New("loan not found")

	ErrBookUnavailable = errors.New("book is not available for loan")
	ErrAlreadyReturned = errors.New("loan has already been returned")
	ErrLoanClosed      = errors.New("loan is closed and cannot be modified")

	ErrEmailTaken  = errors.New("email is already in use")
	ErrBookExists  = errors.New("book with this title and author already exists")
	ErrInvalidCred = errors.New("invalid credentials")

	// ErrInconsistent marks a failed compensation after a partial write:
	// the book/loan invariant may be violated and needs manual reconciliation.
	ErrInconsistent = errors.New("inconsistent book/loan state")
)

// InconsistentStateError carries the identifiers an operator needs to
// reconcile a book whose status no longer matches its loans.
type InconsistentStateError struct {
	BookID     int64
	LoanID     int64
	Transition string
	Cause      error
}

func (e *InconsistentStateError) Error() string {
	return fmt.Sprintf("inconsistent book/loan state: book=%d loan=%d transition=%s: %v",
		e.BookID, e.LoanID, e.Transition, e.Cause)
}

func (e *InconsistentStateError) Is(target error) bool {
	return target == ErrInconsistent
}

func (e *InconsistentStateError) Unwrap() error {
	return e.Cause
}
