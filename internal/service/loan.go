package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/kitapce/lending-service/internal/errs"
	"github.com/kitapce/lending-service/internal/model"
	"github.com/kitapce/lending-service/internal/repository"
)

const loanEventsTopic = "loan-events"

// Events publishes domain events. Delivery is best-effort: a publish
// failure is logged and never fails the loan operation.
type Events interface {
	Enqueue(topic string, v any) error
}

// LoanService keeps a book's status flag and its loan records mutually
// consistent without a cross-entity transaction. Every multi-step
// operation is a fixed-order sequence of single-row conditional updates
// with a compensating write on partial failure; a failed compensation
// surfaces as errs.ErrInconsistent and is logged for reconciliation.
type LoanService struct {
	log    *zap.Logger
	loans  repository.LoanRepository
	books  repository.BookRepository
	users  repository.UserRepository
	events Events
}

func NewLoanService(
	loans repository.LoanRepository,
	books repository.BookRepository,
	users repository.UserRepository,
	events Events,
	log *zap.Logger,
) *LoanService {
	return &LoanService{
		log:    log,
		loans:  loans,
		books:  books,
		users:  users,
		events: events,
	}
}

// CreateLoan loans an available book to an existing user. The book is
// flipped to LOANED by compare-and-set before the loan row is written,
// so of two concurrent calls for the same book exactly one wins; the
// loser fails with errs.ErrBookUnavailable having changed nothing.
func (s *LoanService) CreateLoan(ctx context.Context, req model.CreateLoanRequest) (model.Loan, error) {
	if _, err := s.users.GetUser(ctx, req.UserID); err != nil {
		return model.Loan{}, err
	}
	book, err := s.books.GetBook(ctx, req.BookID)
	if err != nil {
		return model.Loan{}, err
	}
	if book.Status != model.BookAvailable {
		return model.Loan{}, errors.Wrapf(errs.ErrBookUnavailable, "book %d status %s", book.ID, book.Status)
	}

	applied, err := s.books.SetBookStatus(ctx, book.ID, model.BookAvailable, model.BookLoaned)
	if err != nil {
		return model.Loan{}, errors.Wrap(err, "set book status")
	}
	if !applied {
		// lost the race: the book was loaned between the read and the update
		return model.Loan{}, errors.Wrapf(errs.ErrBookUnavailable, "book %d", book.ID)
	}

	loan, err := s.loans.CreateLoan(ctx, req.UserID, req.BookID)
	if err != nil {
		// the book is marked LOANED with no loan to show for it; put it back
		return model.Loan{}, s.compensateBook(ctx, book.ID, 0,
			model.BookLoaned, model.BookAvailable, errors.Wrap(err, "create loan"))
	}

	s.publish(model.LoanCreated, loan)
	return loan, nil
}

// ReturnLoan closes an open loan and releases its book. A second return
// of the same loan fails with errs.ErrAlreadyReturned and performs no
// further book mutation.
func (s *LoanService) ReturnLoan(ctx context.Context, loanID int64) (model.Loan, error) {
	loan, err := s.loans.GetLoan(ctx, loanID)
	if err != nil {
		return model.Loan{}, err
	}
	if !loan.Open() {
		return model.Loan{}, errors.Wrapf(errs.ErrAlreadyReturned, "loan %d", loanID)
	}

	// book first: a closing loan implies the book was LOANED
	applied, err := s.books.SetBookStatus(ctx, loan.BookID, model.BookLoaned, model.BookAvailable)
	if err != nil {
		return model.Loan{}, errors.Wrap(err, "release book")
	}
	if !applied {
		// a concurrent return already released it; the end state is correct
		s.log.Warn("book already available on return",
			zap.Int64("bookId", loan.BookID), zap.Int64("loanId", loanID))
	}

	closed, err := s.loans.SetReturned(ctx, loanID)
	if err != nil {
		// the book was released but the loan is still open; take it back
		return model.Loan{}, s.compensateBook(ctx, loan.BookID, loanID,
			model.BookAvailable, model.BookLoaned, errors.Wrap(err, "mark returned"))
	}
	if !closed {
		// a racing call returned it between our read and the update
		return model.Loan{}, errors.Wrapf(errs.ErrAlreadyReturned, "loan %d", loanID)
	}

	returned, err := s.loans.GetLoan(ctx, loanID)
	if err != nil {
		return model.Loan{}, err
	}
	s.publish(model.LoanReturned, returned)
	return returned, nil
}

// UpdateLoan is a metadata correction on an open loan. It never touches
// the book status; reassigning a book is done by deleting the loan and
// creating a new one.
func (s *LoanService) UpdateLoan(ctx context.Context, id int64, req model.UpdateLoanRequest) (model.Loan, error) {
	loan, err := s.loans.GetLoan(ctx, id)
	if err != nil {
		return model.Loan{}, err
	}
	if !loan.Open() {
		return model.Loan{}, errors.Wrapf(errs.ErrLoanClosed, "loan %d", id)
	}

	if req.UserID != nil {
		if _, err := s.users.GetUser(ctx, *req.UserID); err != nil {
			return model.Loan{}, err
		}
	}
	if req.BookID != nil {
		if _, err := s.books.GetBook(ctx, *req.BookID); err != nil {
			return model.Loan{}, err
		}
	}

	return s.loans.UpdateLoan(ctx, id, req)
}

// DeleteLoan removes a loan record. An open loan releases its book
// first, so a failure leaves the loan in place rather than a book stuck
// LOANED with no record behind it.
func (s *LoanService) DeleteLoan(ctx context.Context, id int64) error {
	loan, err := s.loans.GetLoan(ctx, id)
	if err != nil {
		return err
	}

	if loan.Open() {
		applied, err := s.books.SetBookStatus(ctx, loan.BookID, model.BookLoaned, model.BookAvailable)
		if err != nil {
			return errors.Wrap(err, "release book")
		}
		if !applied {
			s.log.Warn("book already available on loan delete",
				zap.Int64("bookId", loan.BookID), zap.Int64("loanId", id))
		}
	}

	if err := s.loans.DeleteLoan(ctx, id); err != nil {
		if loan.Open() {
			return s.compensateBook(ctx, loan.BookID, id,
				model.BookAvailable, model.BookLoaned, errors.Wrap(err, "delete loan"))
		}
		return err
	}

	s.publish(model.LoanDeleted, loan)
	return nil
}

func (s *LoanService) GetLoan(ctx context.Context, id int64) (model.Loan, error) {
	return s.loans.GetLoan(ctx, id)
}

func (s *LoanService) ListLoans(ctx context.Context) ([]model.Loan, error) {
	return s.loans.ListLoans(ctx)
}

func (s *LoanService) ListActiveLoansByUser(ctx context.Context, userID int64) ([]model.Loan, error) {
	return s.loans.ListActiveLoansByUser(ctx, userID)
}

// compensateBook reverts a book status flip after a later step failed.
// When the revert itself fails the invariant may be violated; that is
// surfaced as an InconsistentStateError and logged with everything an
// operator needs to reconcile by hand.
func (s *LoanService) compensateBook(ctx context.Context, bookID, loanID int64, from, to model.BookStatus, cause error) error {
	transition := string(from) + "->" + string(to)

	reverted, err := s.books.SetBookStatus(ctx, bookID, from, to)
	if err == nil && reverted {
		return cause
	}
	if err == nil {
		err = errors.Errorf("revert %s not applied", transition)
	}

	inconsistent := &errs.InconsistentStateError{
		BookID:     bookID,
		LoanID:     loanID,
		Transition: transition,
		Cause:      cause,
	}
	s.log.Error("compensation failed, manual reconciliation required",
		zap.Int64("bookId", bookID),
		zap.Int64("loanId", loanID),
		zap.String("transition", transition),
		zap.NamedError("cause", cause),
		zap.NamedError("revertErr", err),
	)
	return inconsistent
}

func (s *LoanService) publish(eventType model.LoanEventType, loan model.Loan) {
	if s.events == nil {
		return
	}
	ev := model.LoanEvent{
		EventID: uuid.NewString(),
		Type:    eventType,
		LoanID:  loan.ID,
		BookID:  loan.BookID,
		UserID:  loan.UserID,
		At:      time.Now().UTC(),
	}
	if err := s.events.Enqueue(loanEventsTopic, ev); err != nil {
		s.log.Warn("publish loan event", zap.String("type", string(eventType)), zap.Error(err))
	}
}
