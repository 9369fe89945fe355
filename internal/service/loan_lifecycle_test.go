package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kitapce/lending-service/internal/errs"
	"github.com/kitapce/lending-service/internal/model"
	"github.com/kitapce/lending-service/internal/service"
)

// memStore backs all three repositories with maps guarded by one mutex,
// so the conditional updates are atomic exactly the way the real stores
// promise them to be.
type memStore struct {
	mu     sync.Mutex
	books  map[int64]model.Book
	loans  map[int64]model.Loan
	users  map[int64]model.User
	nextID int64
}

func newMemStore() *memStore {
	return &memStore{
		books:  map[int64]model.Book{},
		loans:  map[int64]model.Loan{},
		users:  map[int64]model.User{},
		nextID: 1,
	}
}

func (s *memStore) addBook(b model.Book) { s.books[b.ID] = b }
func (s *memStore) addUser(u model.User) { s.users[u.ID] = u }

func (s *memStore) GetBook(_ context.Context, id int64) (model.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[id]
	if !ok {
		return model.Book{}, errs.ErrBookNotFound
	}
	return b, nil
}

func (s *memStore) ListBooks(_ context.Context, _ model.BookFilter) ([]model.Book, error) {
	return nil, nil
}

func (s *memStore) CreateBook(_ context.Context, _ model.CreateBookRequest) (model.Book, error) {
	panic("not used by the loan lifecycle")
}

func (s *memStore) UpdateBook(_ context.Context, _ int64, _ model.UpdateBookRequest) (model.Book, error) {
	panic("not used by the loan lifecycle")
}

func (s *memStore) DeleteBook(_ context.Context, _ int64) error {
	panic("not used by the loan lifecycle")
}

func (s *memStore) SetBookStatus(_ context.Context, id int64, expected, next model.BookStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[id]
	if !ok || b.Status != expected {
		return false, nil
	}
	b.Status = next
	b.UpdatedAt = time.Now()
	s.books[id] = b
	return true, nil
}

func (s *memStore) GetLoan(_ context.Context, id int64) (model.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.loans[id]
	if !ok {
		return model.Loan{}, errs.ErrLoanNotFound
	}
	return l, nil
}

func (s *memStore) ListLoans(_ context.Context) ([]model.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	loans := make([]model.Loan, 0, len(s.loans))
	for _, l := range s.loans {
		loans = append(loans, l)
	}
	return loans, nil
}

func (s *memStore) ListActiveLoansByUser(_ context.Context, userID int64) ([]model.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var loans []model.Loan
	for _, l := range s.loans {
		if l.UserID == userID && l.Open() {
			loans = append(loans, l)
		}
	}
	return loans, nil
}

func (s *memStore) CreateLoan(_ context.Context, userID, bookID int64) (model.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := model.Loan{
		ID:       s.nextID,
		UserID:   userID,
		BookID:   bookID,
		LoanedAt: time.Now(),
	}
	s.nextID++
	s.loans[l.ID] = l
	return l, nil
}

func (s *memStore) SetReturned(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.loans[id]
	if !ok || !l.Open() {
		return false, nil
	}
	now := time.Now()
	l.ReturnedAt = &now
	l.UpdatedAt = now
	s.loans[id] = l
	return true, nil
}

func (s *memStore) UpdateLoan(_ context.Context, id int64, req model.UpdateLoanRequest) (model.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.loans[id]
	if !ok {
		return model.Loan{}, errs.ErrLoanNotFound
	}
	if req.UserID != nil {
		l.UserID = *req.UserID
	}
	if req.BookID != nil {
		l.BookID = *req.BookID
	}
	l.UpdatedAt = time.Now()
	s.loans[id] = l
	return l, nil
}

func (s *memStore) DeleteLoan(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.loans[id]; !ok {
		return errs.ErrLoanNotFound
	}
	delete(s.loans, id)
	return nil
}

func (s *memStore) GetUser(_ context.Context, id int64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, errs.ErrUserNotFound
	}
	return u, nil
}

func (s *memStore) GetUserByEmail(_ context.Context, _ string) (model.User, error) {
	panic("not used by the loan lifecycle")
}

func (s *memStore) ListUsers(_ context.Context) ([]model.User, error) {
	panic("not used by the loan lifecycle")
}

func (s *memStore) CreateUser(_ context.Context, _ model.User) (model.User, error) {
	panic("not used by the loan lifecycle")
}

func (s *memStore) UpdateUser(_ context.Context, _ int64, _ model.UserPatch) (model.User, error) {
	panic("not used by the loan lifecycle")
}

func (s *memStore) DeleteUser(_ context.Context, _ int64) error {
	panic("not used by the loan lifecycle")
}

// requireInvariant asserts that every book is LOANED exactly when an
// open loan references it.
func requireInvariant(t *testing.T, store *memStore) {
	t.Helper()
	store.mu.Lock()
	defer store.mu.Unlock()

	openByBook := map[int64]int{}
	for _, l := range store.loans {
		if l.Open() {
			openByBook[l.BookID]++
		}
	}
	for id, b := range store.books {
		open := openByBook[id]
		require.LessOrEqual(t, open, 1, "book %d has %d open loans", id, open)
		if b.Status == model.BookLoaned {
			require.Equal(t, 1, open, "book %d is LOANED without an open loan", id)
		} else {
			require.Equal(t, 0, open, "book %d is AVAILABLE with an open loan", id)
		}
	}
}

func newLifecycle(store *memStore) *service.LoanService {
	return service.NewLoanService(store, store, store, nil, zap.NewExample().Named("test"))
}

func TestLoanLifecycle_ConcurrentCreate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := newMemStore()
	store.addBook(model.Book{ID: 1, Title: "Dune", Author: "Frank Herbert", Status: model.BookAvailable})
	store.addUser(model.User{ID: 1})
	store.addUser(model.User{ID: 2})
	svc := newLifecycle(store)

	const attempts = 16
	var (
		mu       sync.Mutex
		won      int
		conflict int
	)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < attempts; i++ {
		userID := int64(i%2 + 1)
		g.Go(func() error {
			_, err := svc.CreateLoan(gctx, model.CreateLoanRequest{UserID: userID, BookID: 1})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				won++
			case errors.Is(err, errs.ErrBookUnavailable):
				conflict++
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	require.Equal(t, 1, won)
	require.Equal(t, attempts-1, conflict)
	requireInvariant(t, store)
}

func TestLoanLifecycle_RoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := newMemStore()
	store.addBook(model.Book{ID: 1, Title: "Dune", Author: "Frank Herbert", Status: model.BookAvailable})
	store.addUser(model.User{ID: 1})
	svc := newLifecycle(store)

	loan, err := svc.CreateLoan(ctx, model.CreateLoanRequest{UserID: 1, BookID: 1})
	require.NoError(t, err)
	require.Nil(t, loan.ReturnedAt)

	book, err := store.GetBook(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, model.BookLoaned, book.Status)
	requireInvariant(t, store)

	returned, err := svc.ReturnLoan(ctx, loan.ID)
	require.NoError(t, err)
	require.NotNil(t, returned.ReturnedAt)

	book, err = store.GetBook(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, model.BookAvailable, book.Status)
	requireInvariant(t, store)

	// strict policy: a second return is a conflict, not a no-op
	_, err = svc.ReturnLoan(ctx, loan.ID)
	require.ErrorIs(t, err, errs.ErrAlreadyReturned)
	requireInvariant(t, store)
}

func TestLoanLifecycle_DeleteOpenLoan(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := newMemStore()
	store.addBook(model.Book{ID: 1, Status: model.BookAvailable})
	store.addUser(model.User{ID: 1})
	svc := newLifecycle(store)

	loan, err := svc.CreateLoan(ctx, model.CreateLoanRequest{UserID: 1, BookID: 1})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteLoan(ctx, loan.ID))

	book, err := store.GetBook(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, model.BookAvailable, book.Status)
	_, err = svc.GetLoan(ctx, loan.ID)
	require.ErrorIs(t, err, errs.ErrLoanNotFound)
	requireInvariant(t, store)
}

func TestLoanLifecycle_DeleteClosedLoan(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := newMemStore()
	store.addBook(model.Book{ID: 1, Status: model.BookAvailable})
	store.addBook(model.Book{ID: 2, Status: model.BookLoaned})
	store.addUser(model.User{ID: 1})
	svc := newLifecycle(store)

	loan, err := svc.CreateLoan(ctx, model.CreateLoanRequest{UserID: 1, BookID: 1})
	require.NoError(t, err)
	_, err = svc.ReturnLoan(ctx, loan.ID)
	require.NoError(t, err)

	// make book 2 LOANED via its own open loan so the invariant holds
	_, err = store.CreateLoan(ctx, 1, 2)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteLoan(ctx, loan.ID))

	book, err := store.GetBook(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, model.BookLoaned, book.Status, "deleting a closed loan must not touch any book")
	requireInvariant(t, store)
}
