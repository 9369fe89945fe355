package repository

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/kitapce/lending-service/internal/errs"
	"github.com/kitapce/lending-service/internal/model"
)

//go:generate go run github.com/golang/mock/mockgen -source=loan.go -destination=mocks/loan.go

type LoanRepository interface {
	GetLoan(ctx context.Context, id int64) (model.Loan, error)
	ListLoans(ctx context.Context) ([]model.Loan, error)
	ListActiveLoansByUser(ctx context.Context, userID int64) ([]model.Loan, error)
	CreateLoan(ctx context.Context, userID, bookID int64) (model.Loan, error)
	// SetReturned closes the loan only if it is still open. The returned
	// bool reports whether the write applied.
	SetReturned(ctx context.Context, id int64) (bool, error)
	UpdateLoan(ctx context.Context, id int64, req model.UpdateLoanRequest) (model.Loan, error)
	DeleteLoan(ctx context.Context, id int64) error
}

var loanColumns = []string{"id", "user_id", "book_id", "loaned_at", "returned_at", "updated_at"}

type loanRepository struct {
	db  *sqlx.DB
	log *zap.Logger
}

func NewLoanRepository(db *sqlx.DB, log *zap.Logger) (*loanRepository, error) {
	return &loanRepository{
		db:  db,
		log: log.Named("loan-repo"),
	}, nil
}

func (r *loanRepository) GetLoan(ctx context.Context, id int64) (model.Loan, error) {
	query, args, err := qb.Select(loanColumns...).
		From(loansTableName).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return model.Loan{}, err
	}

	var loan model.Loan
	if err := r.db.GetContext(ctx, &loan, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Loan{}, errs.ErrLoanNotFound
		}
		return model.Loan{}, err
	}
	return loan, nil
}

func (r *loanRepository) ListLoans(ctx context.Context) ([]model.Loan, error) {
	query, args, err := qb.Select(loanColumns...).
		From(loansTableName).
		OrderBy("loaned_at desc").
		ToSql()
	if err != nil {
		return nil, err
	}

	var loans []model.Loan
	if err := r.db.SelectContext(ctx, &loans, query, args...); err != nil {
		return nil, err
	}
	return loans, nil
}

func (r *loanRepository) ListActiveLoansByUser(ctx context.Context, userID int64) ([]model.Loan, error) {
	query, args, err := qb.Select(loanColumns...).
		From(loansTableName).
		Where(sq.Eq{"user_id": userID}).
		Where("returned_at is null").
		OrderBy("loaned_at desc").
		ToSql()
	if err != nil {
		return nil, err
	}

	var loans []model.Loan
	if err := r.db.SelectContext(ctx, &loans, query, args...); err != nil {
		return nil, err
	}
	return loans, nil
}

func (r *loanRepository) CreateLoan(ctx context.Context, userID, bookID int64) (model.Loan, error) {
	query, args, err := qb.Insert(loansTableName).
		Columns("user_id", "book_id").
		Values(userID, bookID).
		Suffix("returning *").
		ToSql()
	if err != nil {
		return model.Loan{}, err
	}

	var loan model.Loan
	if err := r.db.GetContext(ctx, &loan, query, args...); err != nil {
		if isUniqueViolation(err) {
			// the partial unique index on open loans backs up the
			// compare-and-set on the book status
			return model.Loan{}, errs.ErrBookUnavailable
		}
		r.log.Error("CreateLoan", zap.String("q", query), zap.Any("args", args))
		return model.Loan{}, err
	}
	return loan, nil
}

func (r *loanRepository) SetReturned(ctx context.Context, id int64) (bool, error) {
	q := `
update loans
	set returned_at = now(), updated_at = now()
where id = $1 and returned_at is null`

	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *loanRepository) UpdateLoan(ctx context.Context, id int64, req model.UpdateLoanRequest) (model.Loan, error) {
	q := qb.Update(loansTableName).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id}).
		Suffix("returning *")

	if req.UserID != nil {
		q = q.Set("user_id", *req.UserID)
	}
	if req.BookID != nil {
		q = q.Set("book_id", *req.BookID)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return model.Loan{}, err
	}

	var loan model.Loan
	if err := r.db.GetContext(ctx, &loan, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Loan{}, errs.ErrLoanNotFound
		}
		return model.Loan{}, err
	}
	return loan, nil
}

func (r *loanRepository) DeleteLoan(ctx context.Context, id int64) error {
	query, args, err := qb.Delete(loansTableName).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.ErrLoanNotFound
	}
	return nil
}
