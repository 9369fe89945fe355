package service

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/kitapce/lending-service/internal/errs"
	"github.com/kitapce/lending-service/internal/model"
	"github.com/kitapce/lending-service/internal/repository"
)

// BookService manages the catalogue. Book status is off limits here:
// only the loan lifecycle flips it.
type BookService struct {
	log  *zap.Logger
	repo repository.BookRepository
}

func NewBookService(repo repository.BookRepository, log *zap.Logger) *BookService {
	return &BookService{
		log:  log,
		repo: repo,
	}
}

// CreateBook rejects a second book with the same title by the same
// author, case-insensitive. The unique index on books backs this up
// under concurrency.
func (s *BookService) CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error) {
	existing, err := s.repo.ListBooks(ctx, model.BookFilter{Author: req.Author})
	if err != nil {
		return model.Book{}, err
	}
	for _, b := range existing {
		if strings.EqualFold(b.Title, req.Title) && strings.EqualFold(b.Author, req.Author) {
			return model.Book{}, errors.Wrapf(errs.ErrBookExists, "%q by %s", req.Title, req.Author)
		}
	}
	return s.repo.CreateBook(ctx, req)
}

func (s *BookService) GetBook(ctx context.Context, id int64) (model.Book, error) {
	return s.repo.GetBook(ctx, id)
}

func (s *BookService) ListBooks(ctx context.Context, filter model.BookFilter) ([]model.Book, error) {
	return s.repo.ListBooks(ctx, filter)
}

func (s *BookService) UpdateBook(ctx context.Context, id int64, req model.UpdateBookRequest) (model.Book, error) {
	return s.repo.UpdateBook(ctx, id, req)
}

func (s *BookService) DeleteBook(ctx context.Context, id int64) error {
	return s.repo.DeleteBook(ctx, id)
}
