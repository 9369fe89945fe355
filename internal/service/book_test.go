package service_test

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kitapce/lending-service/internal/errs"
	"github.com/kitapce/lending-service/internal/model"
	"github.com/kitapce/lending-service/internal/service"
	repo_mocks "github.com/kitapce/lending-service/internal/repository/mocks"
)

func TestBookService_CreateBook(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	req := model.CreateBookRequest{Title: "The Hobbit", Author: "J.R.R. Tolkien"}

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		c := gomock.NewController(t)
		repo := repo_mocks.NewMockBookRepository(c)
		svc := service.NewBookService(repo, zap.NewExample().Named("test"))

		repo.EXPECT().ListBooks(ctx, model.BookFilter{Author: req.Author}).Return(nil, nil)
		repo.EXPECT().CreateBook(ctx, req).
			Return(model.Book{ID: 1, Title: req.Title, Author: req.Author, Status: model.BookAvailable}, nil)

		book, err := svc.CreateBook(ctx, req)
		require.NoError(t, err)
		require.Equal(t, model.BookAvailable, book.Status)
	})

	t.Run("duplicate title by same author", func(t *testing.T) {
		t.Parallel()
		c := gomock.NewController(t)
		repo := repo_mocks.NewMockBookRepository(c)
		svc := service.NewBookService(repo, zap.NewExample().Named("test"))

		repo.EXPECT().ListBooks(ctx, model.BookFilter{Author: req.Author}).
			Return([]model.Book{{ID: 9, Title: "the hobbit", Author: "j.r.r. tolkien"}}, nil)

		_, err := svc.CreateBook(ctx, req)
		require.ErrorIs(t, err, errs.ErrBookExists)
	})
}
