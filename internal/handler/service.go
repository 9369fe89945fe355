package handler

import (
	"context"

	"github.com/kitapce/lending-service/internal/model"
	"github.com/kitapce/lending-service/internal/service"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

type LoanService interface {
	CreateLoan(ctx context.Context, req model.CreateLoanRequest) (model.Loan, error)
	ReturnLoan(ctx context.Context, loanID int64) (model.Loan, error)
	UpdateLoan(ctx context.Context, id int64, req model.UpdateLoanRequest) (model.Loan, error)
	DeleteLoan(ctx context.Context, id int64) error
	GetLoan(ctx context.Context, id int64) (model.Loan, error)
	ListLoans(ctx context.Context) ([]model.Loan, error)
	ListActiveLoansByUser(ctx context.Context, userID int64) ([]model.Loan, error)
}

type BookService interface {
	CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error)
	GetBook(ctx context.Context, id int64) (model.Book, error)
	ListBooks(ctx context.Context, filter model.BookFilter) ([]model.Book, error)
	UpdateBook(ctx context.Context, id int64, req model.UpdateBookRequest) (model.Book, error)
	DeleteBook(ctx context.Context, id int64) error
}

type UserService interface {
	CreateUser(ctx context.Context, req model.CreateUserRequest) (model.User, error)
	GetUser(ctx context.Context, id int64) (model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUser(ctx context.Context, id int64, req model.UpdateUserRequest) (model.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

type AuthService interface {
	Register(ctx context.Context, req model.RegisterRequest) (model.User, error)
	Login(ctx context.Context, req model.AuthRequest) (string, error)
	ParseToken(tokenStr string) (*service.Claims, error)
}

var _ LoanService = (*service.LoanService)(nil)
var _ BookService = (*service.BookService)(nil)
var _ UserService = (*service.UserService)(nil)
var _ AuthService = (*service.AuthService)(nil)
