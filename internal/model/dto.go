package model

import "time"

type CreateLoanRequest struct {
	UserID int64 `json:"userId" validate:"required,gt=0"`
	BookID int64 `json:"bookId" validate:"required,gt=0"`
}

// UpdateLoanRequest is a metadata correction on an open loan. It never
// moves the LOANED flag between books.
type UpdateLoanRequest struct {
	UserID *int64 `json:"userId" validate:"omitempty,gt=0"`
	BookID *int64 `json:"bookId" validate:"omitempty,gt=0"`
}

type CreateBookRequest struct {
	Title         string `json:"title" validate:"required"`
	Author        string `json:"author" validate:"required"`
	PublishedDate *Date  `json:"publishedDate"`
}

type UpdateBookRequest struct {
	Title         *string `json:"title"`
	Author        *string `json:"author"`
	PublishedDate *Date   `json:"publishedDate"`
}

type BookFilter struct {
	Author        string
	AvailableOnly bool
}

type CreateUserRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Name     *string `json:"name"`
	Password string  `json:"password" validate:"required,min=8"`
}

type UpdateUserRequest struct {
	Email    *string `json:"email" validate:"omitempty,email"`
	Name     *string `json:"name"`
	Password *string `json:"password" validate:"omitempty,min=8"`
}

// UserPatch is the store-level shape of a user update; the password, if
// present, is already hashed.
type UserPatch struct {
	Email        *string
	Name         *string
	PasswordHash *string
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type AuthRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Token string `json:"token"`
}

type LoanEventType string

const (
	LoanCreated  LoanEventType = "loan.created"
	LoanReturned LoanEventType = "loan.returned"
	LoanDeleted  LoanEventType = "loan.deleted"
)

type LoanEvent struct {
	EventID string        `json:"eventId"`
	Type    LoanEventType `json:"type"`
	LoanID  int64         `json:"loanId"`
	BookID  int64         `json:"bookId"`
	UserID  int64         `json:"userId"`
	At      time.Time     `json:"at"`
}
