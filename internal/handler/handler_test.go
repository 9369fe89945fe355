package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kitapce/lending-service/internal/errs"
	"github.com/kitapce/lending-service/internal/handler"
	"github.com/kitapce/lending-service/internal/model"
	"github.com/kitapce/lending-service/pkg/validate"

	service_mocks "github.com/kitapce/lending-service/internal/handler/mocks"
)

func TestHandler_CreateLoan(t *testing.T) {
	t.Parallel()
	type response struct {
		expectedCode int
		expectedBody string
	}
	type mockBehavior func(r *service_mocks.MockLoanService)

	var tests = []struct {
		name         string
		body         string
		mockBehavior mockBehavior
		response     response
	}{
		{
			name: "ok",
			body: `{"userId":1,"bookId":7}`,
			mockBehavior: func(r *service_mocks.MockLoanService) {
				r.EXPECT().
					CreateLoan(context.Background(), model.CreateLoanRequest{UserID: 1, BookID: 7}).
					Return(model.Loan{ID: 42, UserID: 1, BookID: 7}, nil)
			},
			response: response{
				expectedCode: http.StatusCreated,
				expectedBody: `{"id":42,"userId":1,"bookId":7,"loanedAt":"0001-01-01T00:00:00Z","returnedAt":null,"updatedAt":"0001-01-01T00:00:00Z"}`,
			},
		},
		{
			name:         "err. bookId required",
			body:         `{"userId":1}`,
			mockBehavior: func(r *service_mocks.MockLoanService) {},
			response: response{
				expectedCode: http.StatusBadRequest,
			},
		},
		{
			name: "err. book unavailable",
			body: `{"userId":1,"bookId":7}`,
			mockBehavior: func(r *service_mocks.MockLoanService) {
				r.EXPECT().
					CreateLoan(context.Background(), model.CreateLoanRequest{UserID: 1, BookID: 7}).
					Return(model.Loan{}, errs.ErrBookUnavailable)
			},
			response: response{
				expectedCode: http.StatusConflict,
				expectedBody: `{"message":"book is not available for loan"}`,
			},
		},
		{
			name: "err. user not found",
			body: `{"userId":1,"bookId":7}`,
			mockBehavior: func(r *service_mocks.MockLoanService) {
				r.EXPECT().
					CreateLoan(context.Background(), model.CreateLoanRequest{UserID: 1, BookID: 7}).
					Return(model.Loan{}, errs.ErrUserNotFound)
			},
			response: response{
				expectedCode: http.StatusNotFound,
				expectedBody: `{"message":"user not found"}`,
			},
		},
		{
			name: "err. internal",
			body: `{"userId":1,"bookId":7}`,
			mockBehavior: func(r *service_mocks.MockLoanService) {
				r.EXPECT().
					CreateLoan(context.Background(), model.CreateLoanRequest{UserID: 1, BookID: 7}).
					Return(model.Loan{}, errors.New("db internal"))
			},
			response: response{
				expectedCode: http.StatusInternalServerError,
				expectedBody: `{"message":"db internal"}`,
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockLoanService(c)
			log := zap.NewExample().Named("test")
			h := handler.New(svc, nil, nil, nil, log)

			e := echo.New()
			e.Validator = validate.NewCustomValidator()
			e.POST("/loans", h.CreateLoan)

			r := httptest.NewRequest(http.MethodPost, "/loans", strings.NewReader(tt.body))
			r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			w := httptest.NewRecorder()

			tt.mockBehavior(svc)
			e.ServeHTTP(w, r)

			require.Equal(t, tt.response.expectedCode, w.Code)
			if tt.response.expectedBody != "" {
				require.Equal(t, tt.response.expectedBody, strings.Trim(w.Body.String(), "\n"))
			}
		})
	}
}

func TestHandler_ReturnLoan(t *testing.T) {
	t.Parallel()
	returnedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	type response struct {
		expectedCode int
		expectedBody string
	}
	type mockBehavior func(r *service_mocks.MockLoanService)

	var tests = []struct {
		name         string
		target       string
		mockBehavior mockBehavior
		response     response
	}{
		{
			name:   "ok",
			target: "/loans/return/42",
			mockBehavior: func(r *service_mocks.MockLoanService) {
				r.EXPECT().
					ReturnLoan(context.Background(), int64(42)).
					Return(model.Loan{ID: 42, UserID: 1, BookID: 7, ReturnedAt: &returnedAt}, nil)
			},
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: `{"id":42,"userId":1,"bookId":7,"loanedAt":"0001-01-01T00:00:00Z","returnedAt":"2024-03-01T12:00:00Z","updatedAt":"0001-01-01T00:00:00Z"}`,
			},
		},
		{
			name:   "err. already returned",
			target: "/loans/return/42",
			mockBehavior: func(r *service_mocks.MockLoanService) {
				r.EXPECT().
					ReturnLoan(context.Background(), int64(42)).
					Return(model.Loan{}, errs.ErrAlreadyReturned)
			},
			response: response{
				expectedCode: http.StatusConflict,
				expectedBody: `{"message":"loan has already been returned"}`,
			},
		},
		{
			name:   "err. not found",
			target: "/loans/return/42",
			mockBehavior: func(r *service_mocks.MockLoanService) {
				r.EXPECT().
					ReturnLoan(context.Background(), int64(42)).
					Return(model.Loan{}, errs.ErrLoanNotFound)
			},
			response: response{
				expectedCode: http.StatusNotFound,
				expectedBody: `{"message":"loan not found"}`,
			},
		},
		{
			name:         "err. invalid id",
			target:       "/loans/return/abc",
			mockBehavior: func(r *service_mocks.MockLoanService) {},
			response: response{
				expectedCode: http.StatusBadRequest,
				expectedBody: `{"message":"invalid id"}`,
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockLoanService(c)
			log := zap.NewExample().Named("test")
			h := handler.New(svc, nil, nil, nil, log)

			e := echo.New()
			e.Validator = validate.NewCustomValidator()
			e.PUT("/loans/return/:id", h.ReturnLoan)

			r := httptest.NewRequest(http.MethodPut, tt.target, http.NoBody)
			r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			w := httptest.NewRecorder()

			tt.mockBehavior(svc)
			e.ServeHTTP(w, r)

			require.Equal(t, tt.response.expectedCode, w.Code)
			require.Equal(t, tt.response.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_ListBooks(t *testing.T) {
	t.Parallel()
	c := gomock.NewController(t)
	defer c.Finish()
	svc := service_mocks.NewMockBookService(c)
	log := zap.NewExample().Named("test")
	h := handler.New(nil, svc, nil, nil, log)

	svc.EXPECT().
		ListBooks(context.Background(), model.BookFilter{Author: "tolkien", AvailableOnly: true}).
		Return([]model.Book{
			{ID: 1, Title: "The Hobbit", Author: "J.R.R. Tolkien", Status: model.BookAvailable},
		}, nil)

	e := echo.New()
	e.Validator = validate.NewCustomValidator()
	e.GET("/books", h.ListBooks)

	r := httptest.NewRequest(http.MethodGet, "/books?author=tolkien&available=true", http.NoBody)
	w := httptest.NewRecorder()
	e.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t,
		`[{"id":1,"title":"The Hobbit","author":"J.R.R. Tolkien","publishedDate":null,"status":"AVAILABLE","createdAt":"0001-01-01T00:00:00Z","updatedAt":"0001-01-01T00:00:00Z"}]`,
		strings.Trim(w.Body.String(), "\n"))
}
