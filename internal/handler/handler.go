package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/kitapce/lending-service/internal/errs"
	"github.com/kitapce/lending-service/pkg/validate"
)

type Handler struct {
	loanSvc LoanService
	bookSvc BookService
	userSvc UserService
	authSvc AuthService
	log     *zap.Logger
}

func New(loanSvc LoanService, bookSvc BookService, userSvc UserService, authSvc AuthService, log *zap.Logger) *Handler {
	return &Handler{
		loanSvc: loanSvc,
		bookSvc: bookSvc,
		userSvc: userSvc,
		authSvc: authSvc,
		log:     log,
	}
}

func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	const (
		baseRPS = 10
		apiRPS  = 100
	)
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowCredentials: true,
	}))

	base := e.Group("", newRateLimiterMW(baseRPS))
	base.GET("/manage/health", h.Health)

	e.Validator = validate.NewCustomValidator()
	api := e.Group("/api/v1",
		middleware.RequestLoggerWithConfig(requestLoggerConfig(h.log)),
		middleware.RequestID(),
		newRateLimiterMW(apiRPS),
	)

	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)

	api.GET("/users", h.ListUsers, h.jwtAuth)
	api.GET("/users/:id", h.GetUser, h.jwtAuth)
	api.GET("/users/:id/loans", h.ListActiveLoansByUser, h.jwtAuth)
	api.POST("/users", h.CreateUser, h.jwtAuth)
	api.PUT("/users/:id", h.UpdateUser, h.jwtAuth)
	api.DELETE("/users/:id", h.DeleteUser, h.jwtAuth)

	api.GET("/books", h.ListBooks)
	api.GET("/books/:id", h.GetBook)
	api.POST("/books", h.CreateBook, h.jwtAuth)
	api.PUT("/books/:id", h.UpdateBook, h.jwtAuth)
	api.DELETE("/books/:id", h.DeleteBook, h.jwtAuth)

	api.GET("/loans", h.ListLoans)
	api.GET("/loans/:id", h.GetLoan)
	api.POST("/loans", h.CreateLoan, h.jwtAuth)
	api.PUT("/loans/:id", h.UpdateLoan, h.jwtAuth)
	api.DELETE("/loans/:id", h.DeleteLoan, h.jwtAuth)
	api.PUT("/loans/return/:id", h.ReturnLoan, h.jwtAuth)

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// httpError maps domain errors onto status codes. An inconsistent state
// keeps its distinct message so operators can tell it from an ordinary
// conflict.
func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, errs.ErrBookNotFound),
		errors.Is(err, errs.ErrUserNotFound),
		errors.Is(err, errs.ErrLoanNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, errs.ErrBookUnavailable),
		errors.Is(err, errs.ErrAlreadyReturned),
		errors.Is(err, errs.ErrLoanClosed),
		errors.Is(err, errs.ErrEmailTaken),
		errors.Is(err, errs.ErrBookExists):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, errs.ErrInvalidCred):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
