// internal/domain/order/errors.go
package order

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Kind classifies an order failure by who can fix it
type Kind string

const (
	// KindValidation means the payload was rejected; retrying the same
	// payload cannot succeed.
	KindValidation Kind = "validation"
	// KindConflict means the order lost a race; a retry after refreshing
	// stock or prices may succeed.
	KindConflict Kind = "conflict"
	// KindPersistence means storage failed.
	KindPersistence Kind = "persistence"
)

const (
	MsgInvalidPayload     = "Invalid order payload"
	MsgPersistenceFailure = "Failed to create order in database"
	MsgOrderNumberTaken   = "Could not allocate an order number, please try again"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrStockExceeded     = errors.New("insufficient stock")
	ErrOrderNumberTaken  = errors.New("order number already taken")
	ErrDownloadsExceeded = errors.New("download limit reached")
	ErrNotDownloadable   = errors.New("item is not downloadable")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Error is the structured failure returned by order creation
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the same checkout may succeed if resubmitted
func (e *Error) Retryable() bool {
	return e.Kind == KindConflict
}

func validationError(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: MsgInvalidPayload, Fields: fields}
}

func conflictError(message string, err error) *Error {
	return &Error{Kind: KindConflict, Message: message, Err: err}
}

func persistenceError(err error) *Error {
	return &Error{Kind: KindPersistence, Message: MsgPersistenceFailure, Err: err}
}

// KindOf returns the kind of err, or KindPersistence for errors that did
// not come from this package.
func KindOf(err error) Kind {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Kind
	}
	return KindPersistence
}

// isUniqueViolation recognises unique-constraint failures from Postgres
// and from SQLite.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
