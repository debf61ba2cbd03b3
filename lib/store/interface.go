package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/ValentinKolb/xdb/lib/record"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// Predicate selects records during a scan. It receives a copy of the record.
type Predicate func(r *record.Record) bool

// IObjectStore is the interface for interacting with a schema-free object store.
// Read operations return the requested data, whether it was found and a *Error (nil on success).
// Absence is never an error: lookups report it through the loaded flag and
// id/key based mutations through their boolean result.
// Every record handed out is a copy; modifying it never affects the store.
type IObjectStore interface {
	// Create inserts a new record built from fields and returns its generated identifier.
	// Fails with RetCValidation if a value is outside the structured-value domain or a field
	// is named record.IDField, and with RetCDuplicateKey if the primary-key value is already taken.
	Create(fields ...record.Field) (id string, err error)
	// GetByID returns the record with the given identifier.
	GetByID(id string) (r *record.Record, loaded bool, err error)
	// GetByKey returns the record whose primary-key field equals key.
	// Fails with RetCInvalidOperation if the store has no primary key configured.
	GetByKey(key any) (r *record.Record, loaded bool, err error)
	// GetByProperty returns the first record whose field name equals value.
	// This is a linear scan over all records and does not use the index.
	GetByProperty(name string, value any) (r *record.Record, loaded bool, err error)
	// Filter returns all records matching pred (all records if pred is nil).
	// The order of the result is unspecified.
	Filter(pred Predicate) (rs []*record.Record, err error)
	// SetByID sets field to value on the record with the given identifier.
	// ok is false if the record does not exist.
	SetByID(id string, field string, value any) (ok bool, err error)
	// SetByKey sets field to value on the record whose primary-key field equals key.
	// ok is false if no record has that key.
	SetByKey(key any, field string, value any) (ok bool, err error)
	// RemoveByID removes the record with the given identifier.
	RemoveByID(id string) (ok bool, err error)
	// RemoveByKey removes the record whose primary-key field equals key.
	RemoveByKey(key any) (ok bool, err error)
	// Len returns the number of records.
	Len() (n int, err error)
	// Flush synchronously persists the current state.
	Flush() (err error)
	// Stop halts background persistence after one final save. The store can't be used afterward.
	Stop() (err error)
	// Info returns metadata about the store.
	Info() (info Info, err error)
}

// Info describes the state of a store.
// It is not guaranteed that all fields are filled in by every implementation.
type Info struct {
	Path          string    `json:"path"`
	PrimaryKey    string    `json:"primary_key"`
	Records       int       `json:"records"`
	Dirty         bool      `json:"dirty"`
	Flushes       uint64    `json:"flushes"`
	LastFlush     time.Time `json:"last_flush"`
	SnapshotBytes int       `json:"snapshot_bytes"`
	Codec         string    `json:"codec"`
	Compressor    string    `json:"compressor"`
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode),
// an error message and optionally the underlying cause.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
	Err  error   // The cause, may be nil.
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ObjectStoreError (code %s): %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("ObjectStoreError (code %s): %s", e.Code, e.Msg)
}

// Unwrap returns the cause of the error.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// WrapError creates a new Error with the given code and message wrapping err.
func WrapError(code RetCode, msg string, err error) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
		Err:  err,
	}
}

// IsCode reports whether err is (or wraps) an *Error with the given code.
func IsCode(err error, code RetCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Command executed successfully.
	RetCInternalError                       // 1: Command failed due to an internal error.
	RetCUnsupportedOperation                // 2: Operation is not supported by the store.
	RetCInvalidOperation                    // 3: Invalid operation.
	RetCValidation                          // 4: A value is outside the structured-value domain.
	RetCDuplicateKey                        // 5: The primary-key value is already taken.
	RetCPersistence                         // 6: The snapshot could not be read or written.
	RetCStopped                             // 7: The store was stopped.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCUnsupportedOperation:
		return "UnsupportedOperation"
	case RetCInvalidOperation:
		return "InvalidOperation"
	case RetCValidation:
		return "Validation"
	case RetCDuplicateKey:
		return "DuplicateKey"
	case RetCPersistence:
		return "Persistence"
	case RetCStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}
