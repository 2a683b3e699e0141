package pagestore

import "errors"

// ErrClosed reports an operation on a closed [Store].
var ErrClosed = errors.New("store closed")

// ErrUnknownCategory reports a Category value or name outside the fixed set.
var ErrUnknownCategory = errors.New("unknown page category")

// StorageError wraps every failure coming from the storage engine.
//
// It renders as "<op> <category>: <cause>", or "<op>: <cause>" for
// operations that are not tied to one category (open, migrate):
//
//	save history: database is locked
//
// Use [errors.As] to get at the fields, and [errors.Is] / [errors.As] on the
// unwrapped cause for sentinel or driver errors:
//
//	var sErr *pagestore.StorageError
//	if errors.As(err, &sErr) && sErr.Op == "save" { ... }
type StorageError struct {
	// Op is the store operation: open, migrate, save, load, remove, count, version, close.
	Op string

	// Category is meaningful only when HasCategory is true.
	Category    Category
	HasCategory bool

	// Err is the underlying cause.
	Err error
}

func (e *StorageError) Error() string {
	if e == nil {
		return ""
	}

	prefix := e.Op
	if e.HasCategory {
		prefix += " " + e.Category.String()
	}

	if e.Err == nil {
		return prefix
	}

	return prefix + ": " + e.Err.Error()
}

// Unwrap returns the underlying cause.
func (e *StorageError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.Err
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}

	return &StorageError{Op: op, Err: err}
}

func categoryErr(op string, c Category, err error) error {
	if err == nil {
		return nil
	}

	return &StorageError{Op: op, Category: c, HasCategory: true, Err: err}
}
