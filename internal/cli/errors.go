package cli

import "errors"

var (
	errUnexpectedArgs = errors.New("unexpected arguments")
	errInvalidID      = errors.New("invalid id")
	errInvalidDate    = errors.New("invalid date")
	errURLRequired    = errors.New("url required")
	errIDRequired     = errors.New("at least one id required")
	errPageNotFound   = errors.New("page not found")
	errNothingToSet   = errors.New("nothing to update (use --url, --title or --date)")
	errFileRequired   = errors.New("file required")
	errNestedShell    = errors.New("already in a shell")
)
