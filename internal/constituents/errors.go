package constituents

import "errors"

var (
	ErrFetch                = errors.New("fetching constituent document")
	ErrNoTables             = errors.New("document contains no tables")
	ErrTableIndexOutOfRange = errors.New("table index out of range")
)
