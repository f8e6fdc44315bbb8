package api

import "errors"

var (
	ErrNotFound    = errors.New("no data found, symbol may be delisted")
	ErrRateLimited = errors.New("rate limited by API")
	ErrAuthFailed  = errors.New("authentication failed")
)
