package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrRefreshBusy    = errors.New("refresh already in progress")
	ErrNoSnapshot     = errors.New("no snapshot available yet")
	ErrInvalidRequest = errors.New("invalid request")
)
