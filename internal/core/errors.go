package core

import "errors"

// Client-visible failures. Handlers map these to 400 responses with the
// error text as the reason.
var (
	ErrNoExtension = errors.New("file extension could not be determined")
	ErrNoDocument  = errors.New("no document found for user")
)
