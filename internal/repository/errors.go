package repository

import "errors"

// ErrUnknownReference is returned by Create when the document references an
// identity that does not exist.
var ErrUnknownReference = errors.New("referenced record does not exist")

// ErrDuplicateKey is returned by Create when a row with the same key exists.
var ErrDuplicateKey = errors.New("record already exists")
