package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrMalformedCatalog = errors.New("malformed catalog")
)
