package trip

import (
	"errors"

	"maroonline/internal/modules/matching"
)

var (
	ErrNotFound   = matching.ErrNotFound
	ErrConflict   = matching.ErrConflict
	ErrBadRequest = errors.New("bad request")
)
