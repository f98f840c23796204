package catalog

import (
	"errors"
)

// Sentinel error kinds for this package.
var (
	ErrCatalogWrite = errors.New("catalog write failed")
)
