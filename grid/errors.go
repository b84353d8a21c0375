package grid

import (
	"errors"

	"github.com/notargets/gofluid/utils"
)

var (
	ErrShapeMismatch = errors.New("grids do not share the same shape")
	ErrGridType      = errors.New("unsupported grid type")
	ErrCorrupt       = utils.ErrCorrupt
)
