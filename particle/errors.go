package particle

import (
	"errors"

	"github.com/notargets/gofluid/utils"
)

var (
	ErrLengthMismatch = errors.New("particle attribute lengths differ")
	ErrSystemType     = errors.New("unsupported particle system type")
	ErrCorrupt        = utils.ErrCorrupt
)
