package yaenv

import "errors"

var (
	ErrAlreadyDisposing = errors.New("already disposing")
	ErrDisposeTimeout   = errors.New("dispose timed out")
)
