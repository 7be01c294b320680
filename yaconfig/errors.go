package yaconfig

import "errors"

var (
	ErrConfigMustBeStruct = errors.New("config must be a struct")
	ErrValueIsRequired    = errors.New("value is required")
	ErrUnsupportedType    = errors.New("unsupported config field type")
	ErrOverflow           = errors.New("value overflows field type")
)
