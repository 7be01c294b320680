package yabot

import "errors"

var (
	ErrAlreadyInitialized = errors.New("plugins are already initialized")
	ErrInitTimeout        = errors.New("plugin timed out in initialization")
	ErrPluginProvider     = errors.New("plugin provider failed")
)
