package yatgupdates

import "errors"

var (
	ErrUnknownPeer       = errors.New("message has no resolvable peer")
	ErrNoSentMessage     = errors.New("sent message id not found in updates")
	ErrUnsupportedProxy  = errors.New("unsupported proxy scheme")
	ErrSessionNotDecoded = errors.New("failed to decrypt session")
)
