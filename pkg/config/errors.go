package config

import "errors"

var (
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrInvalidPeerSpec = errors.New("invalid peer spec, want id=host:port[|public_host:port]")
	ErrInvalidEnv      = errors.New("invalid environment variable")
)
