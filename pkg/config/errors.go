package config

import "errors"

// ErrInvalidValue indicates an environment variable or runtime.yaml field
// holds a value that cannot be parsed into its expected type.
var ErrInvalidValue = errors.New("invalid configuration value")
