package experiment

import (
	"errors"
	"fmt"
)

// ErrMissingNetwork is matched by every *MissingNetworkError.
var ErrMissingNetwork = errors.New("missing network")

// MissingNetworkError reports a vignette whose network name is not in the
// loaded set. The vignette is skipped and the run continues.
type MissingNetworkError struct {
	VignetteID string
	Network    string
}

func (e *MissingNetworkError) Error() string {
	return fmt.Sprintf("vignette %q: network %q not loaded", e.VignetteID, e.Network)
}

func (e *MissingNetworkError) Unwrap() error { return ErrMissingNetwork }
