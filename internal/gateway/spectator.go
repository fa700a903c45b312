package gateway

import "errors"

// ErrBadCredential is returned when a spectator credential is rejected.
var ErrBadCredential = errors.New("invalid spectator credential")

// SpectatorValidator checks a spectator's access credential. Validation
// is owned by the external license service; this interface is the seam.
type SpectatorValidator interface {
	Validate(code, credential string) error
}

// StaticValidator accepts a single shared key. An empty key accepts every
// credential, which is the development default.
type StaticValidator struct {
	Key string
}

func (v StaticValidator) Validate(code, credential string) error {
	if v.Key == "" {
		return nil
	}
	if credential != v.Key {
		return ErrBadCredential
	}
	return nil
}
