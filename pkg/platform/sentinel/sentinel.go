package sentinel

import "errors"

// Infrastructure facts returned (optionally wrapped) by stores. Services
// translate them into domain errors or explicit absence values.
//
// Validation failures do not belong here; use pkg/domain-errors.
var (
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("unavailable")
)
