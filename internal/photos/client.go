// Package photos abstracts the remote photo-hosting service behind a small
// capability interface so any concrete provider, or a test double, can be
// substituted.
package photos

import "context"

// Asset is one remote photo. ID is the provider's stable identifier and the
// unit of manifest membership; Filename is the name the bytes are persisted
// under locally.
type Asset struct {
	ID       string
	Filename string
	URL      string
}

// Client lists assets in a named remote album and fetches their bytes.
// Implementations classify failures: credential problems surface as
// faults.AuthorizationError, network/5xx as faults.TransientServiceError.
type Client interface {
	ListAssets(ctx context.Context, albumID string) ([]Asset, error)
	FetchAsset(ctx context.Context, asset Asset) ([]byte, error)
}
