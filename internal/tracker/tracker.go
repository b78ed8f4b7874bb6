// Package tracker abstracts the issue/pull-request provider consumed by the
// lifecycle core. The core only files requests and reacts to their outcome;
// merging itself stays external.
package tracker

import "context"

// Gateway is the capability interface for an issue tracker.
// Implementations classify failures: credential problems surface as
// faults.AuthorizationError, network/5xx as faults.TransientServiceError.
type Gateway interface {
	// CreateIssue opens a tracking issue and returns its number.
	CreateIssue(ctx context.Context, title, body string) (int, error)
	// OpenIntegrationRequest files a pull request for headBranch and returns
	// its identifier. Filing the request durably is what completes a project.
	OpenIntegrationRequest(ctx context.Context, title, body, headBranch string) (string, error)
	// Comment posts a status update to an issue or pull request.
	Comment(ctx context.Context, issueNumber int, text string) error
}
