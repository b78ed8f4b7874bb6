package faults

import "errors"

// Classify maps an error to its Category. Unrecognized errors default to
// CategoryProject: fatal for the project that raised them, isolated from
// siblings in a monitor tick.
func Classify(err error) Category {
	switch {
	case err == nil:
		return ""
	case IsValidation(err):
		return CategoryValidation
	case IsTransient(err):
		return CategoryTransient
	case IsAuthorization(err):
		return CategoryAuth
	case IsCorruption(err):
		return CategoryCorruption
	default:
		return CategoryProject
	}
}

// IsValidation reports duplicate/unknown/invalid-state errors: local checks
// that are never retried.
func IsValidation(err error) bool {
	var dup *DuplicateProjectError
	var unk *UnknownProjectError
	var inv *InvalidStateError
	return errors.As(err, &dup) || errors.As(err, &unk) || errors.As(err, &inv)
}

// IsTransient reports whether err is a retryable service failure.
func IsTransient(err error) bool {
	var t *TransientServiceError
	return errors.As(err, &t)
}

// IsAuthorization reports whether err is a credential failure.
func IsAuthorization(err error) bool {
	var a *AuthorizationError
	return errors.As(err, &a)
}

// IsCorruption reports whether err is a manifest corruption.
func IsCorruption(err error) bool {
	var c *ManifestCorruptionError
	return errors.As(err, &c)
}

// IsConcurrentSync reports whether err is an advisory-lock contention.
func IsConcurrentSync(err error) bool {
	var c *ConcurrentSyncError
	return errors.As(err, &c)
}

// IsDirtyWorkingTree reports whether err is a dirty working tree.
func IsDirtyWorkingTree(err error) bool {
	var d *DirtyWorkingTreeError
	return errors.As(err, &d)
}
