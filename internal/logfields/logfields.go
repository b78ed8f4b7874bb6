package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyProject    = "project"
	KeyBranch     = "branch"
	KeyState      = "state"
	KeyAlbum      = "album"
	KeyAsset      = "asset"
	KeyTickID     = "tick_id"
	KeyNewPhotos  = "new_photos"
	KeyTotal      = "total_photos"
	KeyAttempt    = "attempt"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Project(slug string) slog.Attr   { return slog.String(KeyProject, slug) }
func Branch(name string) slog.Attr    { return slog.String(KeyBranch, name) }
func State(s string) slog.Attr        { return slog.String(KeyState, s) }
func Album(id string) slog.Attr       { return slog.String(KeyAlbum, id) }
func Asset(id string) slog.Attr       { return slog.String(KeyAsset, id) }
func TickID(id string) slog.Attr      { return slog.String(KeyTickID, id) }
func NewPhotos(n int) slog.Attr       { return slog.Int(KeyNewPhotos, n) }
func TotalPhotos(n int) slog.Attr     { return slog.Int(KeyTotal, n) }
func Attempt(n int) slog.Attr         { return slog.Int(KeyAttempt, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
