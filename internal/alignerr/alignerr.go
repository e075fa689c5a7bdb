// Package alignerr defines the alignment pipeline's error taxonomy (see
// spec §7). Per-segment failures are never represented here — they are
// recovered locally and attached to the segment (see align.SegmentOutput);
// only run-fatal conditions get a Kind.
package alignerr

import "fmt"

// Kind classifies a run-fatal error.
type Kind string

const (
	// KindAnchorFailed means the n-gram vote returned (0, 0).
	KindAnchorFailed Kind = "anchor_failed"
	// KindReferenceUnavailable means a chapter reference could not be
	// built (the phonemiser or the chapter data was unreachable).
	KindReferenceUnavailable Kind = "reference_unavailable"
	// KindAcousticBackend means the VAD or ASR backend reported failure.
	KindAcousticBackend Kind = "acoustic_backend"
	// KindDataCorruption means a reference data file failed to parse or
	// round-trip.
	KindDataCorruption Kind = "data_corruption"
	// KindCancelled means cooperative cancellation was observed between
	// segments.
	KindCancelled Kind = "cancelled"
)

// Error is a run-fatal alignment error. NoSpeech and PerSegmentFailure
// are deliberately not Kinds: NoSpeech is recovered locally into an empty
// report with a warning, and PerSegmentFailure is surfaced as a segment
// field, never as an Error (see spec §7).
type Error struct {
	Kind   Kind
	Path   string // set for KindDataCorruption
	Reason string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Path != "":
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Path, e.Reason)
	case e.Reason != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// AnchorFailed reports that global n-gram voting could not place the
// recitation in any surah.
func AnchorFailed(reason string) *Error {
	return &Error{Kind: KindAnchorFailed, Reason: reason}
}

// ReferenceUnavailable reports that a chapter reference could not be
// built, wrapping the underlying phonemiser/loader error.
func ReferenceUnavailable(surah int, err error) *Error {
	return &Error{Kind: KindReferenceUnavailable, Reason: fmt.Sprintf("surah %d", surah), Err: err}
}

// AcousticBackend reports a VAD/ASR backend failure, optionally carrying
// a sub-kind such as "quota_exhausted" (see spec §9 on the
// QuotaExhausted signal becoming part of this enum).
func AcousticBackend(subkind string, err error) *Error {
	return &Error{Kind: KindAcousticBackend, Reason: subkind, Err: err}
}

// DataCorruption reports that a reference data file failed to parse or
// round-trip during startup loading.
func DataCorruption(path, reason string) *Error {
	return &Error{Kind: KindDataCorruption, Path: path, Reason: reason}
}

// Cancelled reports cooperative cancellation observed between segments.
func Cancelled() *Error {
	return &Error{Kind: KindCancelled, Reason: "cancelled between segments"}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if ae, ok := err.(*Error); ok {
		e = ae
	} else {
		return false
	}
	return e.Kind == kind
}
