package musicai

import (
	"errors"
	"fmt"
)

var (
	// Quota errors.
	ErrQuotaExhausted = errors.New("musicai: all accounts exhausted quota for this period")

	// State errors.
	ErrStateCorrupt  = errors.New("musicai: state record failed integrity check")
	ErrInvalidStatus = errors.New("musicai: invalid run status")

	// Config errors.
	ErrNoAccounts    = errors.New("musicai: no compute accounts configured")
	ErrNoCompute     = errors.New("musicai: no compute platform configured")
	ErrNoObjectStore = errors.New("musicai: no object store configured")

	// Retry errors.
	ErrRetriesExhausted = errors.New("musicai: retries exhausted")
)

// FailureKind classifies a boundary failure. Every error crossing an
// external boundary (compute trigger, status poll, download, upload,
// notification) carries exactly one kind, so retry allow-lists and the
// intervention manager dispatch over a closed set instead of matching
// on message text.
type FailureKind string

const (
	// KindTransient covers network and API hiccups that are safe to retry.
	KindTransient FailureKind = "transient"
	// KindQuotaExhausted means the account pool has no eligible account.
	// It is terminal for the current quota period and never retried.
	KindQuotaExhausted FailureKind = "quota_exhausted"
	// KindDataIntegrity marks checksum mismatches and unparsable records.
	KindDataIntegrity FailureKind = "data_integrity"
	// KindJobTerminal means the compute run itself reported error or
	// cancelled. The job is abandoned, not retried.
	KindJobTerminal FailureKind = "job_terminal"

	// Per-step kinds carried into the persisted error record so the
	// intervention manager knows where to resume.
	KindSetup      FailureKind = "setup"
	KindSubmit     FailureKind = "submit"
	KindPoll       FailureKind = "poll"
	KindDownload   FailureKind = "download"
	KindUpload     FailureKind = "upload"
	KindProcessing FailureKind = "processing"

	// KindUnexpected is any uncaught failure inside a cycle.
	KindUnexpected FailureKind = "unexpected"
)

// OpError is a boundary failure tagged with the operation that produced
// it and its FailureKind. Use errors.As to recover the kind anywhere
// above the boundary.
type OpError struct {
	Op   string
	Kind FailureKind
	Err  error
}

// NewOpError tags err with an operation name and failure kind.
func NewOpError(op string, kind FailureKind, err error) *OpError {
	return &OpError{Op: op, Kind: kind, Err: err}
}

func (e *OpError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// KindOf extracts the FailureKind from err. Untagged errors are
// KindUnexpected; nil has no kind and returns the empty string.
func KindOf(err error) FailureKind {
	if err == nil {
		return ""
	}
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Kind
	}
	if errors.Is(err, ErrQuotaExhausted) {
		return KindQuotaExhausted
	}
	return KindUnexpected
}
