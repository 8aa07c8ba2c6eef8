package stage

import "errors"

// Sentinel validation errors; the swx package maps these to its public
// *swx.Error with the matching ErrCode.
var (
	ErrStubMismatch       = errors.New("stage: stub/non-stub key mismatch")
	ErrMaskTooNarrow      = errors.New("stage: entry mask narrower than table mask")
	ErrUnknownAction      = errors.New("stage: unknown action")
	ErrActionDataMismatch = errors.New("stage: action data presence mismatch")
	ErrDefaultIsConst     = errors.New("stage: default action is constant")
)
