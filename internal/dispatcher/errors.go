package dispatcher

import "errors"

// Error taxonomy of the dispatch engine. Authentication and validation
// errors surface synchronously on the inbound HTTP response; everything
// else is translated into a terminal event status and swallowed at the
// dispatch boundary.
var (
	// ErrAuthentication covers signature mismatches and unresolvable
	// subscriptions; maps to HTTP 401 at the boundary
	ErrAuthentication = errors.New("authentication failed")
	// ErrNotFound covers missing customers, callback URLs and
	// correlation records; maps to workflow ERROR status
	ErrNotFound = errors.New("not found")
	// ErrInvalidState covers unrecognized aggregation modes
	ErrInvalidState = errors.New("invalid state")
	// ErrValidation covers malformed inbound payloads; maps to HTTP 400
	ErrValidation = errors.New("validation failed")
)
