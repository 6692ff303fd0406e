package account

import "net/http"

// Status represents the validity of an account token as last observed.
//
// Status is a string type so it serializes directly into the account table
// JSON and reads well in logs.
type Status string

const (
	// StatusActive indicates the last probe succeeded.
	StatusActive Status = "active"

	// StatusInvalid indicates the last probe failed for any reason.
	StatusInvalid Status = "invalid"

	// StatusUnknown is used for records whose persisted status is missing
	// or unrecognized.
	StatusUnknown Status = "unknown"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// Normalize maps unrecognized values to [StatusUnknown].
func (s Status) Normalize() Status {
	switch s {
	case StatusActive, StatusInvalid:
		return s
	default:
		return StatusUnknown
	}
}

// Reason is the machine-readable cause of a failed probe.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonNoToken         Reason = "no_token"
	ReasonTemplateToken   Reason = "template_token"
	ReasonUnauthorized    Reason = "unauthorized"
	ReasonForbidden       Reason = "forbidden"
	ReasonNotFound        Reason = "not_found"
	ReasonRateLimited     Reason = "rate_limited"
	ReasonServerError     Reason = "server_error"
	ReasonUnknownError    Reason = "unknown_error"
	ReasonNetworkError    Reason = "network_error"
	ReasonTimeout         Reason = "timeout"
	ReasonInvalidResponse Reason = "invalid_response"
)

// String returns the string representation of the reason.
func (r Reason) String() string {
	return string(r)
}

// Display returns the text shown to humans on the status page.
// Only the template placeholder differs from the raw reason.
func (r Reason) Display() string {
	if r == ReasonTemplateToken {
		return "setup_required (add real token to .env)"
	}
	return string(r)
}

// ReasonForStatusCode maps a non-200 HTTP status code to a [Reason].
func ReasonForStatusCode(code int) Reason {
	switch code {
	case http.StatusUnauthorized:
		return ReasonUnauthorized
	case http.StatusForbidden:
		return ReasonForbidden
	case http.StatusNotFound:
		return ReasonNotFound
	case http.StatusTooManyRequests:
		return ReasonRateLimited
	case http.StatusInternalServerError:
		return ReasonServerError
	default:
		return ReasonUnknownError
	}
}
