package account

import (
	"sort"
	"time"
)

// Credential is a single configured account token.
//
// Identifier is the configuration key suffix (for DISCORD_TOKEN_7 it is "7").
// Secret is the raw token value sent in the Authorization header.
type Credential struct {
	Identifier string
	Secret     string
}

// String implements fmt.Stringer without revealing the secret.
func (c Credential) String() string {
	return "credential(" + c.Identifier + ")"
}

// Outcome tags the variant held by a [ProbeResult].
type Outcome int

const (
	// OutcomeSuccess means the endpoint returned 200 and the profile decoded.
	OutcomeSuccess Outcome = iota

	// OutcomeAuthFailure means the token was rejected or missing.
	OutcomeAuthFailure

	// OutcomeNetworkFailure means no HTTP response was received.
	OutcomeNetworkFailure

	// OutcomeDecodeFailure means a 200 response carried an unreadable profile.
	OutcomeDecodeFailure
)

// String returns a short lowercase name for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeAuthFailure:
		return "auth_failure"
	case OutcomeNetworkFailure:
		return "network_failure"
	case OutcomeDecodeFailure:
		return "decode_failure"
	default:
		return "unknown"
	}
}

// ProbeResult is the classified outcome of probing one credential.
//
// Profile is only meaningful when Outcome is [OutcomeSuccess]; Reason is only
// meaningful otherwise. Err carries the underlying transport or decode error
// for logging and may be nil for plain authentication failures.
type ProbeResult struct {
	Identifier string
	Outcome    Outcome
	Profile    Profile
	Reason     Reason

	// StatusCode is zero when no response was received.
	StatusCode int
	Latency    time.Duration
	CheckedAt  time.Time
	Err        error
}

// Failed reports whether the probe produced anything other than a profile.
func (r ProbeResult) Failed() bool {
	return r.Outcome != OutcomeSuccess
}

// Profile is the last-known display record for one account.
//
// AccountID and CreationDate are treated as immutable once a probe has
// succeeded: later failures keep them and only touch Status, LastError and
// LastUpdated.
type Profile struct {
	Identifier string `json:"identifier"`

	// Index is the display text, e.g. "7th index" or "Unknown index".
	Index string `json:"index"`

	// IndexNumber is nil when the username has no leading digits.
	IndexNumber *int `json:"indexNumber,omitempty"`

	Tag          string    `json:"tag"`
	AccountID    string    `json:"accountId"`
	CreationDate string    `json:"creationDate"`
	Avatar       string    `json:"avatar,omitempty"`
	Status       Status    `json:"status"`
	LastError    string    `json:"lastError,omitempty"`
	LastUpdated  time.Time `json:"lastUpdated"`
}

// HasIndex reports whether the profile carries a numeric index.
func (p Profile) HasIndex() bool {
	return p.IndexNumber != nil
}

// clone returns a copy that shares no pointers with p.
func (p Profile) clone() Profile {
	if p.IndexNumber != nil {
		n := *p.IndexNumber
		p.IndexNumber = &n
	}
	return p
}

// Table maps account identifiers to their last-known [Profile].
type Table map[string]Profile

// Clone returns a deep copy of the table. A nil table clones to an empty one.
func (t Table) Clone() Table {
	cp := make(Table, len(t))
	for id, p := range t {
		cp[id] = p.clone()
	}
	return cp
}

// Identifiers returns the table keys in ascending order.
func (t Table) Identifiers() []string {
	ids := make([]string, 0, len(t))
	for id := range t {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ActiveCount returns the number of profiles with [StatusActive].
func (t Table) ActiveCount() int {
	n := 0
	for _, p := range t {
		if p.Status == StatusActive {
			n++
		}
	}
	return n
}
