// Package profile turns a successful profile payload into an [account.Profile].
//
// Everything here is a pure function of its inputs: index extraction from
// the username, English ordinal suffixes, the display tag, and the creation
// time encoded in the account's snowflake identifier.
package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jpalmerr/tokenwatch/internal/account"
)

// SnowflakeEpochMillis is 2015-01-01T00:00:00Z in Unix milliseconds.
const SnowflakeEpochMillis int64 = 1420070400000

// snowflakeTimestampShift drops the worker, process and increment bits.
const snowflakeTimestampShift = 22

// Unknown is written into fields that could not be determined.
const Unknown = "unknown"

// UnknownIndex is the display text for accounts without a numeric index.
const UnknownIndex = "Unknown index"

// creationDateLayout renders e.g. "Saturday, April 30, 2016 at 11:18:25 AM UTC".
const creationDateLayout = "Monday, January 2, 2006 at 3:04:05 PM MST"

var (
	// ErrMalformedSnowflake is returned when an account id is not an unsigned
	// 64-bit decimal integer.
	ErrMalformedSnowflake = errors.New("malformed snowflake id")

	// ErrInvalidPayload is returned when a response body is not a profile.
	ErrInvalidPayload = errors.New("invalid profile payload")
)

// payload is the subset of the profile response that is read.
type payload struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	Avatar        string `json:"avatar"`
	PremiumType   int    `json:"premium_type"`
}

// LeadingIndex parses the run of ASCII digits at the start of s.
// It returns false if s does not start with a digit or the run overflows int.
func LeadingIndex(s string) (int, bool) {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// OrdinalSuffix returns the English ordinal suffix for n ("st", "nd", "rd" or "th").
func OrdinalSuffix(n int) string {
	if n < 0 {
		n = -n
	}
	if tens := n % 100; tens >= 11 && tens <= 13 {
		return "th"
	}
	switch n % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}

// FormatIndex renders the display index, e.g. "7th index".
// When ok is false it returns [UnknownIndex].
func FormatIndex(n int, ok bool) string {
	if !ok {
		return UnknownIndex
	}
	return strconv.Itoa(n) + OrdinalSuffix(n) + " index"
}

// Tag returns the display handle for a username.
func Tag(username string) string {
	return "@" + username
}

// SnowflakeTime decodes the creation instant embedded in a snowflake id.
func SnowflakeTime(id string) (time.Time, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(id), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedSnowflake, id)
	}
	ms := int64(v>>snowflakeTimestampShift) + SnowflakeEpochMillis
	return time.UnixMilli(ms).UTC(), nil
}

// FormatCreationDate renders t in UTC in long form with the zone abbreviation.
func FormatCreationDate(t time.Time) string {
	return t.UTC().Format(creationDateLayout)
}

// Decode builds an active profile from a successful response body.
//
// A body that is not JSON or has no username returns [ErrInvalidPayload].
// A non-numeric id is a decode anomaly: the profile is still returned with
// its creation date set to [Unknown], together with an error wrapping
// [ErrMalformedSnowflake].
func Decode(identifier string, body []byte, now time.Time) (account.Profile, error) {
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return account.Profile{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if p.Username == "" {
		return account.Profile{}, fmt.Errorf("%w: missing username", ErrInvalidPayload)
	}

	prof := account.Profile{
		Identifier:   identifier,
		Tag:          Tag(p.Username),
		AccountID:    p.ID,
		CreationDate: Unknown,
		Avatar:       p.Avatar,
		Status:       account.StatusActive,
		LastUpdated:  now.UTC(),
	}
	setIndex(&prof, p.Username)

	created, err := SnowflakeTime(p.ID)
	if err != nil {
		return prof, err
	}
	prof.CreationDate = FormatCreationDate(created)
	return prof, nil
}

// Placeholder synthesizes the record for an account whose first probe failed.
// The index is derived from the identifier itself.
func Placeholder(identifier string, reason account.Reason, now time.Time) account.Profile {
	prof := account.Profile{
		Identifier:   identifier,
		Tag:          Tag(Unknown),
		AccountID:    Unknown,
		CreationDate: Unknown,
		Status:       account.StatusInvalid,
		LastError:    reason.String(),
		LastUpdated:  now.UTC(),
	}
	setIndex(&prof, identifier)
	return prof
}

func setIndex(prof *account.Profile, s string) {
	n, ok := LeadingIndex(s)
	prof.Index = FormatIndex(n, ok)
	if ok {
		prof.IndexNumber = &n
	}
}
