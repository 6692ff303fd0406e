package store

import (
	"time"

	"github.com/jpalmerr/tokenwatch/internal/account"
	"github.com/jpalmerr/tokenwatch/internal/profile"
)

// Merge folds one run's probe results into a copy of existing.
//
// A success replaces the entry, except that a known account id and creation
// date survive a success whose id could not be decoded. A failure keeps whatever identity
// the entry already had (tag, account id, creation date, index) and only
// marks it invalid with the failure reason; an account with no entry yet
// gets a placeholder. Accounts without a result are left untouched, so an
// empty result set returns an identical table. existing is never modified.
func Merge(existing account.Table, results []account.ProbeResult, now time.Time) account.Table {
	merged := existing.Clone()
	now = now.UTC()

	for _, r := range results {
		if !r.Failed() {
			p := r.Profile
			p.Identifier = r.Identifier
			p.Status = account.StatusActive
			p.LastError = ""
			p.LastUpdated = now
			if prev, ok := merged[r.Identifier]; ok && p.CreationDate == profile.Unknown && knownDate(prev.CreationDate) {
				// an id that no longer decodes keeps the known one
				p.AccountID = prev.AccountID
				p.CreationDate = prev.CreationDate
			}
			merged[r.Identifier] = p
			continue
		}

		prev, ok := merged[r.Identifier]
		if !ok {
			merged[r.Identifier] = profile.Placeholder(r.Identifier, r.Reason, now)
			continue
		}

		prev.Status = account.StatusInvalid
		prev.LastError = r.Reason.String()
		prev.LastUpdated = now
		merged[r.Identifier] = prev
	}

	return merged
}

func knownDate(s string) bool {
	return s != "" && s != profile.Unknown
}
