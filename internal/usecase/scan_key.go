package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/smarties/backend/internal/domain"
)

// ScanKey builds the scan-cache key for a UPC and an ordered set of profiles.
// Only restriction values contribute, so equal restriction sets share an entry
// no matter which profile objects carried them. Profile order matters.
func ScanKey(upc string, profiles ...*domain.UserProfile) string {
	h := sha256.New()
	for i, p := range profiles {
		if i > 0 {
			h.Write([]byte{'#'})
		}
		h.Write([]byte(restrictionSignature(p)))
	}
	return "scan:" + strings.TrimSpace(upc) + ":" + hex.EncodeToString(h.Sum(nil))
}

// restrictionSignature is the sorted type|name|severity list of one profile.
func restrictionSignature(p *domain.UserProfile) string {
	restrictions := p.UniqueRestrictions()
	tuples := make([]string, 0, len(restrictions))
	for _, r := range restrictions {
		tuples = append(tuples, string(r.Type)+"|"+r.NormalizedName()+"|"+string(r.Severity))
	}
	sort.Strings(tuples)
	return strings.Join(tuples, "\n")
}
