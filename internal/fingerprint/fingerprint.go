// Package fingerprint derives stable cache keys from feature sets.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"compforge/internal/estimator"
)

// Hash returns a stable hex digest of the feature set's canonical form.
// List values are sorted before serialization, so feature sets built by
// inserting the same entries in any order hash identically.
func Hash(features estimator.FeatureSet) string {
	canon := estimator.FeatureSet{
		Fields:      sortedCopy(features.Fields),
		Responsive:  features.Responsive,
		Interactive: features.Interactive,
		Styling:     sortedCopy(features.Styling),
		Layout:      sortedCopy(features.Layout),
	}
	// Struct fields marshal in declaration order, which fixes key order.
	b, _ := json.Marshal(canon)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func sortedCopy(values []string) []string {
	if len(values) == 0 {
		return []string{}
	}
	out := append([]string(nil), values...)
	sort.Strings(out)
	return out
}
