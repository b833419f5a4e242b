package cart

import (
	"sort"
	"strings"
)

// keySep cannot appear in a customization identifier coming from the catalog
const keySep = "\x1f"

// Key identifies a cart line: a product id plus a canonical customization set.
// Keys are comparable values, so two lines are the same line iff their keys are ==.
type Key struct {
	ProductID      string
	Customizations string
}

// NewKey builds the identity key of a product with the given customizations.
// The set is deduplicated and sorted, so input order does not matter.
func NewKey(productID string, customizations []string) Key {
	return Key{ProductID: productID, Customizations: strings.Join(Canonical(customizations), keySep)}
}

// Canonical returns the deduplicated, sorted copy of a customization set.
// Empty identifiers are dropped.
func Canonical(customizations []string) []string {
	if len(customizations) == 0 {
		return []string{}
	}
	seen := make(map[string]struct{}, len(customizations))
	out := make([]string, 0, len(customizations))
	for _, c := range customizations {
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
