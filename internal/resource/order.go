package resource

import (
	"slices"
	"strings"

	"github.com/anvil-platform/provisioner/internal/semver"
)

// ComparePreference orders capabilities from most to least preferred:
// capabilities of concrete resources before abstract ones, then higher versions
// first, then resource name ascending.
func ComparePreference(a, b *Capability) int {
	if aa, ba := a.resource.Abstract(), b.resource.Abstract(); aa != ba {
		if aa {
			return 1
		}
		return -1
	}
	if c := semver.Compare(a.version, b.version); c != 0 {
		return -c
	}
	return strings.Compare(a.resource.Name(), b.resource.Name())
}

// SortByPreference sorts caps in place using ComparePreference. Equal
// capabilities keep their relative order.
func SortByPreference(caps []*Capability) {
	slices.SortStableFunc(caps, ComparePreference)
}

// Best returns the most preferred capability, or nil. Abstract candidates only
// win when no concrete candidate exists.
func Best(caps []*Capability) *Capability {
	if len(caps) == 0 {
		return nil
	}
	sorted := slices.Clone(caps)
	SortByPreference(sorted)
	return sorted[0]
}
