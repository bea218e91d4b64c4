package metrics

import (
	"context"
	"strings"

	"github.com/trustreg-labs/trustreg-go/internal/hub"
)

var permissiveLicenses = map[string]struct{}{
	"mit": {}, "apache-2.0": {}, "bsd-2-clause": {}, "bsd-3-clause": {}, "isc": {},
}

var copyleftLicenses = map[string]struct{}{
	"gpl-3.0": {}, "gpl-2.0": {}, "lgpl-2.1": {}, "lgpl-3.0": {}, "mpl-2.0": {}, "epl-2.0": {},
}

// License scores the model's declared license: permissive 1.0,
// copyleft 0.7, custom 0.5, unrecognized 0.2, missing 0.0.
type License struct{}

func (License) Name() string { return "license" }

func (License) Compute(_ context.Context, ev hub.Evidence) Sample {
	if ev.ModelUnavailable {
		return Sample{Score: Unavailable}
	}

	lic := strings.ToLower(strings.TrimSpace(ev.License))
	switch {
	case lic == "":
		return Sample{Score: 0.0}
	case hasLicense(permissiveLicenses, lic):
		return Sample{Score: 1.0}
	case hasLicense(copyleftLicenses, lic):
		return Sample{Score: 0.7}
	case strings.Contains(lic, "custom") || strings.Contains(lic, "other"):
		return Sample{Score: 0.5}
	default:
		return Sample{Score: 0.2}
	}
}

func hasLicense(set map[string]struct{}, lic string) bool {
	if _, ok := set[lic]; ok {
		return true
	}
	// Multi-license card data is comma joined.
	for _, part := range strings.Split(lic, ",") {
		if _, ok := set[strings.TrimSpace(part)]; ok {
			return true
		}
	}
	return false
}
