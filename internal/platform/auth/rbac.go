package auth

import (
	"errors"
	"net/http"
	"strings"
)

var ErrForbidden = errors.New("forbidden")

// Registry roles form a ladder: viewers read artifacts and ratings,
// curators may also ingest batches and trigger ratings, admins may do
// everything.
const (
	RoleViewer  = "viewer"
	RoleCurator = "curator"
	RoleAdmin   = "admin"
)

var roleLevels = map[string]int{
	RoleViewer:  1,
	RoleCurator: 2,
	RoleAdmin:   3,
}

func HasAtLeast(roles []string, required string) bool {
	requiredLevel := roleLevels[strings.ToLower(required)]
	if requiredLevel == 0 {
		return false
	}
	maxLevel := 0
	for _, role := range roles {
		level := roleLevels[strings.ToLower(strings.TrimSpace(role))]
		if level > maxLevel {
			maxLevel = level
		}
	}
	return maxLevel >= requiredLevel
}

func RequiredRoleForRequest(r *http.Request) string {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return RoleViewer
	default:
		return RoleCurator
	}
}
