// Package ratelimit provides tiered, store-backed request limiting with an
// in-process fallback for when the shared store is unreachable.
package ratelimit

import (
	"net/http"
	"strings"

	"github.com/turtacn/sixcities/pkg/constants"
)

// Tier is a rate-limit classification bucket.
type Tier = constants.RateLimitTier

type segmentSet map[string]struct{}

func newSegmentSet(names ...string) segmentSet {
	s := make(segmentSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

var (
	authSegments = newSegmentSet(
		"login", "signin", "sign-in",
		"register", "signup", "sign-up",
		"logout", "signout", "sign-out",
	)
	uploadSegments = newSegmentSet(
		"avatar", "avatars", "preview", "preview-image",
		"image", "images", "upload", "uploads",
	)
	// Any method.
	userAPISegments = newSegmentSet("favorites", "favourites", "comments")
	// Non-read methods only.
	userAPIWriteSegments = newSegmentSet("offers", "rent-offers", "rentoffers", "users")
)

// Classify maps a request to its tier. Rules are evaluated in the fixed
// order Auth, Upload, UserAPI, Public and the first match wins.
func Classify(path, method string) Tier {
	segs := pathSegments(path)

	switch {
	case segs.anyIn(authSegments):
		return constants.TierAuth
	case segs.anyIn(uploadSegments):
		return constants.TierUpload
	case segs.anyIn(userAPISegments):
		return constants.TierUserAPI
	case !isReadMethod(method) && segs.anyIn(userAPIWriteSegments):
		return constants.TierUserAPI
	default:
		return constants.TierPublic
	}
}

type segments []string

func pathSegments(path string) segments {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	parts := strings.Split(strings.ToLower(path), "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (s segments) anyIn(set segmentSet) bool {
	for _, seg := range s {
		if _, ok := set[seg]; ok {
			return true
		}
	}
	return false
}

func isReadMethod(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}
