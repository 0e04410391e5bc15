package media

import "strings"

// MatchMIME reports whether mimeType satisfies pattern. Supported patterns:
//
//	*  or */*     any type that is known
//	image/*       any subtype of image
//	image/x-*     trailing wildcard inside the subtype
//	image/png     exact
//
// Matching is case-insensitive and ignores MIME parameters on both sides.
// An empty mimeType never matches, not even "*"; rules treat a wildcard
// allow-list as unrestricted before consulting MatchMIME.
// A pattern that begins with "." is treated as an extension and never
// matches a MIME type; use MatchAny with a descriptor for those.
func MatchMIME(pattern, mimeType string) bool {
	pattern = normalizeMIME(pattern)
	mimeType = normalizeMIME(mimeType)
	if pattern == "" || strings.HasPrefix(pattern, ".") {
		return false
	}
	if pattern == "*" || pattern == "*/*" {
		return mimeType != ""
	}
	if mimeType == "" {
		return false
	}
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(mimeType, prefix)
	}
	return pattern == mimeType
}

// MatchAny reports whether any pattern accepts the descriptor. Patterns
// starting with "." match the descriptor's extension, as an HTML accept
// attribute would.
func MatchAny(patterns []string, d Descriptor) bool {
	for _, p := range patterns {
		if ext, ok := strings.CutPrefix(strings.TrimSpace(p), "."); ok {
			if strings.EqualFold(ext, d.Extension) {
				return true
			}
			continue
		}
		if MatchMIME(p, d.MimeType) {
			return true
		}
	}
	return false
}
