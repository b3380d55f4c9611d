// Package linknorm canonicalizes hyperlink references into crawl identities.
// Links are resolved against their source page, https is folded into http,
// scheme and host are lowercased and trailing slashes are dropped.
package linknorm

import (
	"net/url"
	"strings"
)

// CanonicalScheme is the only scheme a canonical link carries.
const CanonicalScheme = "http"

const canonicalPrefix = CanonicalScheme + "://"

// Normalize resolves rawHref against sourceLink and returns its canonical
// form. The second return value is false when the reference is rejected
// (mailto:, tel:) or cannot be parsed or resolved.
func Normalize(sourceLink, rawHref string) (string, bool) {
	href := strings.TrimSpace(rawHref)
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "tel:") {
		return "", false
	}

	// Protocol-relative references always resolve to the canonical scheme.
	if strings.HasPrefix(href, "//") {
		href = CanonicalScheme + ":" + href
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}

	if !ref.IsAbs() {
		if sourceLink == "" {
			return "", false
		}
		base, err := url.Parse(sourceLink)
		if err != nil || !base.IsAbs() {
			return "", false
		}
		ref = base.ResolveReference(ref)
	}

	ref.Scheme = strings.ToLower(ref.Scheme)
	if ref.Scheme == "https" {
		ref.Scheme = CanonicalScheme
	}
	ref.Host = strings.ToLower(ref.Host)

	if ref.Scheme == CanonicalScheme && ref.Host == "" {
		return "", false
	}

	return strings.TrimRight(ref.String(), "/"), true
}

// IsCanonical reports whether link uses the canonical scheme and carries no
// fragment marker. Only such links are fed back into the crawl queue.
func IsCanonical(link string) bool {
	return strings.HasPrefix(link, canonicalPrefix) && !strings.Contains(link, "#")
}

// Host returns the lowercased host (with port, if any) of link, or false when
// link has none.
func Host(link string) (string, bool) {
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return "", false
	}
	return strings.ToLower(u.Host), true
}
