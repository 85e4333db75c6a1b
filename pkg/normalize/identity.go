package normalize

import (
	"crypto/md5" //nolint:gosec // identity fallback hash, not a security boundary
	"encoding/hex"
	"errors"
	"net/url"
	"regexp"
	"strings"
)

// ErrNoIdentity is returned when a record carries neither a URL nor a SKU,
// leaving nothing stable to key it by.
var ErrNoIdentity = errors.New("record has no URL or SKU to derive an identity from")

var (
	slugRe     = regexp.MustCompile(`[^a-z0-9]+`)
	skuCleanRe = regexp.MustCompile(`[^A-Za-z0-9_-]+`)
)

// Slugify lowercases text and collapses non-alphanumeric runs to single
// hyphens.
func Slugify(s string) string {
	slug := slugRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
	return strings.Trim(slug, "-")
}

// CanonicalURL lowercases a product URL and strips any trailing slash.
func CanonicalURL(rawURL string) string {
	u := strings.ToLower(strings.TrimSpace(rawURL))
	return strings.TrimRight(u, "/")
}

// Identity derives the stable product key. URL-bearing records key on the
// canonicalized URL; otherwise (client, SKU) is used. The key is never
// regenerated once assigned: two records with the same identity are the
// same product for diffing purposes.
func Identity(client, rawURL, sku string) (string, error) {
	if u := CanonicalURL(rawURL); u != "" {
		return "url:" + u, nil
	}
	if s := strings.TrimSpace(sku); s != "" {
		return "sku:" + client + ":" + s, nil
	}
	return "", ErrNoIdentity
}

// DeriveSKU produces a display SKU: the cleaned explicit SKU if present,
// else the last URL path segment slugified, else a hash of the URL.
// The result is uppercased.
func DeriveSKU(sku, rawURL string) string {
	if cleaned := skuCleanRe.ReplaceAllString(strings.TrimSpace(sku), ""); cleaned != "" {
		return strings.ToUpper(cleaned)
	}

	if seg := lastPathSegment(rawURL); seg != "" {
		if slug := Slugify(seg); slug != "" {
			return strings.ToUpper(slug)
		}
	}

	if rawURL == "" {
		return ""
	}
	sum := md5.Sum([]byte(CanonicalURL(rawURL))) //nolint:gosec // see import note
	return strings.ToUpper(hex.EncodeToString(sum[:])[:12])
}

func lastPathSegment(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}

	path := strings.Trim(u.Path, "/")
	if path == "" {
		return ""
	}
	if i := strings.LastIndex(path, "/"); i >= 0 {
		path = path[i+1:]
	}
	return path
}
