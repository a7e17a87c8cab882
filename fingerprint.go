package svgbob

import (
	"crypto/sha1" // #nosec G505 -- content addressing, not security
	"encoding/hex"
	"fmt"
	"strings"
)

// FingerprintLength is the number of hex characters kept from the digest.
const FingerprintLength = 8

// CacheKey selects what the fingerprint covers.
type CacheKey string

const (
	// CacheKeyOptions fingerprints the text, plus the options when they
	// differ from BuiltinDefaults.
	CacheKeyOptions CacheKey = "options"
	// CacheKeyContent fingerprints the text only.
	CacheKeyContent CacheKey = "content"
)

// ParseCacheKey validates a cache key mode. Empty selects CacheKeyOptions.
func ParseCacheKey(s string) (CacheKey, error) {
	switch CacheKey(strings.ToLower(s)) {
	case "", CacheKeyOptions:
		return CacheKeyOptions, nil
	case CacheKeyContent:
		return CacheKeyContent, nil
	default:
		return "", fmt.Errorf("%w: %q (must be options or content)", ErrInvalidCacheKey, s)
	}
}

// Fingerprint names the image rendered from text with opts.
//
// With built-in options, or in CacheKeyContent mode, the result is the
// first FingerprintLength hex characters of sha1(text). Otherwise the
// options are folded in, so the same diagram rendered two ways gets two
// files.
func Fingerprint(text string, opts RenderOptions, mode CacheKey) string {
	h := sha1.New() // #nosec G401 -- content addressing, not security
	h.Write([]byte(text))
	if mode != CacheKeyContent && !opts.IsBuiltin() {
		h.Write([]byte{0})
		h.Write([]byte(opts.String()))
	}
	return hex.EncodeToString(h.Sum(nil))[:FingerprintLength]
}
