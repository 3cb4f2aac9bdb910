package model

import (
	"crypto/md5"
	"encoding/hex"
)

// MaxNameLength is the longest section name sent to the renderer verbatim.
// Blender object names are capped at 63 characters; 56 leaves room for a
// "[99999]" segment suffix.
const MaxNameLength = 56

// ShortenName returns a name suitable for use as a renderer object name.
// Names within MaxNameLength pass through unchanged. Longer names are
// truncated and suffixed with "#" plus the first 16 hex characters of the
// MD5 digest of the full name, which keeps the result deterministic and
// collision-resistant. The mapping is not reversible.
func ShortenName(name string) string {
	if len(name) <= MaxNameLength {
		return name
	}

	sum := md5.Sum([]byte(name))
	digest := hex.EncodeToString(sum[:])

	// 17 = 1 for "#" + 16 hash characters
	return name[:MaxNameLength-17] + "#" + digest[:16]
}
