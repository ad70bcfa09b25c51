package fetch

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"time"

	"rssd/models"
)

// Fingerprint derives the stable dedup identifier for a feed item.
// The feed-provided GUID wins when present; otherwise we hash the
// title, link and publish date. The result is stable across fetches
// so the same item never notifies twice.
func Fingerprint(item models.Item) string {
	if item.GUID != "" {
		return item.GUID
	}

	h := sha256.New()
	io.WriteString(h, item.Title)
	io.WriteString(h, "\x00")
	io.WriteString(h, item.Link)
	io.WriteString(h, "\x00")
	io.WriteString(h, item.Published.UTC().Format(time.RFC3339))

	return hex.EncodeToString(h.Sum(nil))
}
