package utils

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GenerateETag derives a weak validator from a document id and its version.
// extra carries anything else rendered into the body, such as joined profiles.
func GenerateETag(id primitive.ObjectID, version int64, updatedAt time.Time, extra ...string) string {
	key := fmt.Sprintf("%s:%d:%d", id.Hex(), version, updatedAt.UnixNano())
	if len(extra) > 0 {
		key += "|" + strings.Join(extra, "|")
	}
	sum := sha1.Sum([]byte(key))
	return `W/"` + hex.EncodeToString(sum[:8]) + `"`
}
