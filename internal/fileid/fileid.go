// Package fileid provides deterministic document and chunk IDs.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"strconv"

	"github.com/google/uuid"
)

const prefix = "doc:"

// chunkNamespace scopes chunk UUIDs so they never collide with other v5 names.
var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("kotae:chunk"))

// DocID returns a stable document ID for a source path relative to the data directory.
// Same source always yields the same ID.
func DocID(source string) string {
	normalized := path.Clean(source)
	hash := sha256.Sum256([]byte(normalized))
	return prefix + hex.EncodeToString(hash[:])
}

// ChunkID returns a name-based UUID for the chunk at index within docID.
func ChunkID(docID string, index int) string {
	return uuid.NewSHA1(chunkNamespace, []byte(docID+"#"+strconv.Itoa(index))).String()
}
