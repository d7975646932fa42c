package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/google/uuid"
)

var chunkNamespace = uuid.MustParse("7f1c5c9e-3a51-4c3e-9b0e-5d2b8f6a4e10")

func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func HashText(s string) string {
	return HashBytes([]byte(s))
}

// ChunkID is stable for a (collection, source key, ordinal) triple, so a
// changed chunk overwrites the point it replaces.
func ChunkID(collection, sourceKey string, ordinal int) string {
	name := collection + "\x00" + sourceKey + "::chunk::" + strconv.Itoa(ordinal)
	return uuid.NewSHA1(chunkNamespace, []byte(name)).String()
}
