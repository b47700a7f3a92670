package indexer

import (
	"crypto/sha256"
	"encoding/hex"
)

// idHexLen is the number of hex characters kept from a SHA-256 digest when
// deriving document and chunk identifiers. 16 hex chars (64 bits) is ample
// for collision avoidance within a single repository's corpus while keeping
// IDs short enough to show up in logs and URLs.
const idHexLen = 16

// ComputeContentHash returns the full SHA-256 hex digest of content. This is
// the `hash` field stored on Document and DocumentChunk, used to detect
// whether re-embedding is required.
func ComputeContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// ComputeDocumentID derives a stable document identifier from the owning
// repository, the file path within it, and the document's content hash:
// first 16 hex chars of SHA-256(repository || filepath || contentHash).
func ComputeDocumentID(repository, filePath, contentHash string) string {
	return truncatedHash(repository + filePath + contentHash)
}

// ComputeChunkID derives a stable chunk identifier from the owning document
// and the chunk's own content: first 16 hex chars of
// SHA-256(documentID || content). Identical content at the same position in
// the same document yields the same ID across runs, satisfying the
// chunk-ID-stability invariant.
func ComputeChunkID(documentID, content string) string {
	return truncatedHash(documentID + content)
}

func truncatedHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:idHexLen]
}
