package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// NormalizeDebugName NFC-normalizes a debug-name annotation before it
// is interned, so that visually identical names (e.g. precomposed vs.
// decomposed accents coming from different source encodings) collapse
// to one string and therefore one interned node.
func NormalizeDebugName(name string) string {
	if norm.NFC.IsNormalString(name) {
		return name
	}
	return norm.NFC.String(name)
}

// DebugSID computes a stable, content-addressed debug identifier for
// a node: hash(tag | payload key | child ids). It has no bearing on
// hash-consing (that is the arena's job) and exists purely so tooling
// and golden tests can refer to a node stably across independent runs
// of the same pipeline.
func DebugSID(n *Node) string {
	input := fmt.Sprintf("%s|%s|%s", n.Tag, n.Payload.Key(), idList(Children(n)))
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])[:16]
}
