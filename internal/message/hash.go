package message

import (
	"fmt"
	"hash/fnv"
	"time"
)

// HashContent returns a stable FNV-64a hex digest over the body exactly as
// given. No whitespace or case folding: "Hello world" and "Hello World"
// must hash differently, so two different people saying almost the same
// thing never collapse. Unsalted, so the digest is stable across restarts.
func HashContent(content string) string {
	hasher := fnv.New64a()
	_, _ = hasher.Write([]byte(content))
	return fmt.Sprintf("%016x", hasher.Sum64())
}

// PrimaryKey is the strongest dedup identity: the stored row id itself.
// It collapses the same physical record fetched twice across overlapping
// pages.
func PrimaryKey(id string) string {
	return "id:" + id
}

// SoftKey is the fallback identity used when primary ids differ but the
// message may still be a content-level duplicate (retry, multi-channel
// echo). It merges identical content from the identical sender on the
// identical UTC calendar day, and nothing else.
func SoftKey(content, senderIdentity string, createdAt time.Time) string {
	day := createdAt.UTC().Format("2006-01-02")
	hasher := fnv.New64a()
	_, _ = hasher.Write([]byte(HashContent(content)))
	_, _ = hasher.Write([]byte{0})
	_, _ = hasher.Write([]byte(senderIdentity))
	_, _ = hasher.Write([]byte{0})
	_, _ = hasher.Write([]byte(day))
	return fmt.Sprintf("soft:%016x", hasher.Sum64())
}
