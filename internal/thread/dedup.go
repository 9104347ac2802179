package thread

import (
	"sort"

	"github.com/quilldesk/quill/internal/message"
)

// DedupSort is the global deduplication pass: input is every page fetched
// so far, flattened in fetch order; output is the deduplicated list sorted
// ascending by timestamp. Pure and rebuilt from scratch on every call, so
// re-fetching a page is idempotent by construction.
//
// Identity collapses in two tiers: primary row-id equality first (the same
// physical record fetched twice), then the soft content/sender/day key.
// When rows collide, the earliest-timestamped row survives, with row-id
// lexicographic order as the final tiebreak for identical timestamps.
func DedupSort(pages [][]message.NormalizedMessage, excludeInternal bool) []message.NormalizedMessage {
	size := 0
	for _, page := range pages {
		size += len(page)
	}

	kept := make([]message.NormalizedMessage, 0, size)
	byPrimary := make(map[string]int, size)
	bySoft := make(map[string]int, size)

	replaceAt := func(idx int, candidate message.NormalizedMessage) {
		incumbent := kept[idx]
		delete(byPrimary, incumbent.DedupKey)
		delete(bySoft, incumbent.SoftKey)
		kept[idx] = candidate
		byPrimary[candidate.DedupKey] = idx
		bySoft[candidate.SoftKey] = idx
	}

	for _, page := range pages {
		for _, msg := range page {
			if excludeInternal && msg.IsInternal {
				continue
			}
			if idx, ok := byPrimary[msg.DedupKey]; ok {
				if beats(msg, kept[idx]) {
					replaceAt(idx, msg)
				}
				continue
			}
			if idx, ok := bySoft[msg.SoftKey]; ok {
				if beats(msg, kept[idx]) {
					replaceAt(idx, msg)
				}
				continue
			}
			byPrimary[msg.DedupKey] = len(kept)
			bySoft[msg.SoftKey] = len(kept)
			kept = append(kept, msg)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if !kept[i].Timestamp.Equal(kept[j].Timestamp) {
			return kept[i].Timestamp.Before(kept[j].Timestamp)
		}
		return kept[i].ID < kept[j].ID
	})

	return kept
}

// beats reports whether the candidate should survive a dedup collision
// against the incumbent.
func beats(candidate, incumbent message.NormalizedMessage) bool {
	if !candidate.Timestamp.Equal(incumbent.Timestamp) {
		return candidate.Timestamp.Before(incumbent.Timestamp)
	}
	return candidate.ID < incumbent.ID
}
