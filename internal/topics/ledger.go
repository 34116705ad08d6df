package topics

import (
	"context"
	"sort"
	"time"

	"threadloom/internal/gen"
	"threadloom/internal/model"
)

// How many recently used topic keys are handed to the generator as an
// explicit avoid-list.
const recentKeyWindow = 20

// MemoryStore is the slice of the persistence collaborator the ledger
// writes through.
type MemoryStore interface {
	UpsertTopicMemory(ctx context.Context, campaignID, topicKey, forumName string, now time.Time) error
}

// SelectKeywords picks up to max active keywords for one post, preferring
// codes not yet used earlier in the same generation pass. When too few
// fresh codes remain it tops up from the already-used pool.
func SelectKeywords(keywords []model.Keyword, usedCodes map[string]bool, max int) []model.Keyword {
	if max <= 0 {
		max = 3
	}
	var fresh, used []model.Keyword
	for _, kw := range keywords {
		if !kw.IsActive {
			continue
		}
		if usedCodes[kw.Code] {
			used = append(used, kw)
		} else {
			fresh = append(fresh, kw)
		}
	}
	out := fresh
	if len(out) > max {
		out = out[:max]
	}
	for _, kw := range used {
		if len(out) >= max {
			break
		}
		out = append(out, kw)
	}
	return out
}

// RecentKeys returns the most recently used topic keys, newest first.
func RecentKeys(memories []model.TopicMemory, limit int) []string {
	sorted := make([]model.TopicMemory, len(memories))
	copy(sorted, memories)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LastUsedAt.After(sorted[j].LastUsedAt) })
	if limit <= 0 {
		limit = recentKeyWindow
	}
	keys := make([]string, 0, limit)
	for _, m := range sorted {
		if len(keys) >= limit {
			break
		}
		keys = append(keys, m.TopicKey)
	}
	return keys
}

// ChooseTopic delegates topic creation to the generator, constrained away
// from the campaign's recently used topic keys.
func ChooseTopic(ctx context.Context, g gen.Generator, forum model.Forum, keywords []model.Keyword, memories []model.TopicMemory) (gen.TopicIdea, error) {
	return g.GenerateTopic(ctx, forum, keywords, RecentKeys(memories, recentKeyWindow))
}

// RecordUsage marks a topic key as used for the campaign: increments
// timesUsed and refreshes lastUsedAt/lastForumName, inserting on first use.
// Ledger rows are never deleted.
func RecordUsage(ctx context.Context, store MemoryStore, campaignID, topicKey, forumName string, now time.Time) error {
	return store.UpsertTopicMemory(ctx, campaignID, topicKey, forumName, now)
}
