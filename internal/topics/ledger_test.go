package topics

import (
	"context"
	"testing"
	"time"

	"threadloom/internal/model"
)

func kw(code string) model.Keyword {
	return model.Keyword{Code: code, Text: code, Intent: "experience", IsActive: true}
}

func TestSelectKeywordsPrefersFresh(t *testing.T) {
	keywords := []model.Keyword{kw("a"), kw("b"), kw("c"), kw("d")}
	used := map[string]bool{"a": true, "b": true}
	got := SelectKeywords(keywords, used, 3)
	if len(got) != 3 {
		t.Fatalf("want 3 keywords, got %d", len(got))
	}
	if got[0].Code != "c" || got[1].Code != "d" {
		t.Fatalf("fresh codes should come first, got %v", got)
	}
	// third slot topped up from the used pool
	if got[2].Code != "a" && got[2].Code != "b" {
		t.Fatalf("expected top-up from used codes, got %q", got[2].Code)
	}
}

func TestSelectKeywordsSkipsInactive(t *testing.T) {
	keywords := []model.Keyword{
		{Code: "off", Text: "off", IsActive: false},
		kw("on"),
	}
	got := SelectKeywords(keywords, nil, 3)
	if len(got) != 1 || got[0].Code != "on" {
		t.Fatalf("got %v", got)
	}
}

func TestRecentKeysNewestFirst(t *testing.T) {
	base := time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)
	memories := []model.TopicMemory{
		{TopicKey: "old", LastUsedAt: base},
		{TopicKey: "newest", LastUsedAt: base.Add(48 * time.Hour)},
		{TopicKey: "mid", LastUsedAt: base.Add(24 * time.Hour)},
	}
	got := RecentKeys(memories, 2)
	if len(got) != 2 || got[0] != "newest" || got[1] != "mid" {
		t.Fatalf("got %v", got)
	}
}

type recordingStore struct {
	campaignID string
	topicKey   string
	forumName  string
	calls      int
}

func (r *recordingStore) UpsertTopicMemory(ctx context.Context, campaignID, topicKey, forumName string, now time.Time) error {
	r.campaignID, r.topicKey, r.forumName = campaignID, topicKey, forumName
	r.calls++
	return nil
}

func TestRecordUsageWritesThrough(t *testing.T) {
	store := &recordingStore{}
	now := time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC)
	if err := RecordUsage(context.Background(), store, "c1", "deck-tools", "startups", now); err != nil {
		t.Fatal(err)
	}
	if store.calls != 1 || store.topicKey != "deck-tools" || store.forumName != "startups" {
		t.Fatalf("unexpected write: %+v", store)
	}
}
