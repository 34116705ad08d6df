package model

import (
	"testing"
	"time"
)

func mkComment(author string, replyTo int, offset time.Duration) PlannedComment {
	base := time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)
	return PlannedComment{AuthorPersonaID: author, ReplyToIndex: replyTo, ScheduledAt: base.Add(offset)}
}

func TestQualityEmptyThreadIsBase(t *testing.T) {
	q := QualityScore(nil, "author")
	if q != 0.5 {
		t.Fatalf("empty thread quality = %v, want 0.5", q)
	}
}

func TestQualityBounds(t *testing.T) {
	threads := [][]PlannedComment{
		nil,
		{mkComment("a", -1, 10*time.Minute)},
		{
			mkComment("b", -1, 20*time.Minute),
			mkComment("c", 0, 35*time.Minute),
			mkComment("author", 1, 50*time.Minute),
		},
		{
			mkComment("spam", -1, 1*time.Minute),
			mkComment("spam", -1, 2*time.Minute),
			mkComment("spam", -1, 3*time.Minute),
			mkComment("spam", -1, 400*time.Minute),
		},
	}
	for i, th := range threads {
		q := QualityScore(th, "author")
		if q < 0 || q > 1 {
			t.Fatalf("thread %d: quality %v out of [0,1]", i, q)
		}
	}
}

func TestQualityFirstCommenterNotAuthorScoresHigher(t *testing.T) {
	organic := []PlannedComment{
		mkComment("p2", -1, 20*time.Minute),
		mkComment("author", 0, 35*time.Minute),
	}
	eager := []PlannedComment{
		mkComment("author", -1, 20*time.Minute),
		mkComment("p2", 0, 35*time.Minute),
	}
	qo := QualityScore(organic, "author")
	qe := QualityScore(eager, "author")
	if qo <= qe {
		t.Fatalf("organic %v should beat author-first %v", qo, qe)
	}
}

func TestQualitySpamPenalty(t *testing.T) {
	natural := []PlannedComment{
		mkComment("p1", -1, 20*time.Minute),
		mkComment("p2", -1, 35*time.Minute),
		mkComment("p3", 0, 50*time.Minute),
		mkComment("p4", -1, 65*time.Minute),
	}
	spam := []PlannedComment{
		mkComment("p1", -1, 20*time.Minute),
		mkComment("p1", -1, 35*time.Minute),
		mkComment("p1", 0, 50*time.Minute),
		mkComment("p1", -1, 65*time.Minute),
	}
	qn := QualityScore(natural, "author")
	qs := QualityScore(spam, "author")
	if qn-qs < 0.2 {
		t.Fatalf("spam thread %v not at least 0.2 below natural %v", qs, qn)
	}
}

func TestQualityTimingWindow(t *testing.T) {
	good := []PlannedComment{
		mkComment("p1", -1, 20*time.Minute),
		mkComment("p2", -1, 40*time.Minute),
	}
	rushed := []PlannedComment{
		mkComment("p1", -1, 20*time.Minute),
		mkComment("p2", -1, 21*time.Minute),
	}
	if QualityScore(good, "author") <= QualityScore(rushed, "author") {
		t.Fatalf("natural gaps should outscore a 1-minute pile-on")
	}
}
