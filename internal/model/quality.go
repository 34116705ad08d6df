package model

import (
	"math"
	"time"
)

// Scheduling gaps between consecutive comments outside this window read as
// either bot-fast or abandoned-thread slow.
const (
	minNaturalGap = 3 * time.Minute
	maxNaturalGap = 120 * time.Minute
)

// QualityScore grades the structural naturalness of a finished comment
// thread in [0,1]. Comments must be in chronological order. Each term is
// independent of the others; an empty thread scores the 0.5 base.
func QualityScore(comments []PlannedComment, postAuthorID string) float64 {
	score := 0.5
	if len(comments) == 0 {
		return score
	}

	perPersona := make(map[string]int)
	for _, c := range comments {
		perPersona[c.AuthorPersonaID]++
	}

	if n := len(perPersona); n >= 2 && n <= 4 {
		score += 0.10
	}
	if comments[0].AuthorPersonaID != postAuthorID {
		score += 0.10
	}

	hasTopLevel, hasReply, hasDeepReply := false, false, false
	for _, c := range comments {
		if c.ReplyToIndex < 0 {
			hasTopLevel = true
			continue
		}
		hasReply = true
		if c.ReplyToIndex > 0 {
			hasDeepReply = true
		}
	}
	if hasTopLevel && hasReply {
		score += 0.15
	}
	if hasDeepReply {
		score += 0.10
	}
	if perPersona[postAuthorID] > 0 {
		score += 0.10
	}

	naturalTiming := true
	for i := 1; i < len(comments); i++ {
		gap := comments[i].ScheduledAt.Sub(comments[i-1].ScheduledAt)
		if gap < minNaturalGap || gap > maxNaturalGap {
			naturalTiming = false
			break
		}
	}
	if naturalTiming {
		score += 0.05
	}

	// One persona dominating a thread is the strongest unnatural signal.
	for id, n := range perPersona {
		if id == postAuthorID {
			continue
		}
		if n > 1 {
			score -= 0.10
		}
		if n > 2 {
			score -= 0.15
		}
	}

	return clampRound(score)
}

func clampRound(score float64) float64 {
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return math.Round(score*100) / 100
}
