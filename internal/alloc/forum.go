package alloc

import (
	"errors"
	"math"
	"math/rand"

	"threadloom/internal/analytics"
	"threadloom/internal/model"
)

// ErrNoEligibleForums means the campaign has no active forum to post in.
var ErrNoEligibleForums = errors.New("no eligible forums")

const forumUsagePenalty = 30.0

// SelectForumsForWeek distributes n post slots across the active forums,
// greedy slot-by-slot. Usage already accumulated this week plus picks made
// earlier in this pass lower a forum's score, so distribution stays even
// with recency-biased variety; the penalty discourages reuse but never
// forbids it, so a single active forum absorbs every slot.
func SelectForumsForWeek(rng *rand.Rand, forums []model.Forum, n int, usage analytics.Usage) ([]string, error) {
	active := make([]model.Forum, 0, len(forums))
	for _, f := range forums {
		if f.IsActive {
			active = append(active, f)
		}
	}
	if len(active) == 0 {
		return nil, ErrNoEligibleForums
	}

	counts := make(map[string]int, len(active))
	for name, c := range usage.PostsByForum {
		counts[name] = c
	}

	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		best := ""
		bestScore := math.Inf(-1)
		for _, f := range active {
			score := 100 - forumUsagePenalty*float64(counts[f.Name]) + rng.Float64()*20
			if score > bestScore {
				bestScore = score
				best = f.Name
			}
		}
		out = append(out, best)
		counts[best]++
	}
	return out, nil
}
