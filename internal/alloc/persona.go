package alloc

import (
	"math"
	"math/rand"
	"sort"
	"strings"

	"threadloom/internal/analytics"
	"threadloom/internal/model"
	"threadloom/internal/util"
)

// Weekly caps. The operator persona is exempt from the post cap.
const (
	DefaultPostCap       = 2
	DefaultCommentCap    = 10
	DefaultCommentTarget = 3
)

// Selection reasons, recorded for observability.
const (
	ReasonOperator    = "operator"
	ReasonTopicMatch  = "topic_match"
	ReasonAvailable   = "available"
	ReasonAuthorReply = "author_reply"
)

// Selection pairs a chosen persona with why it was chosen.
type Selection struct {
	Persona model.Persona
	Reason  string
}

// SelectPostAuthor picks the slot's author. An active operator persona is
// returned unconditionally regardless of caps; otherwise personas under the
// weekly post cap are scored on freshness, forum relevance, and jitter.
// Returns nil when every candidate is at cap; the caller skips the slot.
func SelectPostAuthor(rng *rand.Rand, personas []model.Persona, forum model.Forum, usage analytics.Usage, postCap int) *Selection {
	if postCap <= 0 {
		postCap = DefaultPostCap
	}
	for _, p := range personas {
		if p.IsActive && p.IsOperator {
			sel := Selection{Persona: p, Reason: ReasonOperator}
			return &sel
		}
	}

	var best *Selection
	bestScore := math.Inf(-1)
	for _, p := range personas {
		if !p.IsActive {
			continue
		}
		posted := usage.PostsByPersona[p.ID]
		if posted >= postCap {
			continue
		}
		rel := Relevance(p, forum)
		score := 100 - 25*float64(posted) + float64(rel) + rng.Float64()*15
		if score > bestScore {
			bestScore = score
			reason := ReasonAvailable
			if rel > 10 {
				reason = ReasonTopicMatch
			}
			best = &Selection{Persona: p, Reason: reason}
		}
	}
	return best
}

// rolePairs maps persona role vocabulary to forum themes. A pair counts
// when the bio matches a role term and the forum name matches a theme term.
var rolePairs = []struct {
	roles  []string
	themes []string
}{
	{[]string{"engineer", "developer", "programmer", "swe"}, []string{"programming", "coding", "golang", "webdev", "devops"}},
	{[]string{"designer", "ux", "ui"}, []string{"design", "figma", "graphics"}},
	{[]string{"founder", "startup", "indie"}, []string{"startup", "entrepreneur", "saas", "indiehacker"}},
	{[]string{"marketer", "marketing", "growth", "seo"}, []string{"marketing", "seo", "growth", "sales"}},
	{[]string{"data", "analytics", "ml", "machine learning"}, []string{"machinelearning", "datascience", "ai", "data"}},
	{[]string{"teacher", "professor", "student"}, []string{"education", "learning", "study"}},
}

// Relevance scores how at-home a persona is in a forum, capped at 30.
func Relevance(p model.Persona, forum model.Forum) int {
	score := 0
	bio := strings.ToLower(p.Bio)
	name := strings.ToLower(forum.Name)
	if name != "" && strings.Contains(bio, name) {
		score += 15
	}
	for _, pair := range rolePairs {
		if util.ContainsAnyCaseInsensitive(bio, pair.roles) && util.ContainsAnyCaseInsensitive(name, pair.themes) {
			score += 10
		}
	}
	if score > 30 {
		score = 30
	}
	return score
}

// SelectCommenters picks the personas who will open the post's thread. The
// author never opens their own thread and is excluded from the base pool;
// the realized count is re-randomized into [2,4] on top of the target and
// pool bounds so thread sizes vary run to run. With 50% probability the
// author is appended as a late reply, provided they are under the comment
// cap.
func SelectCommenters(rng *rand.Rand, personas []model.Persona, authorID string, usage analytics.Usage, target, commentCap int) []Selection {
	if target <= 0 {
		target = DefaultCommentTarget
	}
	if commentCap <= 0 {
		commentCap = DefaultCommentCap
	}

	type scored struct {
		p     model.Persona
		score float64
	}
	var pool []scored
	var author *model.Persona
	for _, p := range personas {
		if !p.IsActive {
			continue
		}
		if p.ID == authorID {
			cp := p
			author = &cp
			continue
		}
		commented := usage.CommentsByPersona[p.ID]
		if commented >= commentCap {
			continue
		}
		pool = append(pool, scored{p: p, score: 100 - 5*float64(commented) + rng.Float64()*30})
	}
	sort.Slice(pool, func(i, j int) bool { return pool[i].score > pool[j].score })

	n := target
	if r := 2 + rng.Intn(3); r < n {
		n = r
	}
	if len(pool) < n {
		n = len(pool)
	}

	out := make([]Selection, 0, n+1)
	for i := 0; i < n; i++ {
		out = append(out, Selection{Persona: pool[i].p, Reason: ReasonAvailable})
	}
	if author != nil && rng.Float64() < 0.5 && usage.CommentsByPersona[authorID] < commentCap {
		out = append(out, Selection{Persona: *author, Reason: ReasonAuthorReply})
	}
	return out
}
