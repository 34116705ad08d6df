package thread

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"threadloom/internal/gen"
	"threadloom/internal/logging"
	"threadloom/internal/metrics"
	"threadloom/internal/model"
	"threadloom/internal/schedule"
)

// FallbackPlanner is the deterministic StructurePlanner used when the
// primary planner fails or returns an invalid plan. It builds the smallest
// thread shape that still reads as a conversation: a stranger shares
// experience, a second stranger digs in, the author closes the loop.
type FallbackPlanner struct{}

func (FallbackPlanner) PlanThreadStructure(ctx context.Context, req gen.StructureRequest) ([]gen.PlanNode, error) {
	var others []model.Persona
	for _, p := range req.Personas {
		if p.ID != req.Author.ID {
			others = append(others, p)
		}
	}
	if len(others) == 0 {
		return nil, errors.New("no non-author personas")
	}

	nodes := []gen.PlanNode{{Username: others[0].Username, RepliesTo: "post", Intent: "shares relevant experience"}}
	if req.TargetCount >= 2 && len(others) >= 2 {
		nodes = append(nodes, gen.PlanNode{Username: others[1].Username, RepliesTo: "0", Intent: "asks a follow-up question"})
	}
	if req.TargetCount >= 3 {
		last := strconv.Itoa(len(nodes) - 1)
		nodes = append(nodes, gen.PlanNode{Username: req.Author.Username, RepliesTo: last, Intent: "thanks for the recommendation"})
	}
	return nodes, nil
}

// PlanStructure runs the primary planner and validates its output; any
// call failure, parse failure, or invalid node selects the fallback
// planner instead. Returns nil only when the fallback itself cannot plan
// (no non-author personas).
func PlanStructure(ctx context.Context, primary, fallback gen.StructurePlanner, req gen.StructureRequest) []gen.PlanNode {
	if primary != nil {
		nodes, err := primary.PlanThreadStructure(ctx, req)
		if err == nil && validPlan(nodes) {
			return nodes
		}
		fields := map[string]any{"post": req.PostTitle}
		if err != nil {
			fields["error"] = err.Error()
		}
		logging.Warn("thread_plan_fallback", fields)
		metrics.IncGenFallback("structure")
	}
	nodes, err := fallback.PlanThreadStructure(ctx, req)
	if err != nil {
		logging.Warn("thread_plan_empty", map[string]any{"error": err.Error()})
		return nil
	}
	return nodes
}

func validPlan(nodes []gen.PlanNode) bool {
	if len(nodes) == 0 {
		return false
	}
	for _, n := range nodes {
		if strings.TrimSpace(n.Username) == "" ||
			strings.TrimSpace(n.RepliesTo) == "" ||
			strings.TrimSpace(n.Intent) == "" {
			return false
		}
	}
	return true
}

// BuildThread turns a structure plan into the finalized ordered comment
// list. Usernames resolve case-insensitively; unresolvable nodes are
// skipped with a warning. The first comment lands 15-45 minutes after the
// post and each later one 5-25 minutes after its chronological
// predecessor. One generation call is made per node; a failed call
// substitutes the fixed default text rather than aborting the thread.
func BuildThread(ctx context.Context, rng *rand.Rand, g gen.Generator, nodes []gen.PlanNode, post model.PlannedPost, author model.Persona, personas []model.Persona) []model.PlannedComment {
	byName := make(map[string]model.Persona, len(personas))
	for _, p := range personas {
		byName[strings.ToLower(p.Username)] = p
	}

	var comments []model.PlannedComment
	// plan node index -> index in the comment list, for nodes that survived
	indexMap := make(map[int]int, len(nodes))
	prev := post.ScheduledAt

	for i, n := range nodes {
		p, ok := byName[strings.ToLower(n.Username)]
		if !ok {
			logging.Warn("unknown_commenter", map[string]any{"username": n.Username, "post": post.Title})
			continue
		}

		// A reference to a skipped, out-of-range, or not-yet-written node
		// degrades to a top-level reply.
		parent := -1
		if idx, err := n.ParentIndex(); err == nil && idx >= 0 && idx < i {
			if mapped, ok := indexMap[idx]; ok {
				parent = mapped
			}
		}

		var delay time.Duration
		if len(comments) == 0 {
			delay = schedule.FirstCommentDelay(rng)
		} else {
			delay = schedule.NextCommentDelay(rng)
		}
		when := prev.Add(delay)
		prev = when

		parentText := ""
		if parent >= 0 {
			parentText = comments[parent].Text
		}
		isAuthor := p.ID == author.ID
		text, err := g.GenerateComment(ctx, gen.CommentRequest{
			Persona:       p,
			PostTitle:     post.Title,
			PostBody:      post.Body,
			ParentText:    parentText,
			IsAuthorReply: isAuthor,
			Intent:        n.Intent,
		})
		if err != nil || strings.TrimSpace(text) == "" {
			metrics.IncGenFallback("comment")
			fields := map[string]any{"username": p.Username, "post": post.Title}
			if err != nil {
				fields["error"] = err.Error()
			}
			logging.Warn("comment_generation_failed", fields)
			text = gen.DefaultCommentText
		}

		comments = append(comments, model.PlannedComment{
			AuthorPersonaID: p.ID,
			ReplyToIndex:    parent,
			Text:            text,
			Intent:          n.Intent,
			ScheduledAt:     when,
		})
		indexMap[i] = len(comments) - 1
	}
	return comments
}
