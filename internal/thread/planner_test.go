package thread

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"threadloom/internal/gen"
	"threadloom/internal/model"
)

var (
	author = model.Persona{ID: "op", Username: "maya_builds", IsActive: true, IsOperator: true}
	p2     = model.Persona{ID: "p2", Username: "kenji_dev", IsActive: true}
	p3     = model.Persona{ID: "p3", Username: "sofia.sketches", IsActive: true}
	pool   = []model.Persona{author, p2, p3}
)

type fixedPlanner struct {
	nodes []gen.PlanNode
	err   error
}

func (f fixedPlanner) PlanThreadStructure(context.Context, gen.StructureRequest) ([]gen.PlanNode, error) {
	return f.nodes, f.err
}

type echoGenerator struct {
	failFor string // username whose comment call fails
}

func (echoGenerator) GenerateTopic(context.Context, model.Forum, []model.Keyword, []string) (gen.TopicIdea, error) {
	return gen.TopicIdea{}, errors.New("not used")
}

func (echoGenerator) GeneratePost(context.Context, model.Persona, model.Forum, gen.TopicIdea, []model.Keyword) (gen.PostDraft, error) {
	return gen.PostDraft{}, errors.New("not used")
}

func (g echoGenerator) GenerateComment(_ context.Context, req gen.CommentRequest) (string, error) {
	if req.Persona.Username == g.failFor {
		return "", errors.New("generation failed")
	}
	return "comment by " + req.Persona.Username, nil
}

func structureReq(target int) gen.StructureRequest {
	return gen.StructureRequest{
		PostTitle:   "anyone found a good deck tool?",
		PostBody:    "spending way too long on slides lately",
		Author:      author,
		Personas:    pool,
		TargetCount: target,
	}
}

func TestFallbackPlannerShapes(t *testing.T) {
	var fb FallbackPlanner
	nodes, err := fb.PlanThreadStructure(context.Background(), structureReq(3))
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 3 {
		t.Fatalf("want 3 nodes, got %d", len(nodes))
	}
	if nodes[0].Username == author.Username || nodes[0].RepliesTo != "post" {
		t.Fatalf("first node should be a stranger replying to the post: %+v", nodes[0])
	}
	if nodes[1].RepliesTo != "0" {
		t.Fatalf("second node should reply to the first: %+v", nodes[1])
	}
	if nodes[2].Username != author.Username {
		t.Fatalf("closing node should be the author: %+v", nodes[2])
	}

	nodes, err = fb.PlanThreadStructure(context.Background(), structureReq(1))
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 1 {
		t.Fatalf("want 1 node for target 1, got %d", len(nodes))
	}
}

func TestFallbackPlannerNeedsStrangers(t *testing.T) {
	var fb FallbackPlanner
	req := structureReq(2)
	req.Personas = []model.Persona{author}
	if _, err := fb.PlanThreadStructure(context.Background(), req); err == nil {
		t.Fatal("expected error with no non-author personas")
	}
}

func TestPlanStructureFallsBackOnPrimaryError(t *testing.T) {
	primary := fixedPlanner{err: errors.New("model unavailable")}
	nodes := PlanStructure(context.Background(), primary, FallbackPlanner{}, structureReq(3))
	if len(nodes) != 3 {
		t.Fatalf("fallback plan missing, got %v", nodes)
	}
}

func TestPlanStructureFallsBackOnInvalidPlan(t *testing.T) {
	primary := fixedPlanner{nodes: []gen.PlanNode{{Username: "kenji_dev", RepliesTo: "", Intent: "shares"}}}
	nodes := PlanStructure(context.Background(), primary, FallbackPlanner{}, structureReq(2))
	for _, n := range nodes {
		if strings.TrimSpace(n.RepliesTo) == "" {
			t.Fatalf("invalid primary plan leaked through: %v", nodes)
		}
	}
}

func TestPlanStructureKeepsValidPrimary(t *testing.T) {
	want := []gen.PlanNode{{Username: "kenji_dev", RepliesTo: "post", Intent: "asks a question"}}
	nodes := PlanStructure(context.Background(), fixedPlanner{nodes: want}, FallbackPlanner{}, structureReq(1))
	if len(nodes) != 1 || nodes[0].Username != "kenji_dev" {
		t.Fatalf("valid primary plan replaced: %v", nodes)
	}
}

func TestBuildThreadResolvesAndSchedules(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	post := model.PlannedPost{
		Title:       "anyone found a good deck tool?",
		Body:        "spending way too long on slides",
		ScheduledAt: time.Date(2026, 8, 4, 10, 0, 0, 0, time.UTC),
	}
	nodes := []gen.PlanNode{
		{Username: "KENJI_DEV", RepliesTo: "post", Intent: "shares relevant experience"},
		{Username: "sofia.sketches", RepliesTo: "0", Intent: "asks a follow-up question"},
		{Username: "maya_builds", RepliesTo: "1", Intent: "thanks"},
	}
	comments := BuildThread(context.Background(), rng, echoGenerator{}, nodes, post, author, pool)
	if len(comments) != 3 {
		t.Fatalf("want 3 comments, got %d", len(comments))
	}
	// case-insensitive resolution
	if comments[0].AuthorPersonaID != "p2" {
		t.Fatalf("username not resolved case-insensitively: %+v", comments[0])
	}
	if comments[0].ReplyToIndex != -1 || comments[1].ReplyToIndex != 0 || comments[2].ReplyToIndex != 1 {
		t.Fatalf("reply indexes wrong: %+v", comments)
	}
	first := comments[0].ScheduledAt.Sub(post.ScheduledAt)
	if first < 15*time.Minute || first > 45*time.Minute {
		t.Fatalf("first comment delay %v outside [15m,45m]", first)
	}
	for i := 1; i < len(comments); i++ {
		gap := comments[i].ScheduledAt.Sub(comments[i-1].ScheduledAt)
		if gap < 5*time.Minute || gap > 25*time.Minute {
			t.Fatalf("comment %d gap %v outside [5m,25m]", i, gap)
		}
	}
}

func TestBuildThreadSkipsUnknownUsername(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	post := model.PlannedPost{Title: "t", Body: "b", ScheduledAt: time.Now()}
	nodes := []gen.PlanNode{
		{Username: "nobody_here", RepliesTo: "post", Intent: "shares"},
		{Username: "kenji_dev", RepliesTo: "0", Intent: "asks"},
	}
	comments := BuildThread(context.Background(), rng, echoGenerator{}, nodes, post, author, pool)
	if len(comments) != 1 {
		t.Fatalf("want 1 comment, got %d", len(comments))
	}
	// the surviving node pointed at the skipped one; it degrades to the post
	if comments[0].ReplyToIndex != -1 {
		t.Fatalf("dangling parent should degrade to -1, got %d", comments[0].ReplyToIndex)
	}
}

func TestBuildThreadDefaultTextOnGenerationFailure(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	post := model.PlannedPost{Title: "t", Body: "b", ScheduledAt: time.Now()}
	nodes := []gen.PlanNode{{Username: "kenji_dev", RepliesTo: "post", Intent: "shares"}}
	comments := BuildThread(context.Background(), rng, echoGenerator{failFor: "kenji_dev"}, nodes, post, author, pool)
	if len(comments) != 1 || comments[0].Text != gen.DefaultCommentText {
		t.Fatalf("expected default text fallback, got %+v", comments)
	}
}
