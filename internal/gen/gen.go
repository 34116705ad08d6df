package gen

import (
	"context"
	"fmt"
	"strconv"

	"threadloom/internal/model"
)

// DefaultCommentText substitutes for a failed comment generation call.
const DefaultCommentText = "Thanks for sharing!"

// TopicIdea is a discussion topic proposal for one post slot.
type TopicIdea struct {
	Topic    string `json:"topic"`
	TopicKey string `json:"topicKey"`
	Angle    string `json:"angle"`
}

// PostDraft is generated post prose.
type PostDraft struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// CommentRequest carries everything the generator needs for one comment.
type CommentRequest struct {
	Persona       model.Persona
	PostTitle     string
	PostBody      string
	ParentText    string // empty when replying directly to the post
	IsAuthorReply bool
	Intent        string
	LengthHint    string
}

// StructureRequest asks for a reply graph plus one-line intents, without
// any prose. Splitting structure from text keeps threads from collapsing
// into repetitive single-call output.
type StructureRequest struct {
	PostTitle   string
	PostBody    string
	Author      model.Persona
	Personas    []model.Persona
	TargetCount int
}

// PlanNode is one planned comment: who writes it, what it replies to
// ("post" or the index of an earlier node), and why.
type PlanNode struct {
	Username  string `json:"username"`
	RepliesTo string `json:"repliesTo"`
	Intent    string `json:"intent"`
}

// ParentIndex resolves RepliesTo to a comment index, -1 meaning the post.
func (n PlanNode) ParentIndex() (int, error) {
	if n.RepliesTo == "post" {
		return -1, nil
	}
	idx, err := strconv.Atoi(n.RepliesTo)
	if err != nil {
		return 0, fmt.Errorf("bad repliesTo %q", n.RepliesTo)
	}
	return idx, nil
}

// Generator produces prose for posts, comments, and topics. All methods
// are fallible; callers substitute deterministic defaults on failure
// rather than propagating errors as fatal.
type Generator interface {
	GenerateTopic(ctx context.Context, forum model.Forum, keywords []model.Keyword, recentTopicKeys []string) (TopicIdea, error)
	GeneratePost(ctx context.Context, persona model.Persona, forum model.Forum, idea TopicIdea, keywords []model.Keyword) (PostDraft, error)
	GenerateComment(ctx context.Context, req CommentRequest) (string, error)
}

// StructurePlanner plans who replies to whom in a comment thread. The
// primary implementation is the LLM client; a deterministic fallback
// implements the same interface and is selected when the primary fails.
type StructurePlanner interface {
	PlanThreadStructure(ctx context.Context, req StructureRequest) ([]PlanNode, error)
}
