package gen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"threadloom/internal/config"
	"threadloom/internal/metrics"
	"threadloom/internal/model"
)

// OpenAIClient implements Generator and StructurePlanner against the
// OpenAI Responses API. Prompts are kept small and grounded; responses
// are parsed leniently since model output framing drifts.
type OpenAIClient struct {
	baseURL     string
	model       string
	apiKey      string
	limiter     *rate.Limiter
	maxAttempts int
	baseBackoff time.Duration
}

func NewOpenAIClient(cfg config.LLMConfig) *OpenAIClient {
	return &OpenAIClient{
		baseURL:     "https://api.openai.com/v1/responses",
		model:       cfg.Model,
		apiKey:      cfg.APIKey,
		limiter:     newDefaultLimiter(),
		maxAttempts: getEnvInt("GEN_API_MAX_ATTEMPTS", 3),
		baseBackoff: time.Duration(getEnvInt("GEN_API_BASE_BACKOFF_MS", 500)) * time.Millisecond,
	}
}

func (c *OpenAIClient) GenerateTopic(ctx context.Context, forum model.Forum, keywords []model.Keyword, recentTopicKeys []string) (TopicIdea, error) {
	terms := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		terms = append(terms, kw.Text)
	}
	prompt := fmt.Sprintf(
		"Propose one organic discussion topic for the forum %q touching on: %s.\n"+
			"Do not repeat any of these recently used topic keys: %s.\n"+
			`Answer with JSON only: {"topic":"...","topicKey":"short-kebab-key","angle":"one line on how to frame it"}`,
		forum.Name, strings.Join(terms, ", "), strings.Join(recentTopicKeys, ", "))
	out, err := c.complete(ctx, "topic", prompt)
	if err != nil {
		return TopicIdea{}, err
	}
	var idea TopicIdea
	if err := json.Unmarshal(extractJSON(out), &idea); err != nil {
		return TopicIdea{}, fmt.Errorf("parse topic: %w", err)
	}
	if idea.Topic == "" || idea.TopicKey == "" {
		return TopicIdea{}, errors.New("incomplete topic")
	}
	return idea, nil
}

func (c *OpenAIClient) GeneratePost(ctx context.Context, persona model.Persona, forum model.Forum, idea TopicIdea, keywords []model.Keyword) (PostDraft, error) {
	terms := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		terms = append(terms, kw.Text)
	}
	prompt := fmt.Sprintf(
		"You are %s (%s) writing a post in the forum %q.\n"+
			"Topic: %s\nAngle: %s\nWork in naturally if possible: %s.\n"+
			"Write like a regular forum user: casual, specific, under 80 words, no links, no marketing tone.\n"+
			`Answer with JSON only: {"title":"...","body":"..."}`,
		persona.Username, persona.Bio, forum.Name, idea.Topic, idea.Angle, strings.Join(terms, ", "))
	out, err := c.complete(ctx, "post", prompt)
	if err != nil {
		return PostDraft{}, err
	}
	var draft PostDraft
	if err := json.Unmarshal(extractJSON(out), &draft); err != nil {
		return PostDraft{}, fmt.Errorf("parse post: %w", err)
	}
	if draft.Title == "" || draft.Body == "" {
		return PostDraft{}, errors.New("incomplete post draft")
	}
	return draft, nil
}

func (c *OpenAIClient) GenerateComment(ctx context.Context, req CommentRequest) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s (%s) commenting on the forum post below.\n", req.Persona.Username, req.Persona.Bio)
	fmt.Fprintf(&b, "Post: %s\n%s\n", req.PostTitle, req.PostBody)
	if req.ParentText != "" {
		fmt.Fprintf(&b, "You are replying to this comment: %s\n", req.ParentText)
	}
	if req.IsAuthorReply {
		b.WriteString("You wrote the original post and are replying in your own thread.\n")
	}
	if req.Intent != "" {
		fmt.Fprintf(&b, "Intent of your comment: %s.\n", req.Intent)
	}
	hint := req.LengthHint
	if hint == "" {
		hint = "one or two short sentences"
	}
	fmt.Fprintf(&b, "Write %s, lowercase-casual forum register, no links. Reply with the comment text only.", hint)
	out, err := c.complete(ctx, "comment", b.String())
	if err != nil {
		return "", err
	}
	// Accept either bare text or a {"text": ...} wrapper.
	var wrapped struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(extractJSON(out), &wrapped); err == nil && wrapped.Text != "" {
		return wrapped.Text, nil
	}
	text := strings.TrimSpace(out)
	if text == "" {
		return "", errors.New("empty comment")
	}
	return text, nil
}

func (c *OpenAIClient) PlanThreadStructure(ctx context.Context, req StructureRequest) ([]PlanNode, error) {
	names := make([]string, 0, len(req.Personas))
	for _, p := range req.Personas {
		names = append(names, fmt.Sprintf("%s (%s)", p.Username, p.Bio))
	}
	prompt := fmt.Sprintf(
		"Plan the reply structure for a forum thread. Post by %s: %q.\n%s\n"+
			"Available commenters: %s.\n"+
			"Plan exactly %d comments. No prose, only who replies to what and a one-line intent each.\n"+
			`Answer with JSON only: {"thread_plan":[{"username":"...","repliesTo":"post" or a comment index,"intent":"..."}]}`,
		req.Author.Username, req.PostTitle, req.PostBody, strings.Join(names, "; "), req.TargetCount)
	out, err := c.complete(ctx, "structure", prompt)
	if err != nil {
		return nil, err
	}
	var wire struct {
		ThreadPlan []struct {
			Username  string `json:"username"`
			RepliesTo any    `json:"repliesTo"`
			Intent    string `json:"intent"`
		} `json:"thread_plan"`
	}
	if err := json.Unmarshal(extractJSON(out), &wire); err != nil {
		return nil, fmt.Errorf("parse thread plan: %w", err)
	}
	nodes := make([]PlanNode, 0, len(wire.ThreadPlan))
	for _, w := range wire.ThreadPlan {
		n := PlanNode{Username: w.Username, Intent: w.Intent}
		switch v := w.RepliesTo.(type) {
		case string:
			n.RepliesTo = v
		case float64:
			n.RepliesTo = strconv.Itoa(int(v))
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// complete performs one rate-limited, retried Responses API call and
// returns the raw output text.
func (c *OpenAIClient) complete(ctx context.Context, op, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("missing api key")
	}
	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"input": []oaMessage{{Role: "user", Content: []oaBlock{{Type: "text", Text: prompt}}}},
	})
	if err != nil {
		return "", err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			metrics.IncGenRetry(op)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(c.baseBackoff << attempt):
			}
		}
		req, err := httpNewRequest(ctx, c.baseURL, "POST", string(body))
		if err != nil {
			return "", err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")
		resp, err := httpDo(req)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode == 429 || resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("llm status %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return "", fmt.Errorf("llm status %d", resp.StatusCode)
		}
		text, err := parseResponseText(resp)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		if strings.TrimSpace(text) == "" {
			lastErr = errors.New("empty llm output")
			continue
		}
		return text, nil
	}
	return "", lastErr
}

// extractJSON pulls the outermost JSON object out of model output that may
// be wrapped in code fences or prose.
func extractJSON(s string) []byte {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return []byte(s)
	}
	return []byte(s[start : end+1])
}
