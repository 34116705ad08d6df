package gen

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"threadloom/internal/config"
	"threadloom/internal/model"
)

func testClient(t *testing.T) *OpenAIClient {
	t.Helper()
	t.Setenv("GEN_API_BASE_BACKOFF_MS", "1")
	t.Setenv("GEN_API_RPS", "1000")
	return NewOpenAIClient(config.LLMConfig{Provider: "openai", Model: "gpt-4o-mini", APIKey: "test-key"})
}

// stubResponses swaps in an httpDo that replays the given responses in
// order. Restores the real transport on cleanup.
func stubResponses(t *testing.T, responses ...*http.Response) *int {
	t.Helper()
	calls := 0
	origDo := httpDo
	httpDo = func(req *http.Request) (*http.Response, error) {
		if calls >= len(responses) {
			t.Fatalf("unexpected call %d", calls+1)
		}
		resp := responses[calls]
		calls++
		return resp, nil
	}
	t.Cleanup(func() { httpDo = origDo })
	return &calls
}

func okResponse(outputText string) *http.Response {
	body := fmt.Sprintf(`{"output_text": %q}`, outputText)
	return &http.Response{StatusCode: 200, Body: io.NopCloser(strings.NewReader(body))}
}

func statusResponse(code int) *http.Response {
	return &http.Response{StatusCode: code, Body: io.NopCloser(strings.NewReader(`{}`))}
}

func TestOpenAITopicParsesFencedJSON(t *testing.T) {
	c := testClient(t)
	stubResponses(t, okResponse("```json\n{\"topic\":\"Deck tools?\",\"topicKey\":\"deck-tools\",\"angle\":\"ask around\"}\n```"))
	idea, err := c.GenerateTopic(context.Background(), model.Forum{Name: "startups"}, []model.Keyword{{Text: "decks", IsActive: true}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if idea.TopicKey != "deck-tools" || idea.Topic != "Deck tools?" {
		t.Fatalf("got %+v", idea)
	}
}

func TestOpenAIRetriesOn429(t *testing.T) {
	c := testClient(t)
	calls := stubResponses(t,
		statusResponse(429),
		okResponse(`{"title":"t","body":"b"}`),
	)
	draft, err := c.GeneratePost(context.Background(), model.Persona{Username: "maya"}, model.Forum{Name: "startups"}, TopicIdea{Topic: "t"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if *calls != 2 {
		t.Fatalf("expected retry, got %d calls", *calls)
	}
	if draft.Title != "t" || draft.Body != "b" {
		t.Fatalf("got %+v", draft)
	}
}

func TestOpenAIClientErrorDoesNotRetry(t *testing.T) {
	c := testClient(t)
	calls := stubResponses(t, statusResponse(400))
	_, err := c.GenerateComment(context.Background(), CommentRequest{Persona: model.Persona{Username: "maya"}})
	if err == nil {
		t.Fatal("expected error on 400")
	}
	if *calls != 1 {
		t.Fatalf("4xx should not retry, got %d calls", *calls)
	}
}

func TestOpenAIMissingKey(t *testing.T) {
	t.Setenv("GEN_API_BASE_BACKOFF_MS", "1")
	c := NewOpenAIClient(config.LLMConfig{Provider: "openai", Model: "m"})
	if _, err := c.GenerateComment(context.Background(), CommentRequest{}); err == nil {
		t.Fatal("expected error with no api key")
	}
}

func TestOpenAIStructureNumericRepliesTo(t *testing.T) {
	c := testClient(t)
	stubResponses(t, okResponse(`{"thread_plan":[`+
		`{"username":"kenji_dev","repliesTo":"post","intent":"shares"},`+
		`{"username":"sofia.sketches","repliesTo":0,"intent":"asks"}]}`))
	nodes, err := c.PlanThreadStructure(context.Background(), StructureRequest{
		PostTitle:   "t",
		Author:      model.Persona{ID: "op", Username: "maya"},
		Personas:    []model.Persona{{ID: "p2", Username: "kenji_dev"}},
		TargetCount: 2,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 2 {
		t.Fatalf("want 2 nodes, got %d", len(nodes))
	}
	if nodes[1].RepliesTo != "0" {
		t.Fatalf("numeric repliesTo not normalized: %+v", nodes[1])
	}
	if idx, err := nodes[1].ParentIndex(); err != nil || idx != 0 {
		t.Fatalf("ParentIndex = %d, %v", idx, err)
	}
}

func TestExtractJSON(t *testing.T) {
	got := string(extractJSON("sure! here you go:\n```json\n{\"a\":1}\n```"))
	if got != `{"a":1}` {
		t.Fatalf("got %q", got)
	}
	if string(extractJSON("no json at all")) != "no json at all" {
		t.Fatal("non-json input should pass through")
	}
}

func TestCommentGenerationTimeoutHonorsContext(t *testing.T) {
	c := testClient(t)
	origDo := httpDo
	httpDo = func(req *http.Request) (*http.Response, error) {
		return statusResponse(500), nil
	}
	t.Cleanup(func() { httpDo = origDo })
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	time.Sleep(2 * time.Millisecond)
	if _, err := c.GenerateComment(ctx, CommentRequest{}); err == nil {
		t.Fatal("expected error once context expired")
	}
}
