package gen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"threadloom/internal/model"
	"threadloom/internal/util"
)

// TemplateGenerator is the deterministic Generator used when no LLM
// provider is configured, and the substitution source when a provider
// call fails. Output is intentionally plain and casual; polished copy
// is exactly what the risk scorer penalizes.
type TemplateGenerator struct{}

func (TemplateGenerator) GenerateTopic(ctx context.Context, forum model.Forum, keywords []model.Keyword, recentTopicKeys []string) (TopicIdea, error) {
	if len(keywords) == 0 {
		return TopicIdea{}, errors.New("no keywords")
	}
	avoid := make(map[string]bool, len(recentTopicKeys))
	for _, k := range recentTopicKeys {
		avoid[k] = true
	}
	kw := keywords[0]
	key := util.Slugify(forum.Name + " " + kw.Text)
	for _, cand := range keywords {
		k := util.Slugify(forum.Name + " " + cand.Text)
		if !avoid[k] {
			kw, key = cand, k
			break
		}
	}
	return TopicIdea{
		Topic:    fmt.Sprintf("Anyone found a good way to handle %s?", kw.Text),
		TopicKey: key,
		Angle:    "asking for first-hand recommendations",
	}, nil
}

func (TemplateGenerator) GeneratePost(ctx context.Context, persona model.Persona, forum model.Forum, idea TopicIdea, keywords []model.Keyword) (PostDraft, error) {
	terms := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		terms = append(terms, kw.Text)
	}
	body := fmt.Sprintf(
		"been going back and forth on this for a couple weeks now. tried a few things around %s but nothing really clicked. curious what's actually working for people here, not what the docs say.",
		strings.Join(terms, " and "))
	return PostDraft{Title: idea.Topic, Body: body}, nil
}

func (TemplateGenerator) GenerateComment(ctx context.Context, req CommentRequest) (string, error) {
	intent := strings.ToLower(req.Intent)
	switch {
	case req.IsAuthorReply:
		return "thanks, this is super helpful! going to try that this week", nil
	case strings.Contains(intent, "experience"):
		return "i went through the same thing a few months back. what finally worked for me was starting way smaller than i thought i needed to.", nil
	case strings.Contains(intent, "question"):
		return "how long did it take before you noticed a difference?", nil
	case strings.Contains(intent, "recommend"):
		return "seconding this, made a real difference for us. took maybe two weeks to settle in.", nil
	case req.ParentText != "":
		return "same experience here tbh, agree with this", nil
	default:
		return DefaultCommentText, nil
	}
}
