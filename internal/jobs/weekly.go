package jobs

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"threadloom/internal/alloc"
	"threadloom/internal/analytics"
	"threadloom/internal/config"
	"threadloom/internal/gen"
	"threadloom/internal/logging"
	"threadloom/internal/metrics"
	"threadloom/internal/model"
	"threadloom/internal/schedule"
	"threadloom/internal/thread"
	"threadloom/internal/topics"
	"threadloom/internal/util"
)

// Progress steps, emitted in order for every slot.
const (
	StepPlanCreated        = "plan_created"
	StepGeneratingTopic    = "generating_topic"
	StepGeneratingPost     = "generating_post"
	StepGeneratingComments = "generating_comments"
	StepPostComplete       = "post_complete"
)

// ProgressEvent is a fire-and-forget status update; nothing in the run
// waits on or reacts to the listener.
type ProgressEvent struct {
	Step      string
	PostIndex int
	ForumName string
	Message   string
}

type ProgressFunc func(ProgressEvent)

// Store is the slice of the persistence collaborator a weekly run needs.
// All reads happen up front; the run itself works on plain lists.
type Store interface {
	ActivePersonas(ctx context.Context, campaignID string) ([]model.Persona, error)
	ActiveForums(ctx context.Context, campaignID string) ([]model.Forum, error)
	ActiveKeywords(ctx context.Context, campaignID string) ([]model.Keyword, error)
	PostsSince(ctx context.Context, campaignID string, since time.Time) ([]model.PlannedPost, error)
	CommentsSince(ctx context.Context, campaignID string, since time.Time) ([]model.PlannedComment, error)
	TopicMemories(ctx context.Context, campaignID string) ([]model.TopicMemory, error)
	InsertPlan(ctx context.Context, p model.WeeklyPlan) error
	FinishPlan(ctx context.Context, planID, status string, posts, comments int) error
	InsertPost(ctx context.Context, p model.PlannedPost) error
	InsertComment(ctx context.Context, c model.PlannedComment) error
	UpsertTopicMemory(ctx context.Context, campaignID, topicKey, forumName string, now time.Time) error
}

// ValidationError is fatal for the whole run and is raised before any
// persisted state is touched.
type ValidationError struct{ Reason string }

func (e *ValidationError) Error() string { return "validation: " + e.Reason }

// Result summarizes a completed run. Partial success is normal: a week may
// legitimately hold fewer posts than requested when caps exhaust the pools.
type Result struct {
	PlanID            string
	PostsGenerated    int
	CommentsGenerated int
	Errors            []string
}

// Runner generates one weekly plan. Slots are processed strictly
// sequentially: persona and forum caps and topic-repetition avoidance all
// observe the in-memory tallies, which only this run owns. Two concurrent
// runs for the same campaign would not see each other's in-flight counters;
// preventing that is the caller's job.
type Runner struct {
	Store       Store
	Gen         gen.Generator
	Planner     gen.StructurePlanner // primary; nil means fallback-only
	Rand        *rand.Rand
	Caps        config.CapsConfig
	QuietHours  []int
	ProductName string
	Progress    ProgressFunc
}

func (r *Runner) emit(ev ProgressEvent) {
	if r.Progress != nil {
		r.Progress(ev)
	}
}

// GenerateWeek plans postsPerWeek slots for the week starting at
// weekStart. It always completes and returns a Result; the error return is
// non-nil only for the fatal cases (validation, store read failure, plan
// row creation, forum allocation).
func (r *Runner) GenerateWeek(ctx context.Context, campaignID string, weekStart time.Time, postsPerWeek int) (Result, error) {
	start := time.Now()
	metrics.PlanRuns.Inc()
	var res Result

	rng := r.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	personas, err := r.Store.ActivePersonas(ctx, campaignID)
	if err != nil {
		return res, r.fatal(err)
	}
	forums, err := r.Store.ActiveForums(ctx, campaignID)
	if err != nil {
		return res, r.fatal(err)
	}
	keywords, err := r.Store.ActiveKeywords(ctx, campaignID)
	if err != nil {
		return res, r.fatal(err)
	}
	switch {
	case len(personas) == 0:
		return res, r.fatal(&ValidationError{Reason: "no active personas"})
	case len(forums) == 0:
		return res, r.fatal(&ValidationError{Reason: "no active forums"})
	case len(keywords) == 0:
		return res, r.fatal(&ValidationError{Reason: "no active keywords"})
	}

	existingPosts, err := r.Store.PostsSince(ctx, campaignID, weekStart)
	if err != nil {
		return res, r.fatal(err)
	}
	existingComments, err := r.Store.CommentsSince(ctx, campaignID, weekStart)
	if err != nil {
		return res, r.fatal(err)
	}
	memories, err := r.Store.TopicMemories(ctx, campaignID)
	if err != nil {
		return res, r.fatal(err)
	}
	usage := analytics.TallyWeek(existingPosts, existingComments)

	plan := model.WeeklyPlan{
		ID:         uuid.New().String(),
		CampaignID: campaignID,
		WeekStart:  weekStart,
		Status:     model.PlanGenerating,
		CreatedAt:  time.Now().UTC(),
	}
	if err := r.Store.InsertPlan(ctx, plan); err != nil {
		return res, r.fatal(err)
	}
	res.PlanID = plan.ID
	r.emit(ProgressEvent{Step: StepPlanCreated, Message: fmt.Sprintf("planning %d posts", postsPerWeek)})

	forumNames, err := alloc.SelectForumsForWeek(rng, forums, postsPerWeek, usage)
	if err != nil {
		_ = r.Store.FinishPlan(ctx, plan.ID, model.PlanFailed, 0, 0)
		return res, r.fatal(err)
	}
	slotTimes := schedule.SlotTimes(rng, weekStart, postsPerWeek, r.QuietHours)

	usedCodes := make(map[string]bool)
	fallback := thread.FallbackPlanner{}
	templates := gen.TemplateGenerator{}

	for i, forumName := range forumNames {
		forum := findForum(forums, forumName)

		author := alloc.SelectPostAuthor(rng, personas, forum, usage, r.Caps.PostsPerPersona)
		if author == nil {
			res.Errors = append(res.Errors, fmt.Sprintf("slot %d (%s): every persona is at the weekly post cap", i, forumName))
			metrics.SlotErrors.Inc()
			continue
		}

		r.emit(ProgressEvent{Step: StepGeneratingTopic, PostIndex: i, ForumName: forumName})
		kws := topics.SelectKeywords(keywords, usedCodes, 3)
		idea, err := topics.ChooseTopic(ctx, r.Gen, forum, kws, memories)
		if err != nil {
			metrics.IncGenFallback("topic")
			logging.Warn("topic_generation_failed", map[string]any{"forum": forumName, "error": err.Error()})
			idea, err = templates.GenerateTopic(ctx, forum, kws, topics.RecentKeys(memories, 20))
			if err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("slot %d (%s): no topic: %v", i, forumName, err))
				metrics.SlotErrors.Inc()
				continue
			}
		}
		codes := make([]string, 0, len(kws))
		for _, kw := range kws {
			usedCodes[kw.Code] = true
			codes = append(codes, kw.Code)
		}

		r.emit(ProgressEvent{Step: StepGeneratingPost, PostIndex: i, ForumName: forumName, Message: idea.Topic})
		draft, err := r.Gen.GeneratePost(ctx, author.Persona, forum, idea, kws)
		if err != nil {
			metrics.IncGenFallback("post")
			logging.Warn("post_generation_failed", map[string]any{"forum": forumName, "error": err.Error()})
			draft, _ = templates.GeneratePost(ctx, author.Persona, forum, idea, kws)
		}

		post := model.PlannedPost{
			ID:              uuid.New().String(),
			PlanID:          plan.ID,
			CampaignID:      campaignID,
			ForumName:       forumName,
			AuthorPersonaID: author.Persona.ID,
			Title:           draft.Title,
			Body:            draft.Body,
			TopicKey:        idea.TopicKey,
			KeywordCodes:    codes,
			ScheduledAt:     slotTimes[i],
			DedupeHash:      util.DedupeHash(forumName, idea.TopicKey, draft.Title),
		}

		commenters := alloc.SelectCommenters(rng, personas, author.Persona.ID, usage, r.Caps.CommentsPerPost, r.Caps.CommentsPerPersona)
		pool := make([]model.Persona, 0, len(commenters)+1)
		for _, c := range commenters {
			pool = append(pool, c.Persona)
		}

		r.emit(ProgressEvent{Step: StepGeneratingComments, PostIndex: i, ForumName: forumName,
			Message: fmt.Sprintf("%d commenters", len(commenters))})
		nodes := thread.PlanStructure(ctx, r.Planner, fallback, gen.StructureRequest{
			PostTitle:   post.Title,
			PostBody:    post.Body,
			Author:      author.Persona,
			Personas:    pool,
			TargetCount: len(commenters),
		})
		resolvePool := appendIfMissing(pool, author.Persona)
		comments := thread.BuildThread(ctx, rng, r.Gen, nodes, post, author.Persona, resolvePool)

		post.QualityScore = model.QualityScore(comments, author.Persona.ID)
		post.RiskScore = model.RiskScore(comments, author.Persona.ID, post.Body, r.ProductName)

		if err := r.Store.InsertPost(ctx, post); err != nil {
			// Without its post row the whole thread is abandoned.
			res.Errors = append(res.Errors, fmt.Sprintf("slot %d (%s): insert post: %v", i, forumName, err))
			metrics.SlotErrors.Inc()
			continue
		}
		res.PostsGenerated++
		usage.AddPost(author.Persona.ID, forumName)

		ids := make([]string, len(comments))
		for j := range comments {
			ids[j] = uuid.New().String()
		}
		for j := range comments {
			comments[j].ID = ids[j]
			comments[j].PostID = post.ID
			comments[j].QualityScore = post.QualityScore
			if comments[j].ReplyToIndex >= 0 {
				comments[j].ReplyToCommentID = ids[comments[j].ReplyToIndex]
			}
			if err := r.Store.InsertComment(ctx, comments[j]); err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("slot %d (%s): insert comment: %v", i, forumName, err))
				continue
			}
			res.CommentsGenerated++
			usage.AddComment(comments[j].AuthorPersonaID)
		}

		now := time.Now().UTC()
		if err := topics.RecordUsage(ctx, r.Store, campaignID, idea.TopicKey, forumName, now); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("slot %d (%s): record topic: %v", i, forumName, err))
		}
		// Keep the in-pass avoid-list current for later slots.
		memories = append(memories, model.TopicMemory{CampaignID: campaignID, TopicKey: idea.TopicKey, LastUsedAt: now, TimesUsed: 1, LastForumName: forumName})

		r.emit(ProgressEvent{Step: StepPostComplete, PostIndex: i, ForumName: forumName,
			Message: fmt.Sprintf("quality=%.2f risk=%.2f comments=%d", post.QualityScore, post.RiskScore, len(comments))})
	}

	if err := r.Store.FinishPlan(ctx, plan.ID, model.PlanReady, res.PostsGenerated, res.CommentsGenerated); err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("finish plan: %v", err))
	}
	logging.Info("week_planned", map[string]any{
		"campaign": campaignID,
		"plan":     plan.ID,
		"posts":    res.PostsGenerated,
		"comments": res.CommentsGenerated,
		"errors":   len(res.Errors),
	})
	metrics.ObservePlanDuration(start)
	return res, nil
}

func (r *Runner) fatal(err error) error {
	metrics.PlanErrors.Inc()
	logging.Error("week_plan_failed", map[string]any{"error": err.Error()})
	return err
}

func findForum(forums []model.Forum, name string) model.Forum {
	for _, f := range forums {
		if f.Name == name {
			return f
		}
	}
	return model.Forum{Name: name, IsActive: true}
}

func appendIfMissing(pool []model.Persona, p model.Persona) []model.Persona {
	for _, q := range pool {
		if q.ID == p.ID {
			return pool
		}
	}
	return append(pool, p)
}
