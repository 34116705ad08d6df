package model

import "time"

// Persona is a fictitious author identity. Read-only to the planner;
// lifecycle is owned by whoever seeds the campaign.
type Persona struct {
	ID         string
	CampaignID string
	Username   string
	Bio        string
	IsActive   bool
	IsOperator bool
}

// Forum is a posting venue. Only active forums receive slots.
type Forum struct {
	CampaignID string
	Name       string
	IsActive   bool
}

// Keyword is a campaign talking point with a stable short code.
type Keyword struct {
	CampaignID string
	Code       string
	Text       string
	Intent     string
	IsActive   bool
}

// WeeklyPlan status values.
const (
	PlanGenerating = "generating"
	PlanReady      = "ready"
	PlanFailed     = "failed"
)

// WeeklyPlan is one campaign-week of scheduled content. It is created in
// the generating state and transitioned exactly once.
type WeeklyPlan struct {
	ID              string
	CampaignID      string
	WeekStart       time.Time
	Status          string
	PostsPlanned    int
	CommentsPlanned int
	CreatedAt       time.Time
}

// PlannedPost is a post slot that has been fully drafted. Quality and risk
// are computed after its comment thread is planned and written back here.
type PlannedPost struct {
	ID              string
	PlanID          string
	CampaignID      string
	ForumName       string
	AuthorPersonaID string
	Title           string
	Body            string
	TopicKey        string
	KeywordCodes    []string
	ScheduledAt     time.Time
	QualityScore    float64
	RiskScore       float64
	DedupeHash      string
}

// PlannedComment is one node of a post's reply tree. ReplyToIndex points at
// an earlier comment in the same ordered thread; -1 means a top-level reply
// to the post. Parent references are indices into the ordered list, so the
// structure cannot contain cycles.
type PlannedComment struct {
	ID               string
	PostID           string
	AuthorPersonaID  string
	ReplyToIndex     int
	ReplyToCommentID string
	Text             string
	Intent           string
	ScheduledAt      time.Time
	QualityScore     float64
}

// TopicMemory records a previously used discussion topic for a campaign.
type TopicMemory struct {
	CampaignID    string
	TopicKey      string
	LastUsedAt    time.Time
	TimesUsed     int
	LastForumName string
}
