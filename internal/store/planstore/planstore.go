package planstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "modernc.org/sqlite"

	"threadloom/internal/model"
)

// DB wraps the SQLite database holding campaign reference data and
// generated weekly plans. The planning core never queries it directly;
// the orchestrator reads week-scoped state into plain lists up front and
// writes results back through it.
type DB struct{ sql *sql.DB }

func Open(path string) (*DB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := d.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;`); err != nil {
		return nil, err
	}
	db := &DB{sql: d}
	if err := db.migrate(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) Close() error { return d.sql.Close() }

func (d *DB) migrate() error {
	_, err := d.sql.Exec(`
	CREATE TABLE IF NOT EXISTS personas (
	  id TEXT PRIMARY KEY,
	  campaign_id TEXT NOT NULL,
	  username TEXT NOT NULL,
	  bio TEXT,
	  is_active INTEGER NOT NULL DEFAULT 1,
	  is_operator INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_personas_campaign ON personas(campaign_id);
	CREATE TABLE IF NOT EXISTS forums (
	  campaign_id TEXT NOT NULL,
	  name TEXT NOT NULL,
	  is_active INTEGER NOT NULL DEFAULT 1,
	  PRIMARY KEY (campaign_id, name)
	);
	CREATE TABLE IF NOT EXISTS keywords (
	  campaign_id TEXT NOT NULL,
	  code TEXT NOT NULL,
	  text TEXT NOT NULL,
	  intent TEXT,
	  is_active INTEGER NOT NULL DEFAULT 1,
	  PRIMARY KEY (campaign_id, code)
	);
	CREATE TABLE IF NOT EXISTS weekly_plans (
	  id TEXT PRIMARY KEY,
	  campaign_id TEXT NOT NULL,
	  week_start INTEGER NOT NULL,
	  status TEXT NOT NULL,
	  posts_planned INTEGER NOT NULL DEFAULT 0,
	  comments_planned INTEGER NOT NULL DEFAULT 0,
	  created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_plans_campaign ON weekly_plans(campaign_id, week_start);
	CREATE TABLE IF NOT EXISTS planned_posts (
	  id TEXT PRIMARY KEY,
	  plan_id TEXT NOT NULL,
	  campaign_id TEXT NOT NULL,
	  forum_name TEXT NOT NULL,
	  author_persona_id TEXT NOT NULL,
	  title TEXT,
	  body TEXT,
	  topic_key TEXT,
	  keyword_codes TEXT,
	  scheduled_at INTEGER NOT NULL,
	  quality REAL,
	  risk REAL,
	  dedupe_hash TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_posts_campaign_sched ON planned_posts(campaign_id, scheduled_at);
	CREATE TABLE IF NOT EXISTS planned_comments (
	  id TEXT PRIMARY KEY,
	  post_id TEXT NOT NULL,
	  author_persona_id TEXT NOT NULL,
	  reply_to_index INTEGER NOT NULL DEFAULT -1,
	  reply_to_comment_id TEXT,
	  text TEXT,
	  intent TEXT,
	  scheduled_at INTEGER NOT NULL,
	  quality REAL
	);
	CREATE INDEX IF NOT EXISTS idx_comments_post ON planned_comments(post_id);
	CREATE TABLE IF NOT EXISTS topic_memory (
	  campaign_id TEXT NOT NULL,
	  topic_key TEXT NOT NULL,
	  last_used_at INTEGER NOT NULL,
	  times_used INTEGER NOT NULL DEFAULT 1,
	  last_forum_name TEXT,
	  PRIMARY KEY (campaign_id, topic_key)
	);
	`)
	return err
}

// --- campaign reference data ---

func (d *DB) UpsertPersona(ctx context.Context, p model.Persona) error {
	_, err := d.sql.ExecContext(ctx, `INSERT INTO personas(id, campaign_id, username, bio, is_active, is_operator) VALUES(?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET username=excluded.username, bio=excluded.bio, is_active=excluded.is_active, is_operator=excluded.is_operator`,
		p.ID, p.CampaignID, p.Username, p.Bio, boolInt(p.IsActive), boolInt(p.IsOperator))
	return err
}

func (d *DB) UpsertForum(ctx context.Context, f model.Forum) error {
	_, err := d.sql.ExecContext(ctx, `INSERT INTO forums(campaign_id, name, is_active) VALUES(?,?,?)
		ON CONFLICT(campaign_id, name) DO UPDATE SET is_active=excluded.is_active`,
		f.CampaignID, f.Name, boolInt(f.IsActive))
	return err
}

func (d *DB) UpsertKeyword(ctx context.Context, k model.Keyword) error {
	_, err := d.sql.ExecContext(ctx, `INSERT INTO keywords(campaign_id, code, text, intent, is_active) VALUES(?,?,?,?,?)
		ON CONFLICT(campaign_id, code) DO UPDATE SET text=excluded.text, intent=excluded.intent, is_active=excluded.is_active`,
		k.CampaignID, k.Code, k.Text, k.Intent, boolInt(k.IsActive))
	return err
}

func (d *DB) ActivePersonas(ctx context.Context, campaignID string) ([]model.Persona, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT id, username, bio, is_operator FROM personas WHERE campaign_id=? AND is_active=1 ORDER BY username`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Persona
	for rows.Next() {
		p := model.Persona{CampaignID: campaignID, IsActive: true}
		var op int
		if err := rows.Scan(&p.ID, &p.Username, &p.Bio, &op); err != nil {
			return nil, err
		}
		p.IsOperator = op != 0
		out = append(out, p)
	}
	return out, rows.Err()
}

func (d *DB) ActiveForums(ctx context.Context, campaignID string) ([]model.Forum, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT name FROM forums WHERE campaign_id=? AND is_active=1 ORDER BY name`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Forum
	for rows.Next() {
		f := model.Forum{CampaignID: campaignID, IsActive: true}
		if err := rows.Scan(&f.Name); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (d *DB) ActiveKeywords(ctx context.Context, campaignID string) ([]model.Keyword, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT code, text, intent FROM keywords WHERE campaign_id=? AND is_active=1 ORDER BY code`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Keyword
	for rows.Next() {
		k := model.Keyword{CampaignID: campaignID, IsActive: true}
		if err := rows.Scan(&k.Code, &k.Text, &k.Intent); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// --- weekly plans ---

func (d *DB) InsertPlan(ctx context.Context, p model.WeeklyPlan) error {
	_, err := d.sql.ExecContext(ctx, `INSERT INTO weekly_plans(id, campaign_id, week_start, status, posts_planned, comments_planned, created_at) VALUES(?,?,?,?,?,?,?)`,
		p.ID, p.CampaignID, p.WeekStart.Unix(), p.Status, p.PostsPlanned, p.CommentsPlanned, p.CreatedAt.Unix())
	return err
}

// FinishPlan transitions a plan out of the generating state and records
// its summary counts.
func (d *DB) FinishPlan(ctx context.Context, planID, status string, posts, comments int) error {
	_, err := d.sql.ExecContext(ctx, `UPDATE weekly_plans SET status=?, posts_planned=?, comments_planned=? WHERE id=?`,
		status, posts, comments, planID)
	return err
}

func (d *DB) LoadPlan(ctx context.Context, planID string) (model.WeeklyPlan, error) {
	row := d.sql.QueryRowContext(ctx, `SELECT id, campaign_id, week_start, status, posts_planned, comments_planned, created_at FROM weekly_plans WHERE id=?`, planID)
	var p model.WeeklyPlan
	var ws, ca int64
	if err := row.Scan(&p.ID, &p.CampaignID, &ws, &p.Status, &p.PostsPlanned, &p.CommentsPlanned, &ca); err != nil {
		return p, err
	}
	p.WeekStart = time.Unix(ws, 0).UTC()
	p.CreatedAt = time.Unix(ca, 0).UTC()
	return p, nil
}

// --- planned posts and comments ---

func (d *DB) InsertPost(ctx context.Context, p model.PlannedPost) error {
	codes, _ := json.Marshal(p.KeywordCodes)
	_, err := d.sql.ExecContext(ctx, `INSERT INTO planned_posts(id, plan_id, campaign_id, forum_name, author_persona_id, title, body, topic_key, keyword_codes, scheduled_at, quality, risk, dedupe_hash)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.PlanID, p.CampaignID, p.ForumName, p.AuthorPersonaID, p.Title, p.Body, p.TopicKey, string(codes), p.ScheduledAt.Unix(), p.QualityScore, p.RiskScore, p.DedupeHash)
	return err
}

func (d *DB) InsertComment(ctx context.Context, c model.PlannedComment) error {
	_, err := d.sql.ExecContext(ctx, `INSERT INTO planned_comments(id, post_id, author_persona_id, reply_to_index, reply_to_comment_id, text, intent, scheduled_at, quality)
		VALUES(?,?,?,?,?,?,?,?,?)`,
		c.ID, c.PostID, c.AuthorPersonaID, c.ReplyToIndex, c.ReplyToCommentID, c.Text, c.Intent, c.ScheduledAt.Unix(), c.QualityScore)
	return err
}

// PostsSince returns a campaign's planned posts scheduled at or after since.
func (d *DB) PostsSince(ctx context.Context, campaignID string, since time.Time) ([]model.PlannedPost, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT id, plan_id, forum_name, author_persona_id, title, body, topic_key, keyword_codes, scheduled_at, quality, risk, dedupe_hash
		FROM planned_posts WHERE campaign_id=? AND scheduled_at>=? ORDER BY scheduled_at`, campaignID, since.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.PlannedPost
	for rows.Next() {
		p := model.PlannedPost{CampaignID: campaignID}
		var codes string
		var sched int64
		if err := rows.Scan(&p.ID, &p.PlanID, &p.ForumName, &p.AuthorPersonaID, &p.Title, &p.Body, &p.TopicKey, &codes, &sched, &p.QualityScore, &p.RiskScore, &p.DedupeHash); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(codes), &p.KeywordCodes)
		p.ScheduledAt = time.Unix(sched, 0).UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

// CommentsSince returns a campaign's planned comments scheduled at or
// after since, across all of its posts.
func (d *DB) CommentsSince(ctx context.Context, campaignID string, since time.Time) ([]model.PlannedComment, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT c.id, c.post_id, c.author_persona_id, c.reply_to_index, c.reply_to_comment_id, c.text, c.intent, c.scheduled_at, c.quality
		FROM planned_comments c JOIN planned_posts p ON p.id=c.post_id
		WHERE p.campaign_id=? AND c.scheduled_at>=? ORDER BY c.scheduled_at`, campaignID, since.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanComments(rows)
}

// CommentsForPost returns one post's thread in chronological order.
func (d *DB) CommentsForPost(ctx context.Context, postID string) ([]model.PlannedComment, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT id, post_id, author_persona_id, reply_to_index, reply_to_comment_id, text, intent, scheduled_at, quality
		FROM planned_comments WHERE post_id=? ORDER BY scheduled_at`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanComments(rows)
}

// PostsForPlan returns a plan's posts in chronological order.
func (d *DB) PostsForPlan(ctx context.Context, planID string) ([]model.PlannedPost, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT id, campaign_id, forum_name, author_persona_id, title, body, topic_key, keyword_codes, scheduled_at, quality, risk, dedupe_hash
		FROM planned_posts WHERE plan_id=? ORDER BY scheduled_at`, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.PlannedPost
	for rows.Next() {
		p := model.PlannedPost{PlanID: planID}
		var codes string
		var sched int64
		if err := rows.Scan(&p.ID, &p.CampaignID, &p.ForumName, &p.AuthorPersonaID, &p.Title, &p.Body, &p.TopicKey, &codes, &sched, &p.QualityScore, &p.RiskScore, &p.DedupeHash); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(codes), &p.KeywordCodes)
		p.ScheduledAt = time.Unix(sched, 0).UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanComments(rows *sql.Rows) ([]model.PlannedComment, error) {
	var out []model.PlannedComment
	for rows.Next() {
		var c model.PlannedComment
		var replyTo sql.NullString
		var sched int64
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorPersonaID, &c.ReplyToIndex, &replyTo, &c.Text, &c.Intent, &sched, &c.QualityScore); err != nil {
			return nil, err
		}
		c.ReplyToCommentID = replyTo.String
		c.ScheduledAt = time.Unix(sched, 0).UTC()
		out = append(out, c)
	}
	return out, rows.Err()
}

// --- topic memory ---

func (d *DB) TopicMemories(ctx context.Context, campaignID string) ([]model.TopicMemory, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT topic_key, last_used_at, times_used, last_forum_name FROM topic_memory WHERE campaign_id=? ORDER BY last_used_at DESC`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.TopicMemory
	for rows.Next() {
		m := model.TopicMemory{CampaignID: campaignID}
		var used int64
		if err := rows.Scan(&m.TopicKey, &used, &m.TimesUsed, &m.LastForumName); err != nil {
			return nil, err
		}
		m.LastUsedAt = time.Unix(used, 0).UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpsertTopicMemory records one use of a topic key: first use inserts the
// row, reuse increments times_used and refreshes recency fields. Rows are
// never deleted.
func (d *DB) UpsertTopicMemory(ctx context.Context, campaignID, topicKey, forumName string, now time.Time) error {
	_, err := d.sql.ExecContext(ctx, `INSERT INTO topic_memory(campaign_id, topic_key, last_used_at, times_used, last_forum_name) VALUES(?,?,?,1,?)
		ON CONFLICT(campaign_id, topic_key) DO UPDATE SET times_used=times_used+1, last_used_at=excluded.last_used_at, last_forum_name=excluded.last_forum_name`,
		campaignID, topicKey, now.Unix(), forumName)
	return err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
