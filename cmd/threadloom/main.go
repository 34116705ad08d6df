package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"threadloom/internal/cmdlog"
	"threadloom/internal/config"
	"threadloom/internal/gen"
	"threadloom/internal/jobs"
	"threadloom/internal/metrics"
	"threadloom/internal/model"
	"threadloom/internal/schedule"
	"threadloom/internal/store/planstore"
	"threadloom/internal/theme"
)

func main() {
	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	switch cmd {
	case "init":
		cmdInit()
	case "seed":
		_ = cmdlog.Run("seed", cmdSeed)
	case "plan":
		_ = cmdlog.Run("plan", cmdPlan)
	case "preview":
		_ = cmdlog.Run("preview", cmdPreview)
	case "score":
		_ = cmdlog.Run("score", cmdScore)
	case "schedule":
		cmdSchedule()
	default:
		printHelp()
	}
}

func printHelp() {
	theme.PrintBanner()
	fmt.Println("Usage: threadloom <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  init        Create a config file at ./threadloom.yaml")
	fmt.Println("  seed        Seed demo personas, forums, and keywords")
	fmt.Println("  plan        Generate the weekly post and comment plan")
	fmt.Println("  preview     Show the posts of a generated plan")
	fmt.Println("  score       Re-score a plan's threads for quality and risk")
	fmt.Println("  schedule    Show the next posting window")
}

func cmdInit() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	path := fs.String("path", "./threadloom.yaml", "path to write config")
	_ = fs.Parse(os.Args[2:])
	cfg := config.Default()
	if err := config.Save(*path, cfg); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
	abs, _ := filepath.Abs(*path)
	theme.PrintBanner()
	fmt.Println("Config written to:", abs)
}

func cmdSeed() error {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	cfgPath := fs.String("config", "./threadloom.yaml", "config path")
	_ = fs.Parse(os.Args[2:])
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	db, err := planstore.Open(cfg.Storage.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	ctx := context.Background()
	id := cfg.Campaign.ID

	personas := []model.Persona{
		{ID: "p-operator", CampaignID: id, Username: "maya_builds", Bio: "indie founder, shipping small saas tools", IsActive: true, IsOperator: true},
		{ID: "p-dev", CampaignID: id, Username: "kenji_dev", Bio: "backend developer, mostly golang and postgres", IsActive: true},
		{ID: "p-design", CampaignID: id, Username: "sofia.sketches", Bio: "freelance ux designer, recovering agency person", IsActive: true},
		{ID: "p-growth", CampaignID: id, Username: "tomgrowth", Bio: "growth marketer for early stage startups", IsActive: true},
	}
	forums := []model.Forum{
		{CampaignID: id, Name: "startups", IsActive: true},
		{CampaignID: id, Name: "webdev", IsActive: true},
		{CampaignID: id, Name: "productivity", IsActive: true},
	}
	keywords := []model.Keyword{
		{CampaignID: id, Code: "kw-deck", Text: "putting together pitch decks", Intent: "pain", IsActive: true},
		{CampaignID: id, Code: "kw-slides", Text: "slide design taking forever", Intent: "pain", IsActive: true},
		{CampaignID: id, Code: "kw-tools", Text: "presentation tools", Intent: "category", IsActive: true},
		{CampaignID: id, Code: "kw-templates", Text: "reusable templates", Intent: "feature", IsActive: true},
	}
	for _, p := range personas {
		if err := db.UpsertPersona(ctx, p); err != nil {
			return err
		}
	}
	for _, f := range forums {
		if err := db.UpsertForum(ctx, f); err != nil {
			return err
		}
	}
	for _, k := range keywords {
		if err := db.UpsertKeyword(ctx, k); err != nil {
			return err
		}
	}
	fmt.Printf("Seeded campaign %q: %d personas, %d forums, %d keywords\n", id, len(personas), len(forums), len(keywords))
	return nil
}

func cmdPlan() error {
	fs := flag.NewFlagSet("plan", flag.ExitOnError)
	cfgPath := fs.String("config", "./threadloom.yaml", "config path")
	week := fs.String("week", "", "week start date YYYY-MM-DD (default: upcoming Monday)")
	posts := fs.Int("posts", 0, "posts to plan (default from config)")
	seed := fs.Int64("seed", 0, "random seed (0 = time-based)")
	_ = fs.Parse(os.Args[2:])
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	metrics.StartServer(cfg.Metrics.Addr)
	db, err := planstore.Open(cfg.Storage.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	weekStart := nextMonday(time.Now().UTC())
	if *week != "" {
		weekStart, err = time.Parse("2006-01-02", *week)
		if err != nil {
			return err
		}
	}
	n := cfg.Plan.PostsPerWeek
	if *posts > 0 {
		n = *posts
	}
	var rng *rand.Rand
	if *seed != 0 {
		rng = rand.New(rand.NewSource(*seed))
	}

	var generator gen.Generator = gen.TemplateGenerator{}
	var planner gen.StructurePlanner
	if cfg.LLM.Provider == "openai" {
		client := gen.NewOpenAIClient(cfg.LLM)
		generator = client
		planner = client
	}

	runner := &jobs.Runner{
		Store:       db,
		Gen:         generator,
		Planner:     planner,
		Rand:        rng,
		Caps:        cfg.Caps,
		QuietHours:  cfg.Plan.QuietHours,
		ProductName: cfg.Campaign.ProductName,
		Progress: func(ev jobs.ProgressEvent) {
			if ev.ForumName != "" {
				fmt.Printf("[%s] slot %d forum=%s %s\n", ev.Step, ev.PostIndex, ev.ForumName, ev.Message)
			} else {
				fmt.Printf("[%s] %s\n", ev.Step, ev.Message)
			}
		},
	}
	res, err := runner.GenerateWeek(context.Background(), cfg.Campaign.ID, weekStart, n)
	if err != nil {
		return err
	}
	fmt.Printf("Plan %s: %d posts, %d comments, %d errors\n", res.PlanID, res.PostsGenerated, res.CommentsGenerated, len(res.Errors))
	for _, e := range res.Errors {
		fmt.Println("  -", e)
	}
	return nil
}

func cmdPreview() error {
	fs := flag.NewFlagSet("preview", flag.ExitOnError)
	cfgPath := fs.String("config", "./threadloom.yaml", "config path")
	planID := fs.String("plan", "", "plan id")
	_ = fs.Parse(os.Args[2:])
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	db, err := planstore.Open(cfg.Storage.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	ctx := context.Background()
	posts, err := db.PostsForPlan(ctx, *planID)
	if err != nil {
		return err
	}
	for _, p := range posts {
		fmt.Printf("%s  %-14s %-24s q=%.2f r=%.2f #%s\n",
			p.ScheduledAt.Format("Mon 15:04"), p.ForumName, p.Title, p.QualityScore, p.RiskScore, p.DedupeHash)
	}
	return nil
}

func cmdScore() error {
	fs := flag.NewFlagSet("score", flag.ExitOnError)
	cfgPath := fs.String("config", "./threadloom.yaml", "config path")
	planID := fs.String("plan", "", "plan id")
	_ = fs.Parse(os.Args[2:])
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	db, err := planstore.Open(cfg.Storage.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	ctx := context.Background()
	posts, err := db.PostsForPlan(ctx, *planID)
	if err != nil {
		return err
	}
	for _, p := range posts {
		comments, err := db.CommentsForPost(ctx, p.ID)
		if err != nil {
			return err
		}
		q := model.QualityScore(comments, p.AuthorPersonaID)
		r := model.RiskScore(comments, p.AuthorPersonaID, p.Body, cfg.Campaign.ProductName)
		fmt.Printf("%-24s comments=%d quality=%.2f risk=%.2f\n", p.Title, len(comments), q, r)
	}
	return nil
}

func cmdSchedule() {
	fs := flag.NewFlagSet("schedule", flag.ExitOnError)
	quiet := fs.String("quiet", "0,1,2,3,4,5", "quiet hours (UTC) comma-separated")
	_ = fs.Parse(os.Args[2:])
	next := schedule.NextWindow(time.Now().UTC(), parseHours(*quiet))
	fmt.Println("Next window:", next.Format(time.RFC3339))
}

func parseHours(s string) []int {
	var out []int
	for _, p := range splitAndTrim(s) {
		var h int
		_, _ = fmt.Sscanf(p, "%d", &h)
		if h >= 0 && h <= 23 {
			out = append(out, h)
		}
	}
	return out
}

func splitAndTrim(s string) []string {
	var out []string
	cur := ""
	for _, r := range s {
		if r == ',' {
			if cur != "" {
				out = append(out, cur)
				cur = ""
			}
			continue
		}
		if r != ' ' {
			cur += string(r)
		}
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}

// nextMonday returns the upcoming Monday at UTC midnight.
func nextMonday(now time.Time) time.Time {
	d := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	for d.Weekday() != time.Monday || !d.After(now) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}
