package analytics

import (
	"testing"

	"threadloom/internal/model"
)

func TestTallyWeekAndIncrement(t *testing.T) {
	u := TallyWeek(
		[]model.PlannedPost{
			{AuthorPersonaID: "p1", ForumName: "startups"},
			{AuthorPersonaID: "p1", ForumName: "webdev"},
		},
		[]model.PlannedComment{
			{AuthorPersonaID: "p2"},
			{AuthorPersonaID: "p2"},
			{AuthorPersonaID: "p3"},
		},
	)
	if u.PostsByPersona["p1"] != 2 || u.CommentsByPersona["p2"] != 2 {
		t.Fatalf("snapshot wrong: %+v", u)
	}

	u.AddPost("p2", "startups")
	u.AddComment("p1")
	if u.PostsByPersona["p2"] != 1 || u.PostsByForum["startups"] != 2 || u.CommentsByPersona["p1"] != 1 {
		t.Fatalf("increment wrong: %+v", u)
	}
}

func TestSortedForumNames(t *testing.T) {
	u := TallyWeek([]model.PlannedPost{
		{AuthorPersonaID: "p", ForumName: "webdev"},
		{AuthorPersonaID: "p", ForumName: "startups"},
		{AuthorPersonaID: "p", ForumName: "startups"},
		{AuthorPersonaID: "p", ForumName: "productivity"},
	}, nil)
	got := u.SortedForumNames()
	want := []string{"startups", "productivity", "webdev"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
