package analytics

import (
	"sort"

	"threadloom/internal/model"
)

// Usage holds one run's in-memory weekly tallies. It is built by a single
// aggregation pass over the records supplied to the run and incremented as
// new records are planned; it is never shared between runs.
type Usage struct {
	PostsByPersona    map[string]int
	CommentsByPersona map[string]int
	PostsByForum      map[string]int
}

// TallyWeek aggregates existing records into a fresh Usage snapshot.
func TallyWeek(posts []model.PlannedPost, comments []model.PlannedComment) Usage {
	u := Usage{
		PostsByPersona:    make(map[string]int),
		CommentsByPersona: make(map[string]int),
		PostsByForum:      make(map[string]int),
	}
	for _, p := range posts {
		u.PostsByPersona[p.AuthorPersonaID]++
		u.PostsByForum[p.ForumName]++
	}
	for _, c := range comments {
		u.CommentsByPersona[c.AuthorPersonaID]++
	}
	return u
}

// AddPost folds a newly planned post into the tallies.
func (u Usage) AddPost(personaID, forumName string) {
	u.PostsByPersona[personaID]++
	u.PostsByForum[forumName]++
}

// AddComment folds a newly planned comment into the tallies.
func (u Usage) AddComment(personaID string) {
	u.CommentsByPersona[personaID]++
}

// SortedForumNames returns forum names by descending post count, ties by name.
func (u Usage) SortedForumNames() []string {
	names := make([]string, 0, len(u.PostsByForum))
	for n := range u.PostsByForum {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		if u.PostsByForum[names[i]] != u.PostsByForum[names[j]] {
			return u.PostsByForum[names[i]] > u.PostsByForum[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}
