package models

// UserStats are the activity counters behind the discovery score.
type UserStats struct {
	ProjectCount  int `json:"project_count"`
	EventCount    int `json:"event_count"`
	FollowerCount int `json:"follower_count"`
}

// ActivityScore is projects + events + followers.
func (s UserStats) ActivityScore() int {
	return s.ProjectCount + s.EventCount + s.FollowerCount
}

// DiscoveredUser is a suggested account with the stats it was ranked by.
type DiscoveredUser struct {
	User  *User     `json:"user"`
	Stats UserStats `json:"stats"`
	Score int       `json:"score"`
}

// UserSearchHit is a user returned by search. ProjectCount duplicates
// Stats.ProjectCount for clients of the universal search.
type UserSearchHit struct {
	*User
	ProjectCount int       `json:"project_count"`
	Stats        UserStats `json:"stats"`
}

// RankedEvent pairs an event with its popularity score.
type RankedEvent struct {
	*Event
	PopularityScore int `json:"popularity_score"`
}

// SearchResults groups independent per-type result sets.
type SearchResults struct {
	Query    string          `json:"query"`
	Users    []UserSearchHit `json:"users"`
	Events   []*Event        `json:"events"`
	Projects []*Project      `json:"projects"`
}

// EmptySearchResults returns results with non-nil empty sets so they serialize as [].
func EmptySearchResults(query string) *SearchResults {
	return &SearchResults{
		Query:    query,
		Users:    []UserSearchHit{},
		Events:   []*Event{},
		Projects: []*Project{},
	}
}
