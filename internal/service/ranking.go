package service

import (
	"sort"
	"time"

	"revline/internal/models"
)

// recencyWindowDays is how far ahead an event starts earning a recency bonus.
const recencyWindowDays = 30

// EventPopularity scores an event as participants*2 plus a bonus for being soon.
// Past events and unparseable dates get no bonus.
func EventPopularity(e *models.Event, today time.Time) int {
	score := e.ParticipantsCount * 2
	days, err := e.DaysUntil(today)
	if err != nil || days < 0 {
		return score
	}
	return score + max(0, recencyWindowDays-days)
}

// RankEvents scores events and orders them by popularity, highest first.
// The sort is stable: equal scores keep their input order.
func RankEvents(events []*models.Event, today time.Time) []models.RankedEvent {
	ranked := make([]models.RankedEvent, len(events))
	for i, e := range events {
		ranked[i] = models.RankedEvent{Event: e, PopularityScore: EventPopularity(e, today)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].PopularityScore > ranked[j].PopularityScore
	})
	return ranked
}

// RankUsers orders discovered users by activity score, highest first, ties by id.
func RankUsers(users []models.DiscoveredUser) {
	sort.SliceStable(users, func(i, j int) bool {
		if users[i].Score != users[j].Score {
			return users[i].Score > users[j].Score
		}
		return users[i].User.ID < users[j].User.ID
	})
}
