package service

import (
	"testing"
	"time"

	"revline/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestEventPopularity(t *testing.T) {
	today := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		date         string
		participants int
		want         int
	}{
		{"today", "2026-05-01", 0, 30},
		{"tomorrow with crowd", "2026-05-02", 4, 8 + 29},
		{"exactly thirty days out", "2026-05-31", 1, 2},
		{"far future", "2026-12-01", 3, 6},
		{"past event", "2026-04-30", 3, 6},
		{"garbled date", "soon", 2, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &models.Event{EventDate: tt.date, ParticipantsCount: tt.participants}
			assert.Equal(t, tt.want, EventPopularity(e, today))
		})
	}
}

func TestRankEvents_StableOnTies(t *testing.T) {
	today := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	events := []*models.Event{
		{ID: 10, EventDate: "2026-09-01", ParticipantsCount: 1},
		{ID: 11, EventDate: "2026-09-02", ParticipantsCount: 1},
		{ID: 12, EventDate: "2026-09-03", ParticipantsCount: 2},
	}
	ranked := RankEvents(events, today)
	assert.Equal(t, []uint{12, 10, 11}, []uint{ranked[0].ID, ranked[1].ID, ranked[2].ID})
}
