// Package seed provides helpers to create demo and load-test data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"revline/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/datatypes"
)

var modificationPool = []string{
	"coilovers", "big brake kit", "cold air intake", "cat-back exhaust", "turbo kit",
	"limited slip differential", "bucket seats", "roll cage", "ECU tune", "wide body kit",
	"forged wheels", "intercooler upgrade", "short shifter", "strut tower brace", "LED headlights",
}

var eventTitles = map[models.EventType][]string{
	models.EventTypeCarMeet:  {"Cars and Coffee", "Night Meet", "Parking Lot Social"},
	models.EventTypeCarShow:  {"Concours Day", "Spring Show and Shine", "Import Showcase"},
	models.EventTypeRace:     {"Autocross Round", "Drag Night", "Time Attack"},
	models.EventTypeWorkshop: {"Suspension Clinic", "Detailing Workshop", "Wrenching Basics"},
	models.EventTypeCruise:   {"Coastal Cruise", "Mountain Run", "Sunday Drive"},
	models.EventTypeTrackDay: {"Open Track Day", "HPDE Weekend", "Lapping Day"},
}

// Factory builds unsaved domain rows with realistic content.
type Factory struct {
	faker *gofakeit.Faker
	now   time.Time
}

// NewFactory creates a Factory. The same seed yields the same rows.
func NewFactory(seed int64, now time.Time) *Factory {
	return &Factory{faker: gofakeit.New(seed), now: now}
}

// BuildUser returns a user with a unique username derived from n.
func (f *Factory) BuildUser(n int, passwordHash string) *models.User {
	username := usernameFor(f.faker.Username(), n)
	return &models.User{
		Username:     username,
		Email:        username + "@example.com",
		Password:     passwordHash,
		Bio:          f.faker.Sentence(10),
		ProfileImage: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", username),
		CreatedAt:    f.pastTime(365),
	}
}

// BuildProject returns a build log owned by owner, created within maxDays.
func (f *Factory) BuildProject(owner *models.User, maxDays int) *models.Project {
	car := f.faker.Car()

	mods := make([]string, f.faker.Number(0, 5))
	for i := range mods {
		mods[i] = modificationPool[f.faker.Number(0, len(modificationPool)-1)]
	}
	parts := make([]string, f.faker.Number(0, 3))
	for i := range parts {
		parts[i] = f.faker.Company() + " " + f.faker.Noun()
	}

	var cost *float64
	if f.faker.Bool() {
		v := float64(f.faker.Number(500, 60000))
		cost = &v
	}

	year := car.Year
	if year < 1886 || year > f.now.Year()+1 {
		year = f.now.Year()
	}

	return &models.Project{
		UserID:        owner.ID,
		Title:         fmt.Sprintf("%s %s %s", f.faker.Adjective(), car.Brand, car.Model),
		CarMake:       car.Brand,
		CarModel:      car.Model,
		CarYear:       year,
		Description:   f.faker.Paragraph(1, 3, 8, " "),
		Modifications: datatypes.JSONSlice[string](mods),
		Images:        datatypes.JSONSlice[string]{fmt.Sprintf("https://picsum.photos/seed/%s/800/600", f.faker.UUID())},
		PartsList:     datatypes.JSONSlice[string](parts),
		BuildCost:     cost,
		CreatedAt:     f.pastTime(maxDays),
	}
}

// BuildComment returns a comment by author, snapshotting the author's username.
func (f *Factory) BuildComment(author *models.User, project *models.Project) *models.Comment {
	return &models.Comment{
		ProjectID: project.ID,
		UserID:    author.ID,
		Username:  author.Username,
		Content:   f.faker.Sentence(f.faker.Number(4, 16)),
		CreatedAt: f.timeAfter(project.CreatedAt),
	}
}

// BuildEvent returns an event owned by owner, dated from two weeks ago to two
// months ahead so listings contain both past and upcoming entries.
func (f *Factory) BuildEvent(owner *models.User) *models.Event {
	eventType := models.EventTypes[f.faker.Number(0, len(models.EventTypes)-1)]
	titles := eventTitles[eventType]

	date := f.now.AddDate(0, 0, f.faker.Number(-14, 60))

	var capacity *int
	if f.faker.Number(0, 2) == 0 {
		v := f.faker.Number(5, 40)
		capacity = &v
	}

	return &models.Event{
		UserID:          owner.ID,
		Title:           fmt.Sprintf("%s %s", f.faker.City(), titles[f.faker.Number(0, len(titles)-1)]),
		Description:     f.faker.Sentence(14),
		EventDate:       date.Format(models.EventDateLayout),
		EventTime:       fmt.Sprintf("%02d:%02d", f.faker.Number(6, 21), 15*f.faker.Number(0, 3)),
		Location:        f.faker.Street() + ", " + f.faker.City(),
		EventType:       eventType,
		MaxParticipants: capacity,
		Images:          datatypes.JSONSlice[string]{},
	}
}

// Chance reports true with probability p.
func (f *Factory) Chance(p float64) bool {
	return f.faker.Float64Range(0, 1) < p
}

// Intn returns a value in [0, n).
func (f *Factory) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return f.faker.Number(0, n-1)
}

func (f *Factory) pastTime(maxDays int) time.Time {
	if maxDays <= 0 {
		maxDays = 1
	}
	back := time.Duration(f.faker.Number(0, maxDays*24*60)) * time.Minute
	return f.now.Add(-back).UTC()
}

func (f *Factory) timeAfter(t time.Time) time.Time {
	span := f.now.Sub(t)
	if span <= time.Minute {
		return f.now.UTC()
	}
	return t.Add(time.Duration(f.faker.Number(1, int(span/time.Minute))) * time.Minute).UTC()
}

// usernameFor lowercases base, drops characters usernames cannot carry and
// appends n so every generated name is unique and at most 30 characters.
func usernameFor(base string, n int) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(base) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			sb.WriteRune(r)
		}
	}
	name := sb.String()
	if name == "" {
		name = "driver"
	}

	suffix := fmt.Sprintf("_%d", n)
	if len(name)+len(suffix) > 30 {
		name = name[:30-len(suffix)]
	}
	return name + suffix
}
