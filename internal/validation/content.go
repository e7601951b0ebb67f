package validation

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"revline/internal/models"
)

// MaxCommentLength is the upper bound on comment content, in characters.
const MaxCommentLength = 2000

const (
	maxTitleLength = 200
	minCarYear     = 1886
	maxImages      = 10
)

// ValidateCommentContent trims content and enforces the non-blank and length rules.
// It returns the trimmed content on success.
func ValidateCommentContent(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", fmt.Errorf("comment content cannot be empty")
	}
	if utf8.RuneCountInString(trimmed) > MaxCommentLength {
		return "", fmt.Errorf("comment content must not exceed %d characters", MaxCommentLength)
	}
	return trimmed, nil
}

// ValidateTitle requires a non-blank title of bounded length.
func ValidateTitle(title string) error {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return fmt.Errorf("title is required")
	}
	if utf8.RuneCountInString(trimmed) > maxTitleLength {
		return fmt.Errorf("title must not exceed %d characters", maxTitleLength)
	}
	return nil
}

// ValidateCarYear accepts model years from the first automobile to next year.
func ValidateCarYear(year int, now time.Time) error {
	if year < minCarYear || year > now.Year()+1 {
		return fmt.Errorf("car_year must be between %d and %d", minCarYear, now.Year()+1)
	}
	return nil
}

// ValidateEventDate requires a YYYY-MM-DD calendar date.
func ValidateEventDate(date string) error {
	if _, err := time.Parse(models.EventDateLayout, date); err != nil {
		return fmt.Errorf("event_date must be formatted as YYYY-MM-DD")
	}
	return nil
}

// ValidateEventTime requires a 24h HH:MM time.
func ValidateEventTime(t string) error {
	if _, err := time.Parse(models.EventTimeLayout, t); err != nil || len(t) != len(models.EventTimeLayout) {
		return fmt.Errorf("event_time must be formatted as HH:MM")
	}
	return nil
}

// ValidateEventType checks membership in the closed set of event types.
func ValidateEventType(t models.EventType) error {
	for _, known := range models.EventTypes {
		if t == known {
			return nil
		}
	}
	return fmt.Errorf("event_type %q is not supported", t)
}

// ValidateCapacity rejects non-positive participant limits. Nil means unbounded.
func ValidateCapacity(maxParticipants *int) error {
	if maxParticipants != nil && *maxParticipants < 1 {
		return fmt.Errorf("max_participants must be at least 1")
	}
	return nil
}

// ValidateImageURLs checks that every image reference is an absolute http(s) URL.
func ValidateImageURLs(images []string) error {
	if len(images) > maxImages {
		return fmt.Errorf("at most %d images are allowed", maxImages)
	}
	for _, raw := range images {
		if err := ValidateImageURL(raw); err != nil {
			return err
		}
	}
	return nil
}

// ValidateImageURL accepts an empty value or an absolute http(s) URL.
func ValidateImageURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("image %q must be an absolute http(s) URL", raw)
	}
	return nil
}
