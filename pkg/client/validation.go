package client

import (
	"strings"
	"time"
)

// Season types accepted by the API.
const (
	SeasonTypeRegular    = "regular"
	SeasonTypePostseason = "postseason"
	SeasonTypePreseason  = "preseason"
)

const (
	minSeason = 1900
	maxSeason = 2100
)

// dateLayouts are the ISO-8601 forms accepted for date parameters.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// ValidateSeason checks that season is a plausible year.
func ValidateSeason(season int) error {
	if season < minSeason || season > maxSeason {
		return &ValidationError{Field: "season", Value: season, Reason: "must be between 1900 and 2100"}
	}
	return nil
}

// ValidateDate checks that date is an ISO-8601 date or date-time.
func ValidateDate(date string) error {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, date); err == nil {
			return nil
		}
	}
	return &ValidationError{Field: "date", Value: date, Reason: "must be an ISO-8601 date (YYYY-MM-DD)"}
}

// ValidateSeasonType checks that seasonType is regular, postseason or preseason.
// Matching is case-insensitive.
func ValidateSeasonType(seasonType string) error {
	switch strings.ToLower(seasonType) {
	case SeasonTypeRegular, SeasonTypePostseason, SeasonTypePreseason:
		return nil
	}
	return &ValidationError{Field: "season type", Value: seasonType, Reason: "must be regular, postseason or preseason"}
}
