package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/Sternrassler/cbbd-client/pkg/batch"
	"github.com/Sternrassler/cbbd-client/pkg/cache"
	"github.com/Sternrassler/cbbd-client/pkg/normalize"
)

// API paths.
const (
	pathConferences       = "/conferences"
	pathTeams             = "/teams"
	pathRoster            = "/teams/roster"
	pathGames             = "/games"
	pathGameTeams         = "/games/teams"
	pathGamePlayers       = "/games/players"
	pathPlaysGame         = "/plays/game/"
	pathPlayTypes         = "/plays/types"
	pathRankings          = "/rankings"
	pathRatingsSRS        = "/ratings/srs"
	pathRatingsAdjusted   = "/ratings/adjusted"
	pathLines             = "/lines"
	pathVenues            = "/venues"
	pathTeamSeasonStats   = "/stats/team/season"
	pathPlayerSeasonStats = "/stats/player/season"
)

// Filter narrows a query. Zero fields are omitted from the request and
// from the cache key; each method documents the fields it uses.
type Filter struct {
	Season     int
	SeasonType string
	Team       string
	Conference string

	// StartDate and EndDate are ISO-8601 dates.
	StartDate string
	EndDate   string

	GameID   int
	PlayerID int
	Week     int
	PollType string
}

// Validate checks every set field.
func (f Filter) Validate() error {
	if f.Season != 0 {
		if err := ValidateSeason(f.Season); err != nil {
			return err
		}
	}
	if f.SeasonType != "" {
		if err := ValidateSeasonType(f.SeasonType); err != nil {
			return err
		}
	}
	dates := []struct{ name, value string }{
		{"start date", f.StartDate},
		{"end date", f.EndDate},
	}
	for _, d := range dates {
		if d.value == "" {
			continue
		}
		if err := ValidateDate(d.value); err != nil {
			return &ValidationError{Field: d.name, Value: d.value, Reason: err.(*ValidationError).Reason}
		}
	}
	if f.GameID < 0 {
		return &ValidationError{Field: "game id", Value: f.GameID, Reason: "must be positive"}
	}
	if f.PlayerID < 0 {
		return &ValidationError{Field: "player id", Value: f.PlayerID, Reason: "must be positive"}
	}
	if f.Week < 0 {
		return &ValidationError{Field: "week", Value: f.Week, Reason: "must be positive"}
	}
	return nil
}

// dateStyle selects the parameter names used for the date range.
type dateStyle int

const (
	dateRange dateStyle = iota // startDateRange/endDateRange
	datePlain                  // startDate/endDate
)

func (f Filter) params(style dateStyle) url.Values {
	v := url.Values{}
	setInt := func(name string, n int) {
		if n != 0 {
			v.Set(name, strconv.Itoa(n))
		}
	}
	setStr := func(name, s string) {
		if s != "" {
			v.Set(name, s)
		}
	}

	setInt("season", f.Season)
	setStr("seasonType", strings.ToLower(f.SeasonType))
	setStr("team", f.Team)
	setStr("conference", f.Conference)
	setInt("gameId", f.GameID)
	setInt("athleteId", f.PlayerID)
	setInt("week", f.Week)
	setStr("pollType", f.PollType)

	start, end := "startDateRange", "endDateRange"
	if style == datePlain {
		start, end = "startDate", "endDate"
	}
	setStr(start, f.StartDate)
	setStr(end, f.EndDate)
	return v
}

// query validates f and runs the call through the cache.
func (c *Client) query(ctx context.Context, operation, endpoint string, f Filter, style dateStyle) (json.RawMessage, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return c.call(ctx, cache.NewKey(operation), endpoint, f.params(style))
}

// Conferences lists all conferences.
func (c *Client) Conferences(ctx context.Context) (json.RawMessage, error) {
	return c.call(ctx, cache.NewKey("Conferences.List"), pathConferences, nil)
}

// Teams lists teams. Uses Season and Conference.
func (c *Client) Teams(ctx context.Context, f Filter) (json.RawMessage, error) {
	return c.query(ctx, "Teams.List", pathTeams, f, dateRange)
}

// Roster returns a team's roster for a season.
func (c *Client) Roster(ctx context.Context, team string, season int) (json.RawMessage, error) {
	if strings.TrimSpace(team) == "" {
		return nil, &ValidationError{Field: "team", Value: team, Reason: "is required"}
	}
	if err := ValidateSeason(season); err != nil {
		return nil, err
	}
	return c.query(ctx, "Teams.Roster", pathRoster, Filter{Team: team, Season: season}, dateRange)
}

// Games lists games. Uses Season, SeasonType, Team, Conference and the date range.
func (c *Client) Games(ctx context.Context, f Filter) (json.RawMessage, error) {
	return c.query(ctx, "Games.List", pathGames, f, dateRange)
}

// GameTeamStats returns team box scores. Uses GameID and the Games fields.
func (c *Client) GameTeamStats(ctx context.Context, f Filter) (json.RawMessage, error) {
	return c.query(ctx, "Games.TeamStats", pathGameTeams, f, dateRange)
}

// GamePlayerStats returns player box scores. Uses GameID and the Games fields.
func (c *Client) GamePlayerStats(ctx context.Context, f Filter) (json.RawMessage, error) {
	return c.query(ctx, "Games.PlayerStats", pathGamePlayers, f, dateRange)
}

// Plays returns the play-by-play of one game.
func (c *Client) Plays(ctx context.Context, gameID int) (json.RawMessage, error) {
	if gameID <= 0 {
		return nil, &ValidationError{Field: "game id", Value: gameID, Reason: "must be positive"}
	}
	return c.call(ctx, cache.NewKey("Plays.Game", gameID), pathPlaysGame+strconv.Itoa(gameID), nil)
}

// PlayTypes lists play type codes.
func (c *Client) PlayTypes(ctx context.Context) (json.RawMessage, error) {
	return c.call(ctx, cache.NewKey("Plays.Types"), pathPlayTypes, nil)
}

// Rankings returns poll rankings. Uses Season, SeasonType, Week, PollType,
// Team and Conference.
func (c *Client) Rankings(ctx context.Context, f Filter) (json.RawMessage, error) {
	return c.query(ctx, "Rankings.List", pathRankings, f, dateRange)
}

// SRSRatings returns simple rating system ratings. Uses Season, Team and Conference.
func (c *Client) SRSRatings(ctx context.Context, f Filter) (json.RawMessage, error) {
	return c.query(ctx, "Ratings.SRS", pathRatingsSRS, f, dateRange)
}

// AdjustedRatings returns adjusted efficiency ratings. Uses Season, Team and Conference.
func (c *Client) AdjustedRatings(ctx context.Context, f Filter) (json.RawMessage, error) {
	return c.query(ctx, "Ratings.Adjusted", pathRatingsAdjusted, f, dateRange)
}

// Lines returns betting lines. Uses GameID, Season, Team, Conference and the date range.
func (c *Client) Lines(ctx context.Context, f Filter) (json.RawMessage, error) {
	return c.query(ctx, "Lines.List", pathLines, f, dateRange)
}

// Venues lists venues.
func (c *Client) Venues(ctx context.Context) (json.RawMessage, error) {
	return c.call(ctx, cache.NewKey("Venues.List"), pathVenues, nil)
}

// TeamSeasonStats returns season team statistics. Uses Season, SeasonType,
// Team, Conference and the date range.
func (c *Client) TeamSeasonStats(ctx context.Context, f Filter) (json.RawMessage, error) {
	return c.query(ctx, "Stats.TeamSeason", pathTeamSeasonStats, f, datePlain)
}

// PlayerSeasonStats returns season player statistics. Uses Season,
// SeasonType, Team, Conference, PlayerID and the date range.
func (c *Client) PlayerSeasonStats(ctx context.Context, f Filter) (json.RawMessage, error) {
	return c.query(ctx, "Stats.PlayerSeason", pathPlayerSeasonStats, f, dateRange)
}

// FetchTable fetches the endpoint that serves recordType and normalizes
// the payload. Plays requires f.GameID; Roster requires f.Team and f.Season.
func (c *Client) FetchTable(ctx context.Context, recordType normalize.RecordType, f Filter) ([]normalize.Record, error) {
	var (
		raw json.RawMessage
		err error
	)

	switch recordType {
	case normalize.Games:
		raw, err = c.Games(ctx, f)
	case normalize.Plays:
		raw, err = c.Plays(ctx, f.GameID)
	case normalize.Roster:
		raw, err = c.Roster(ctx, f.Team, f.Season)
	case normalize.Teams:
		raw, err = c.Teams(ctx, f)
	case normalize.PlayerStats:
		raw, err = c.PlayerSeasonStats(ctx, f)
	case normalize.TeamStats:
		raw, err = c.TeamSeasonStats(ctx, f)
	case normalize.Rankings:
		raw, err = c.Rankings(ctx, f)
	case normalize.Ratings:
		raw, err = c.AdjustedRatings(ctx, f)
	case normalize.Lines:
		raw, err = c.Lines(ctx, f)
	case normalize.Venues:
		raw, err = c.Venues(ctx)
	case normalize.TeamBoxscores:
		raw, err = c.GameTeamStats(ctx, f)
	case normalize.PlayerBoxscores:
		raw, err = c.GamePlayerStats(ctx, f)
	default:
		return nil, &ValidationError{Field: "record type", Value: recordType, Reason: "has no endpoint"}
	}
	if err != nil {
		return nil, err
	}
	return c.Table(recordType, raw)
}

// GamesForSeasons fetches games for several seasons in parallel and
// returns their normalized records in season order. f.Season is ignored.
// On failure the records of the seasons that succeeded are returned with
// the error.
func (c *Client) GamesForSeasons(ctx context.Context, seasons []int, f Filter) ([]normalize.Record, error) {
	for _, s := range seasons {
		if err := ValidateSeason(s); err != nil {
			return nil, err
		}
	}
	f.Season = 0
	if err := f.Validate(); err != nil {
		return nil, err
	}

	fetcher := batch.NewBatchFetcher(batch.FetchFunc(func(ctx context.Context, season int) (json.RawMessage, error) {
		sf := f
		sf.Season = season
		return c.Games(ctx, sf)
	}), c.batch)

	bySeason, fetchErr := fetcher.FetchAll(ctx, seasons)

	ordered := make([]int, 0, len(bySeason))
	for s := range bySeason {
		ordered = append(ordered, s)
	}
	sort.Ints(ordered)

	var records []normalize.Record
	for _, s := range ordered {
		recs, err := c.Table(normalize.Games, bySeason[s])
		if err != nil {
			return records, fmt.Errorf("normalize season %d: %w", s, err)
		}
		records = append(records, recs...)
	}

	if fetchErr != nil {
		return records, fmt.Errorf("games for seasons: %w", fetchErr)
	}
	return records, nil
}

// ConferenceStandings computes a conference's standings from its games in
// one season. See normalize.Standings for how records are counted.
func (c *Client) ConferenceStandings(ctx context.Context, season int, conference string) ([]normalize.Record, error) {
	if strings.TrimSpace(conference) == "" {
		return nil, &ValidationError{Field: "conference", Value: conference, Reason: "is required"}
	}
	if err := ValidateSeason(season); err != nil {
		return nil, err
	}
	games, err := c.FetchTable(ctx, normalize.Games, Filter{Season: season, Conference: conference})
	if err != nil {
		return nil, err
	}
	return normalize.Standings(games, conference), nil
}
