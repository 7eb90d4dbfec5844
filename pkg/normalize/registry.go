package normalize

// Registry maps record types to their descriptors.
type Registry map[RecordType]*Descriptor

// detectOrder is the order in which wrapper keys and signatures are tried
// when no record type is given.
var detectOrder = []RecordType{Plays, Roster, Games, Teams, Lines, Venues, Rankings}

var teamFields = []string{"id", "name", "conference", "mascot", "abbreviation"}

// DefaultRegistry returns descriptors for every known record type.
func DefaultRegistry() Registry {
	r := Registry{
		Games:       gamesDescriptor(),
		Plays:       playsDescriptor(),
		Roster:      rosterDescriptor(),
		Teams:       teamsDescriptor(),
		PlayerStats: playerStatsDescriptor(),
		TeamStats:   teamStatsDescriptor(),
		Rankings:    rankingsDescriptor(),
		Ratings:     ratingsDescriptor(),
		Lines:       linesDescriptor(),
		Venues:      venuesDescriptor(),

		TeamBoxscores:   teamBoxscoresDescriptor(),
		PlayerBoxscores: playerBoxscoresDescriptor(),
	}
	r[Generic] = genericDescriptor(r)
	return r
}

// Lookup returns the descriptor for t, falling back to Generic.
func (r Registry) Lookup(t RecordType) *Descriptor {
	if d, ok := r[t]; ok {
		return d
	}
	if d, ok := r[Generic]; ok {
		return d
	}
	return &Descriptor{Type: Generic}
}

// Detect picks a descriptor for an untyped payload: first by a known
// wrapper list key, then by the signature fields of the first record.
func (r Registry) Detect(raw any) *Descriptor {
	switch t := raw.(type) {
	case map[string]any:
		if d := r.detectWrapper(t); d != nil {
			return d
		}
		return r.detectSignature(t)
	case Record:
		if d := r.detectWrapper(t); d != nil {
			return d
		}
		return r.detectSignature(t)
	case []any:
		for _, item := range t {
			if m, ok := item.(map[string]any); ok {
				return r.detectSignature(m)
			}
		}
	case []map[string]any:
		if len(t) > 0 {
			return r.detectSignature(t[0])
		}
	case []Record:
		if len(t) > 0 {
			return r.detectSignature(t[0])
		}
	}
	return r.Lookup(Generic)
}

func (r Registry) detectWrapper(obj map[string]any) *Descriptor {
	for _, typ := range detectOrder {
		d, ok := r[typ]
		if !ok {
			continue
		}
		for _, key := range d.ListKeys {
			if _, ok := listField(obj, key); ok {
				return d
			}
		}
	}
	return nil
}

func (r Registry) detectSignature(obj map[string]any) *Descriptor {
	fields := make(map[string]bool, len(obj))
	for k := range obj {
		fields[ToSnakeCase(k)] = true
	}
	for _, typ := range detectOrder {
		d, ok := r[typ]
		if !ok {
			continue
		}
		for _, sig := range d.Signature {
			if fields[sig] {
				return d
			}
		}
	}
	return r.Lookup(Generic)
}

func sideTeamRules() []NestedRule {
	return []NestedRule{
		{Source: "home_team", Prefix: "home_team_", Fields: teamFields},
		{Source: "away_team", Prefix: "away_team_", Fields: teamFields},
	}
}

func gamesDescriptor() *Descriptor {
	return &Descriptor{
		Type:      Games,
		ListKeys:  []string{"games"},
		Signature: []string{"home_points", "away_points", "home_line_scores"},
		Aliases: map[string][]string{
			"start_date":       {"date"},
			"home_line_scores": {"home_period_points"},
			"away_line_scores": {"away_period_points"},
		},
		Fields: []string{
			"home_team", "away_team", "home_conference", "away_conference",
			"home_line_scores", "away_line_scores", "season_type", "status",
			"neutral_site", "conference_game", "venue",
		},
		Nested: sideTeamRules(),
		Numeric: []string{
			"id", "source_id", "season", "week", "home_team_id", "away_team_id",
			"home_conference_id", "away_conference_id", "home_points", "away_points",
			"home_seed", "away_seed", "home_win_prob", "away_win_prob",
			"excitement_index", "attendance", "num_periods", "venue_id",
		},
		Dates: []string{"start_date"},
		Derivers: []Deriver{
			LineScores("home_line_scores", "home_period"),
			LineScores("away_line_scores", "away_period"),
			GameResult("home_points", "away_points"),
		},
	}
}

func playsDescriptor() *Descriptor {
	return &Descriptor{
		Type:      Plays,
		ListKeys:  []string{"plays"},
		Signature: []string{"clock", "play_type", "scoring_play", "score_value"},
		Aliases: map[string][]string{
			"play_type": {"type"},
		},
		Fields: []string{"clock", "scoring_play", "play_text", "team", "home_team", "away_team"},
		Nested: sideTeamRules(),
		Numeric: []string{
			"id", "source_id", "game_id", "season", "period", "period_number",
			"play_number", "sequence_number", "home_score", "away_score",
			"score_value", "seconds_remaining", "home_win_probability",
			"team_id", "opponent_id", "coordinate_x", "coordinate_y",
			"home_team_id", "away_team_id",
		},
		Dates: []string{"game_start_date"},
		Derivers: []Deriver{
			PlayClock(),
			ScoreProgress("home_score", "away_score"),
		},
	}
}

func rosterDescriptor() *Descriptor {
	return &Descriptor{
		Type:      Roster,
		ListKeys:  []string{"players"},
		Signature: []string{"hometown", "start_season"},
		Explode:   []ExplodeLevel{{ListKey: "players"}},
		Fields: []string{
			"name", "first_name", "last_name", "jersey", "position", "year",
			"team", "conference", "home_state", "home_country", "home_city",
		},
		Nested: []NestedRule{
			{Source: "hometown", Fields: []string{"city", "state", "country", "latitude", "longitude", "county_fips"}},
		},
		Numeric: []string{
			"id", "source_id", "team_id", "season", "height", "weight",
			"start_season", "end_season", "latitude", "longitude",
		},
		Derivers: []Deriver{
			Coalesce("state", "home_state"),
			Coalesce("country", "home_country"),
			Coalesce("city", "home_city"),
			Experience(),
			Hometown(),
		},
	}
}

func teamsDescriptor() *Descriptor {
	return &Descriptor{
		Type:      Teams,
		ListKeys:  []string{"teams"},
		Signature: []string{"mascot", "current_venue_id"},
		Fields:    []string{"school", "mascot", "abbreviation", "conference", "display_name"},
		Numeric:   []string{"id", "source_id", "conference_id", "current_venue_id"},
	}
}

var perGameStats = []string{"points", "rebounds", "assists", "steals", "blocks", "turnovers"}

func playerStatsDescriptor() *Descriptor {
	return &Descriptor{
		Type:   PlayerStats,
		Fields: []string{"name", "position", "team", "conference", "player"},
		Aliases: map[string][]string{
			"games": {"games_played"},
		},
		Nested: []NestedRule{
			{Source: "player", Prefix: "player_", Fields: []string{"id", "name", "position", "jersey"}},
			{Source: "team", Prefix: "team_", Fields: []string{"id", "name", "conference"}},
		},
		Numeric:          []string{"season", "games", "starts", "minutes"},
		NumericByDefault: true,
		Derivers: []Deriver{
			PerGame("games", perGameStats...),
		},
	}
}

func teamStatsDescriptor() *Descriptor {
	return &Descriptor{
		Type:   TeamStats,
		Fields: []string{"team", "conference"},
		Aliases: map[string][]string{
			"games": {"games_played"},
		},
		Numeric:          []string{"season", "team_id", "games", "wins", "losses"},
		NumericByDefault: true,
		Derivers: []Deriver{
			PerGame("games", perGameStats...),
		},
	}
}

func rankingsDescriptor() *Descriptor {
	return &Descriptor{
		Type:      Rankings,
		Signature: []string{"polls", "first_place_votes", "poll_type"},
		Explode: []ExplodeLevel{
			{ListKey: "polls"},
			{ListKey: "ranks"},
		},
		Fields:  []string{"poll", "poll_type", "school", "team", "conference"},
		Numeric: []string{"season", "week", "rank", "ranking", "first_place_votes", "points", "team_id", "conference_id"},
		Dates:   []string{"poll_date"},
	}
}

func ratingsDescriptor() *Descriptor {
	return &Descriptor{
		Type: Ratings,
		Explode: []ExplodeLevel{
			{ListKey: "teams", Rename: map[string]string{"name": "rating_system"}},
		},
		Fields: []string{"rating_system", "school", "team", "conference"},
		Numeric: []string{
			"season", "team_id", "rank", "rating", "wins", "losses", "sos",
			"offense", "defense", "offensive_rating", "defensive_rating", "net_rating",
		},
	}
}

func linesDescriptor() *Descriptor {
	return &Descriptor{
		Type:      Lines,
		ListKeys:  []string{"lines"},
		Signature: []string{"spread", "over_under", "lines"},
		Explode:   []ExplodeLevel{{ListKey: "lines"}},
		Fields:    []string{"provider", "home_team", "away_team", "home_conference", "away_conference"},
		Nested:    sideTeamRules(),
		Numeric: []string{
			"id", "game_id", "season", "week", "home_team_id", "away_team_id",
			"home_score", "away_score", "spread", "over_under", "spread_open",
			"over_under_open", "home_moneyline", "away_moneyline",
		},
		Dates: []string{"start_date"},
		Derivers: []Deriver{
			GameResult("home_score", "away_score"),
			LineOutcomes(),
		},
	}
}

func venuesDescriptor() *Descriptor {
	return &Descriptor{
		Type:      Venues,
		ListKeys:  []string{"venues"},
		Signature: []string{"capacity"},
		Fields:    []string{"name", "city", "state", "country"},
		Numeric:   []string{"id", "source_id", "capacity", "latitude", "longitude", "elevation", "year_constructed"},
	}
}

// TeamTypeField tags box score rows with the side they belong to.
const TeamTypeField = "team_type"

func teamBoxscoresDescriptor() *Descriptor {
	return &Descriptor{
		Type: TeamBoxscores,
		Split: &SplitLevel{
			TagField: TeamTypeField,
			Sources: []SplitSource{
				{Field: "home_team", Tag: "home"},
				{Field: "away_team", Tag: "away"},
			},
		},
		Fields:           []string{TeamTypeField, "team", "conference", "opponent"},
		Numeric:          []string{"game_id", "season", "team_id", "opponent_id", "points"},
		NumericByDefault: true,
	}
}

func playerBoxscoresDescriptor() *Descriptor {
	return &Descriptor{
		Type: PlayerBoxscores,
		Split: &SplitLevel{
			TagField: TeamTypeField,
			Sources: []SplitSource{
				{Field: "home_players", Tag: "home"},
				{Field: "away_players", Tag: "away"},
			},
		},
		Fields: []string{TeamTypeField, "team", "conference", "player"},
		Nested: []NestedRule{
			{Source: "player", Prefix: "player_", Fields: []string{"id", "name", "position", "jersey"}},
		},
		Numeric:          []string{"game_id", "season", "team_id", "minutes", "points"},
		NumericByDefault: true,
	}
}

// genericDescriptor coerces the union of every typed descriptor's numeric
// and date fields and derives nothing.
func genericDescriptor(r Registry) *Descriptor {
	numeric := map[string]bool{}
	dates := map[string]bool{}
	for _, d := range r {
		for _, f := range d.Numeric {
			numeric[f] = true
		}
		for _, f := range d.Dates {
			dates[f] = true
		}
	}

	g := &Descriptor{Type: Generic}
	for f := range numeric {
		g.Numeric = append(g.Numeric, f)
	}
	for f := range dates {
		g.Dates = append(g.Dates, f)
	}
	return g
}
