package normalize

import (
	"sort"
	"strings"
)

// Standings computes conference standings from canonical game records.
//
// Members are the teams playing a game with conference as their home or
// away conference; an empty conference makes every team a member. Games
// missing a team or a score are skipped. A game is a conference game when
// its conference_game flag says so or, without the flag, when both teams
// are members. Anything but a win counts as a loss.
//
// Each row holds team, conference_wins, conference_losses,
// conference_win_pct, overall_wins, overall_losses, rating (the average
// point differential) and adjusted_rating (rating plus ten times the
// conference win percentage). Rows are sorted by conference win
// percentage, then adjusted rating, both descending, then by team.
func Standings(records []Record, conference string) []Record {
	type tally struct {
		team                 string
		confWins, confLosses int
		wins, losses         int
		pointDiff            float64
		games                int
	}

	teams := make(map[string]*tally)
	member := func(name string) *tally {
		key := strings.ToLower(name)
		if t, ok := teams[key]; ok {
			return t
		}
		t := &tally{team: name}
		teams[key] = t
		return t
	}

	for _, rec := range records {
		for _, side := range []string{"home", "away"} {
			name, _ := rec[side+"_team"].(string)
			conf, _ := rec[side+"_conference"].(string)
			if name == "" {
				continue
			}
			if conference == "" || strings.EqualFold(conf, conference) {
				member(name)
			}
		}
	}

	for _, rec := range records {
		home, _ := rec["home_team"].(string)
		away, _ := rec["away_team"].(string)
		homePoints, ok1 := ToFloat(rec["home_points"])
		awayPoints, ok2 := ToFloat(rec["away_points"])
		if home == "" || away == "" || !ok1 || !ok2 {
			continue
		}

		homeTally := teams[strings.ToLower(home)]
		awayTally := teams[strings.ToLower(away)]

		confGame := homeTally != nil && awayTally != nil
		if flag, ok := rec["conference_game"].(bool); ok {
			confGame = flag
		}

		record := func(t *tally, diff float64) {
			if t == nil {
				return
			}
			t.pointDiff += diff
			t.games++
			if diff > 0 {
				t.wins++
				if confGame {
					t.confWins++
				}
				return
			}
			t.losses++
			if confGame {
				t.confLosses++
			}
		}
		record(homeTally, homePoints-awayPoints)
		record(awayTally, awayPoints-homePoints)
	}

	rows := make([]Record, 0, len(teams))
	for _, t := range teams {
		pct := float64(t.confWins) / float64(max(1, t.confWins+t.confLosses))
		rating := t.pointDiff / float64(max(1, t.games))
		rows = append(rows, Record{
			"team":               t.team,
			"conference_wins":    float64(t.confWins),
			"conference_losses":  float64(t.confLosses),
			"conference_win_pct": pct,
			"overall_wins":       float64(t.wins),
			"overall_losses":     float64(t.losses),
			"rating":             rating,
			"adjusted_rating":    rating + pct*10,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if pa, pb := a["conference_win_pct"].(float64), b["conference_win_pct"].(float64); pa != pb {
			return pa > pb
		}
		if ra, rb := a["adjusted_rating"].(float64), b["adjusted_rating"].(float64); ra != rb {
			return ra > rb
		}
		return strings.ToLower(a["team"].(string)) < strings.ToLower(b["team"].(string))
	})
	return rows
}
