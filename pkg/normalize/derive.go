package normalize

import (
	"fmt"
	"strconv"
	"strings"
)

// PeriodSeconds is the length of a college basketball half.
const PeriodSeconds = 20 * 60

// Derive runs the descriptor's derivers over the batch in order.
func Derive(records []Record, desc *Descriptor) {
	if desc == nil {
		return
	}
	for _, d := range desc.Derivers {
		d(records)
	}
}

// number returns a present numeric field.
func number(rec Record, field string) (float64, bool) {
	v, ok := rec[field]
	if !ok || v == nil {
		return 0, false
	}
	switch v.(type) {
	case string, bool:
		return 0, false
	}
	return ToFloat(v)
}

func sign(f float64) float64 {
	switch {
	case f > 0:
		return 1
	case f < 0:
		return -1
	default:
		return 0
	}
}

// GameResult adds point_differential, total_points and the home_win,
// away_win and tie flags from two score fields.
func GameResult(homeField, awayField string) Deriver {
	return func(records []Record) {
		for _, rec := range records {
			home, ok1 := number(rec, homeField)
			away, ok2 := number(rec, awayField)
			if !ok1 || !ok2 {
				continue
			}
			diff := home - away
			rec["point_differential"] = diff
			rec["total_points"] = home + away
			rec["home_win"] = diff > 0
			rec["away_win"] = diff < 0
			rec["tie"] = diff == 0
		}
	}
}

// LineScores expands a per-period score list into {prefix}_1..{prefix}_N,
// where N is the longest list in the batch. Records with a shorter or
// missing list get nil for the missing periods. The list field is removed.
func LineScores(field, prefix string) Deriver {
	return func(records []Record) {
		maxPeriods := 0
		for _, rec := range records {
			if list, ok := rec[field].([]any); ok && len(list) > maxPeriods {
				maxPeriods = len(list)
			}
		}
		if maxPeriods == 0 {
			return
		}

		for _, rec := range records {
			list, _ := rec[field].([]any)
			for p := 1; p <= maxPeriods; p++ {
				var score any
				if p <= len(list) {
					if n, ok := ToFloat(list[p-1]); ok {
						score = n
					}
				}
				rec[prefix+"_"+strconv.Itoa(p)] = score
			}
			delete(rec, field)
		}
	}
}

// ParseClock converts a "MM:SS" game clock to seconds remaining.
func ParseClock(clock string) (float64, bool) {
	parts := strings.Split(strings.TrimSpace(clock), ":")
	if len(parts) != 2 {
		return 0, false
	}
	minutes, err := strconv.Atoi(parts[0])
	if err != nil || minutes < 0 {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || seconds < 0 || seconds >= 60 {
		return 0, false
	}
	return float64(minutes)*60 + seconds, true
}

// PlayClock adds clock_seconds from the "clock" field and game_seconds,
// the elapsed time since tip-off, when the period is known.
func PlayClock() Deriver {
	return func(records []Record) {
		for _, rec := range records {
			clock, ok := rec["clock"].(string)
			if !ok {
				continue
			}
			remaining, ok := ParseClock(clock)
			if !ok {
				continue
			}
			rec["clock_seconds"] = remaining

			if period, ok := number(rec, "period"); ok && period >= 1 {
				rec["game_seconds"] = (period-1)*PeriodSeconds + (PeriodSeconds - remaining)
			}
		}
	}
}

// ScoreProgress adds score_differential and total_score per play and
// score_change, the change in total_score from the previous record. The
// first record, and any record following one without a total, gets no
// score_change.
func ScoreProgress(homeField, awayField string) Deriver {
	return func(records []Record) {
		var (
			prev    float64
			hasPrev bool
		)
		for _, rec := range records {
			home, ok1 := number(rec, homeField)
			away, ok2 := number(rec, awayField)
			if !ok1 || !ok2 {
				hasPrev = false
				continue
			}
			total := home + away
			rec["score_differential"] = home - away
			rec["total_score"] = total
			if hasPrev {
				rec["score_change"] = total - prev
			}
			prev, hasPrev = total, true
		}
	}
}

// LineOutcomes adds spread_outcome and over_under_outcome (1, 0 or -1)
// for games with a final score. A home cover is 1; an over is 1.
func LineOutcomes() Deriver {
	return func(records []Record) {
		for _, rec := range records {
			diff, ok1 := number(rec, "point_differential")
			total, ok2 := number(rec, "total_points")
			if !ok1 || !ok2 {
				continue
			}
			if spread, ok := number(rec, "spread"); ok {
				rec["spread_outcome"] = sign(diff + spread)
			}
			if ou, ok := number(rec, "over_under"); ok {
				rec["over_under_outcome"] = sign(total - ou)
			}
		}
	}
}

// PerGame adds {stat}_per_game for each stat, using the first present
// candidate field for the stat (the stat name itself, then "{stat}_total").
// Nothing is written when games is missing or zero, or the column already
// exists.
func PerGame(gamesField string, stats ...string) Deriver {
	return func(records []Record) {
		for _, rec := range records {
			games, ok := number(rec, gamesField)
			if !ok || games == 0 {
				continue
			}
			for _, stat := range stats {
				column := stat + "_per_game"
				if _, exists := rec[column]; exists {
					continue
				}
				value, ok := number(rec, stat)
				if !ok {
					value, ok = number(rec, stat+"_total")
				}
				if !ok {
					continue
				}
				rec[column] = value / games
			}
		}
	}
}

// Coalesce fills a nil or missing field from the first non-nil fallback.
func Coalesce(field string, fallbacks ...string) Deriver {
	return func(records []Record) {
		for _, rec := range records {
			if v, ok := rec[field]; ok && v != nil {
				continue
			}
			for _, fb := range fallbacks {
				if v, ok := rec[fb]; ok && v != nil {
					rec[field] = v
					break
				}
			}
		}
	}
}

// Experience adds experience = season - start_season.
func Experience() Deriver {
	return func(records []Record) {
		for _, rec := range records {
			season, ok1 := number(rec, "season")
			start, ok2 := number(rec, "start_season")
			if ok1 && ok2 {
				rec["experience"] = season - start
			}
		}
	}
}

// Hometown adds a display string from city, state and country. The
// country is shown only outside the USA or when there is no state. Records
// with none of the three fields are left alone.
func Hometown() Deriver {
	return func(records []Record) {
		for _, rec := range records {
			_, hasCity := rec["city"]
			_, hasState := rec["state"]
			_, hasCountry := rec["country"]
			if !hasCity && !hasState && !hasCountry {
				continue
			}

			city := text(rec["city"])
			state := text(rec["state"])
			country := text(rec["country"])

			var parts []string
			if city != "" {
				parts = append(parts, city)
			}
			if state != "" {
				parts = append(parts, state)
			}
			if country != "" && (country != "USA" || state == "") {
				parts = append(parts, country)
			}

			if len(parts) == 0 {
				rec["hometown"] = nil
				continue
			}
			rec["hometown"] = strings.Join(parts, ", ")
		}
	}
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	default:
		return fmt.Sprint(t)
	}
}
