package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/cbbd-client/pkg/client"
	"github.com/Sternrassler/cbbd-client/pkg/logging"
	"github.com/Sternrassler/cbbd-client/pkg/metrics"
	"github.com/Sternrassler/cbbd-client/pkg/normalize"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
)

// newRouter wires the proxy routes. redisClient may be nil.
func newRouter(c *client.Client, redisClient *redis.Client, timeout time.Duration) http.Handler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)
	r.Get("/ready", readyHandler(redisClient))
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(timeout))

		r.Get("/tables/{type}", tablesHandler(c))
		r.Get("/games", seasonGamesHandler(c))
		r.Get("/standings", standingsHandler(c))
		r.Get("/cache/stats", cacheStatsHandler(c))
		r.Delete("/cache", clearCacheHandler(c))
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	logger := logging.NewLogger("proxy")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("Request served")
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func readyHandler(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := redisClient.Ping(ctx).Err(); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "redis unavailable"})
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}
}

func tablesHandler(c *client.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recordType, ok := normalize.ParseRecordType(chi.URLParam(r, "type"))
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown table " + chi.URLParam(r, "type")})
			return
		}

		f, err := parseFilter(r)
		if err != nil {
			writeError(w, err)
			return
		}

		records, err := c.FetchTable(r.Context(), recordType, f)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, records)
	}
}

// seasonGamesHandler serves games for a comma-separated list of seasons.
func seasonGamesHandler(c *client.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var seasons []int
		for _, s := range strings.Split(r.URL.Query().Get("seasons"), ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			n, err := strconv.Atoi(s)
			if err != nil {
				writeError(w, &client.ValidationError{Field: "seasons", Value: s, Reason: "must be a number"})
				return
			}
			seasons = append(seasons, n)
		}
		if len(seasons) == 0 {
			writeError(w, &client.ValidationError{Field: "seasons", Value: "", Reason: "is required"})
			return
		}

		f, err := parseFilter(r)
		if err != nil {
			writeError(w, err)
			return
		}

		records, err := c.GamesForSeasons(r.Context(), seasons, f)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, records)
	}
}

// standingsHandler serves conference standings computed from one season's games.
func standingsHandler(c *client.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := parseFilter(r)
		if err != nil {
			writeError(w, err)
			return
		}

		rows, err := c.ConferenceStandings(r.Context(), f.Season, f.Conference)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

func cacheStatsHandler(c *client.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, c.CacheStats())
	}
}

func clearCacheHandler(c *client.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := c.ClearCache(r.Context()); err != nil {
			writeError(w, err)
			return
		}
		logger := logging.NewLogger("proxy")
		logger.Info().Msg("Cache cleared")
		w.WriteHeader(http.StatusNoContent)
	}
}

// parseFilter reads the API's query parameter names into a Filter.
func parseFilter(r *http.Request) (client.Filter, error) {
	q := r.URL.Query()
	f := client.Filter{
		SeasonType: q.Get("seasonType"),
		Team:       q.Get("team"),
		Conference: q.Get("conference"),
		StartDate:  q.Get("startDate"),
		EndDate:    q.Get("endDate"),
		PollType:   q.Get("pollType"),
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"season", &f.Season},
		{"gameId", &f.GameID},
		{"athleteId", &f.PlayerID},
		{"week", &f.Week},
	}
	for _, p := range ints {
		s := q.Get(p.name)
		if s == "" {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return f, &client.ValidationError{Field: p.name, Value: s, Reason: "must be a number"}
		}
		*p.dst = n
	}
	return f, nil
}

// statusFor maps client errors to proxy responses.
func statusFor(err error) int {
	var verr *client.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, client.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, client.ErrRateLimited),
		errors.Is(err, client.ErrCircuitOpen),
		errors.Is(err, client.ErrRetryExhausted):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
