package api

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/okian/osker/internal/domain/calc"
	"github.com/okian/osker/internal/domain/model"
	"github.com/okian/osker/internal/domain/rank"
	"github.com/okian/osker/internal/domain/types"
)

var validate = validator.New()

type healthResponse struct {
	Status      string    `json:"status"`
	Generation  uint64    `json:"generation"`
	Players     int       `json:"players"`
	RefreshedAt time.Time `json:"refreshedAt"`
}

type leaderboardResponse struct {
	Generation  uint64        `json:"generation"`
	RefreshedAt time.Time     `json:"refreshedAt"`
	Entries     []types.Entry `json:"entries"`
}

type averagesResponse struct {
	Generation  uint64             `json:"generation"`
	RefreshedAt time.Time          `json:"refreshedAt"`
	Dominant    string             `json:"dominantRank"`
	Averages    []types.PlayerView `json:"averages"`
}

type refreshResponse struct {
	Generation uint64 `json:"generation"`
	Players    int    `json:"players"`
	Averages   int    `json:"averages"`
	Dominant   string `json:"dominantRank"`
}

// calcQuery holds the stat-only inputs of /calc.
type calcQuery struct {
	APM float64 `validate:"gte=0"`
	PPS float64 `validate:"gt=0"`
	VS  float64 `validate:"gte=0"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.deps.Snapshot(r.Context())
	status := "ok"
	if snap.Empty() {
		status = "warming"
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:      status,
		Generation:  snap.Generation,
		Players:     len(snap.Players),
		RefreshedAt: snap.RefreshedAt,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Stats(r.Context()))
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := s.defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, r, fmt.Errorf("%w: limit %q", ErrBadRequest, raw))
			return
		}
		limit = n
	}

	ctx := r.Context()
	snap := s.deps.Snapshot(ctx)
	rows, err := s.deps.Leaderboard(ctx, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	entries := make([]types.Entry, len(rows))
	for i, row := range rows {
		entries[i] = types.Entry{Position: row.Position, Player: types.NewPlayerView(row.Player)}
	}
	writeJSON(w, http.StatusOK, leaderboardResponse{
		Generation:  snap.Generation,
		RefreshedAt: snap.RefreshedAt,
		Entries:     entries,
	})
}

func (s *Server) handlePlayer(w http.ResponseWriter, r *http.Request) {
	p, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, types.NewPlayerView(p))
}

func (s *Server) handleMetric(w http.ResponseWriter, r *http.Request) {
	kind, err := calc.ParseKind(chi.URLParam(r, "metric"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if kind == calc.KindTRAccuracy && !p.HasRating() {
		writeJSON(w, http.StatusOK, types.MetricValue{Player: p.Name, Metric: kind.String()})
		return
	}
	writeJSON(w, http.StatusOK, types.MetricValue{
		Player: p.Name,
		Metric: kind.String(),
		Value:  types.Display(s.deps.ComputeMetric(p, kind), kind),
	})
}

// lookup resolves the {name} parameter, writing the error response itself.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (model.Player, bool) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil || name == "" {
		s.writeError(w, r, fmt.Errorf("%w: player name", ErrBadRequest))
		return model.Player{}, false
	}
	p, err := s.deps.Player(r.Context(), name)
	if err != nil {
		s.writeError(w, r, err)
		return model.Player{}, false
	}
	return p, true
}

func (s *Server) handleAverages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snap := s.deps.Snapshot(ctx)
	writeJSON(w, http.StatusOK, averagesResponse{
		Generation:  snap.Generation,
		RefreshedAt: snap.RefreshedAt,
		Dominant:    snap.Dominant.String(),
		Averages:    types.NewPlayerViews(s.deps.Averages(ctx)),
	})
}

func (s *Server) handleAverage(w http.ResponseWriter, r *http.Request) {
	rk, err := rank.Parse(chi.URLParam(r, "rank"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.deps.Average(r.Context(), rk)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.NewPlayerView(p))
}

func (s *Server) handleCalc(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var in calcQuery
	for _, f := range []struct {
		name string
		dst  *float64
	}{{"apm", &in.APM}, {"pps", &in.PPS}, {"vs", &in.VS}} {
		raw := q.Get(f.name)
		if raw == "" {
			s.writeError(w, r, fmt.Errorf("%w: %s is required", ErrBadRequest, f.name))
			return
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			s.writeError(w, r, fmt.Errorf("%w: %s %q", ErrBadRequest, f.name, raw))
			return
		}
		*f.dst = v
	}
	if err := validate.Struct(in); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	writeJSON(w, http.StatusOK, types.NewPlayerView(model.FromStats(in.APM, in.PPS, in.VS)))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.refreshWait)
	defer cancel()

	res, err := s.deps.RefreshFromSource(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	snap := s.deps.Snapshot(ctx)
	writeJSON(w, http.StatusOK, refreshResponse{
		Generation: snap.Generation,
		Players:    len(res.Players),
		Averages:   len(res.Averages),
		Dominant:   res.Dominant.String(),
	})
}
