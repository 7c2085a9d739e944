package api

import (
	"bytes"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/okian/osker/internal/domain/calc"
	"github.com/okian/osker/internal/domain/model"
	"github.com/okian/osker/internal/domain/types"
)

var radarColors = opts.Colors{"#67F9D8", "#FFE434", "#56A3F1", "#FF917C", "#67f976", "#e434ff"}

type compareSeries struct {
	Name   string     `json:"name"`
	Rank   string     `json:"rank"`
	Values []*float64 `json:"values"`
}

type compareResponse struct {
	Labels []string        `json:"labels"`
	Series []compareSeries `json:"series"`
}

// handleCompare renders the radar chart of ?players=a,b,... as HTML,
// or its raw vectors with ?format=json.
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var names []string
	for _, n := range strings.Split(r.URL.Query().Get("players"), ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	players, err := s.deps.Compare(r.Context(), names)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := compareVectors(players)
	if r.URL.Query().Get("format") == "json" {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	var buf bytes.Buffer
	if err := radarChart(resp).Render(&buf); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %w", ErrRender, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func compareVectors(players []model.Player) compareResponse {
	resp := compareResponse{Labels: calc.RadarLabels(), Series: make([]compareSeries, len(players))}
	for i, p := range players {
		vec := calc.Radar(p)
		vals := make([]*float64, len(vec))
		for j, v := range vec {
			vals[j] = types.Finite(calc.Truncate(v, 4))
		}
		resp.Series[i] = compareSeries{Name: p.Name, Rank: p.Rank.String(), Values: vals}
	}
	return resp
}

// radarChart scales every axis to the largest value plotted on it.
func radarChart(c compareResponse) *charts.Radar {
	indicators := make([]*opts.Indicator, len(c.Labels))
	for i, label := range c.Labels {
		top := 0.0
		for _, s := range c.Series {
			if v := s.Values[i]; v != nil && *v > top {
				top = *v
			}
		}
		if top == 0 {
			top = 1
		}
		indicators[i] = &opts.Indicator{Name: label, Max: float32(math.Ceil(top*110) / 100)}
	}

	radar := charts.NewRadar()
	radar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Player comparison", Width: "900px", Height: "700px"}),
		charts.WithTitleOpts(opts.Title{Title: "Player comparison", Subtitle: "weighted playstyle metrics"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithColorsOpts(radarColors),
		charts.WithRadarComponentOpts(opts.RadarComponent{Indicator: indicators, Shape: "polygon", SplitNumber: 5}),
	)
	for _, s := range c.Series {
		vals := make([]float64, len(s.Values))
		for i, v := range s.Values {
			if v != nil {
				vals[i] = *v
			}
		}
		radar.AddSeries(s.Name, []opts.RadarData{{Name: s.Name, Value: vals}})
	}
	return radar
}
