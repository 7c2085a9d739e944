package cli

import (
	"context"
	"fmt"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/okian/osker/internal/domain/model"
	"github.com/okian/osker/internal/domain/rank"
	"github.com/okian/osker/internal/domain/types"
)

// Inputs come back truncated to two decimals, so recomputed metrics drift slightly.
var metricTolerance = cmpopts.EquateApprox(0.005, 0.002)

// Mismatch is one leaderboard row whose served metrics disagree with a local recomputation.
type Mismatch struct {
	Position int
	Name     string
	Diff     string
}

// Report is the outcome of Verify.
type Report struct {
	Generation  uint64
	Checked     int
	OrderErrors []string
	Mismatches  []Mismatch
}

// OK reports whether every check passed.
func (r Report) OK() bool { return len(r.OrderErrors) == 0 && len(r.Mismatches) == 0 }

// Verify fetches the top limit players, checks TR order and tie positions,
// and recomputes every row's metrics from its served inputs.
func Verify(ctx context.Context, c *Client, limit int) (Report, error) {
	board, err := c.Leaderboard(ctx, limit)
	if err != nil {
		return Report{}, fmt.Errorf("leaderboard: %w", err)
	}
	rep := Report{Generation: board.Generation, Checked: len(board.Entries)}
	rep.OrderErrors = checkOrder(board.Entries)

	for _, e := range board.Entries {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		local := types.NewPlayerView(recordOf(e.Player))
		if diff := cmp.Diff(local.Metrics, e.Player.Metrics, metricTolerance); diff != "" {
			rep.Mismatches = append(rep.Mismatches, Mismatch{Position: e.Position, Name: e.Player.Name, Diff: diff})
		}
	}
	return rep, nil
}

func checkOrder(entries []types.Entry) []string {
	var errs []string
	for i := range entries {
		if i == 0 {
			if entries[0].Position != 1 {
				errs = append(errs, fmt.Sprintf("first position is %d", entries[0].Position))
			}
			continue
		}
		prev, cur := entries[i-1], entries[i]
		pt, ct := trOf(prev.Player), trOf(cur.Player)
		switch {
		case ct > pt:
			errs = append(errs, fmt.Sprintf("%s (%.2f) ranked below %s (%.2f)", cur.Player.Name, ct, prev.Player.Name, pt))
		case ct == pt && cur.Position != prev.Position:
			errs = append(errs, fmt.Sprintf("%s ties %s but has position %d, not %d", cur.Player.Name, prev.Player.Name, cur.Position, prev.Position))
		case ct < pt && cur.Position != prev.Position+1:
			errs = append(errs, fmt.Sprintf("%s has position %d after %d", cur.Player.Name, cur.Position, prev.Position))
		}
	}
	return errs
}

// trOf sorts unrated players last.
func trOf(v types.PlayerView) float64 {
	if v.TR == nil {
		return -1
	}
	return *v.TR
}

func recordOf(v types.PlayerView) model.Player {
	p := model.Player{
		ID:        v.ID,
		Name:      v.Name,
		AvatarURL: v.AvatarURL,
		Rank:      rank.ParseOrZ(v.Rank),
		TR:        v.TR,
		Glicko:    v.Glicko,
		RD:        v.RD,
		Synthetic: v.Synthetic,
	}
	if v.APM != nil {
		p.APM = *v.APM
	}
	if v.PPS != nil {
		p.PPS = *v.PPS
	}
	if v.VS != nil {
		p.VS = *v.VS
	}
	return p
}
