package repository

import (
	"math"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/okian/osker/internal/domain/aggregate"
	"github.com/okian/osker/internal/domain/model"
	"github.com/okian/osker/internal/domain/rank"
)

// Snapshot is an immutable view of one aggregation pass. Readers share it
// without locking; a refresh replaces it as a whole.
type Snapshot struct {
	Players     []model.Player
	Averages    []model.Player
	Dominant    rank.Rank
	Counts      [rank.Count]int
	Generation  uint64
	RefreshedAt time.Time

	byName     map[string]int
	byRank     [rank.Count]int
	population int
	// leaderboard holds Players in TR order with dense positions.
	leaderboard []Entry
}

func emptySnapshot() *Snapshot {
	return buildSnapshot(aggregate.Result{Dominant: rank.Z}, 0, time.Time{})
}

func buildSnapshot(res aggregate.Result, generation uint64, now time.Time) *Snapshot {
	s := &Snapshot{
		Players:     slices.Clone(res.Players),
		Averages:    slices.Clone(res.Averages),
		Dominant:    res.Dominant,
		Counts:      res.Counts,
		Generation:  generation,
		RefreshedAt: now,
		byName:      make(map[string]int, len(res.Players)),
		population:  -1,
	}
	if s.Players == nil {
		s.Players = []model.Player{}
	}
	if s.Averages == nil {
		s.Averages = []model.Player{}
	}

	for i, p := range s.Players {
		key := strings.ToLower(p.Name)
		if key == "" {
			continue
		}
		if _, dup := s.byName[key]; !dup {
			s.byName[key] = i
		}
	}

	for i := range s.byRank {
		s.byRank[i] = -1
	}
	for i, a := range s.Averages {
		if a.Name == rank.All.AvgName() {
			s.population = i
			continue
		}
		if a.Rank.Valid() {
			s.byRank[a.Rank] = i
		}
	}

	s.leaderboard = make([]Entry, len(s.Players))
	for i, p := range s.Players {
		s.leaderboard[i] = Entry{Player: p}
	}
	sortEntries(s.leaderboard)
	assignPositionsWithTies(s.leaderboard)
	return s
}

// Empty reports whether no population has been published.
func (s *Snapshot) Empty() bool { return len(s.Players) == 0 }

func (s *Snapshot) player(name string) (model.Player, bool) {
	if r, ok := rank.ParseAvgName(name); ok {
		return s.average(r)
	}
	i, ok := s.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return model.Player{}, false
	}
	return s.Players[i], true
}

func (s *Snapshot) average(r rank.Rank) (model.Player, bool) {
	if r == rank.All {
		if s.population < 0 {
			return model.Player{}, false
		}
		return s.Averages[s.population], true
	}
	if !r.Valid() || s.byRank[r] < 0 {
		return model.Player{}, false
	}
	return s.Averages[s.byRank[r]], true
}

func trOf(p model.Player) float64 {
	if p.TR == nil {
		return math.Inf(-1)
	}
	return *p.TR
}

// sortEntries orders by TR descending, unrated last, then name ascending.
func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := trOf(entries[i].Player), trOf(entries[j].Player)
		if a != b {
			return a > b
		}
		return strings.ToLower(entries[i].Player.Name) < strings.ToLower(entries[j].Player.Name)
	})
}

// assignPositionsWithTies gives equal TRs the same position; positions are dense.
func assignPositionsWithTies(entries []Entry) {
	pos := 0
	for i := range entries {
		if i == 0 || trOf(entries[i].Player) != trOf(entries[i-1].Player) {
			pos++
		}
		entries[i].Position = pos
	}
}
