package tetrio

import (
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/okian/osker/internal/domain/model"
	"github.com/okian/osker/internal/domain/rank"
)

const avatarBaseURL = "https://tetr.io/user-content/avatars/"

type envelope struct {
	Success bool            `json:"success"`
	Error   *apiError       `json:"error,omitempty"`
	Data    json.RawMessage `json:"data"`
}

type apiError struct {
	Msg string `json:"msg"`
}

type leaguePage struct {
	Entries []leagueEntry `json:"entries"`
}

type leagueEntry struct {
	ID       string        `json:"_id"`
	Username string        `json:"username"`
	League   leagueSummary `json:"league"`
	P        *prisecter    `json:"p,omitempty"`
}

// leagueSummary is shared by leaderboard entries and the per-user summary.
type leagueSummary struct {
	GamesPlayed int      `json:"gamesplayed"`
	TR          *float64 `json:"tr"`
	Glicko      *float64 `json:"glicko"`
	RD          *float64 `json:"rd"`
	Rank        string   `json:"rank"`
	APM         *float64 `json:"apm"`
	PPS         *float64 `json:"pps"`
	VS          *float64 `json:"vs"`
}

func (l leagueSummary) hasStats() bool {
	return l.APM != nil && l.PPS != nil && l.VS != nil
}

// prisecter is the leaderboard continuation key.
type prisecter struct {
	Pri float64 `json:"pri"`
	Sec float64 `json:"sec"`
	Ter float64 `json:"ter"`
}

// String renders the key in the pri:sec:ter form accepted by "after".
func (p prisecter) String() string {
	parts := []string{
		strconv.FormatFloat(p.Pri, 'f', -1, 64),
		strconv.FormatFloat(p.Sec, 'f', -1, 64),
		strconv.FormatFloat(p.Ter, 'f', -1, 64),
	}
	return strings.Join(parts, ":")
}

type userData struct {
	ID             string `json:"_id"`
	Username       string `json:"username"`
	AvatarRevision *int64 `json:"avatar_revision,omitempty"`
}

func (u userData) avatarURL() string {
	if u.AvatarRevision == nil || u.ID == "" {
		return ""
	}
	return avatarBaseURL + u.ID + ".jpg?rv=" + strconv.FormatInt(*u.AvatarRevision, 10)
}

func toPlayer(id, name, avatar string, l leagueSummary) model.Player {
	return model.Player{
		ID:        id,
		Name:      name,
		AvatarURL: avatar,
		APM:       *l.APM,
		PPS:       *l.PPS,
		VS:        *l.VS,
		Rank:      rank.ParseOrZ(l.Rank),
		TR:        l.TR,
		Glicko:    l.Glicko,
		RD:        l.RD,
	}
}

// Page is one leaderboard page. Next is empty when there is nothing after it.
type Page struct {
	Players []model.Player
	// Entries counts raw rows, including those skipped for missing stats.
	Entries int
	Next    string
}
