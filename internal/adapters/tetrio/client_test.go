package tetrio_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/osker/internal/adapters/tetrio"
	"github.com/okian/osker/internal/domain/rank"
	"github.com/okian/osker/pkg/logger"
)

func init() {
	_ = logger.Init()
}

type fakeAPI struct {
	mu        sync.Mutex
	sessions  map[string]int
	shifted   bool
	entries   []string
	userAgent string
}

func newFakeAPI() *fakeAPI {
	f := &fakeAPI{sessions: map[string]int{}}
	for i := 0; i < 5; i++ {
		f.entries = append(f.entries, fmt.Sprintf(
			`{"_id":"id%d","username":"p%d","league":{"gamesplayed":50,"tr":%d,"glicko":2000,"rd":60,"rank":"s","apm":60,"pps":2,"vs":120},"p":{"pri":%d,"sec":0,"ter":%d}}`,
			i, i, 20000-i, 20000-i, i))
	}
	// no stats yet
	f.entries = append(f.entries,
		`{"_id":"id5","username":"p5","league":{"gamesplayed":0,"rank":"z","apm":null,"pps":null,"vs":null},"p":{"pri":0,"sec":0,"ter":5}}`)
	return f
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/by/league", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.sessions[r.Header.Get("X-Session-ID")]++
		f.userAgent = r.Header.Get("User-Agent")

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		from := 0
		if after := r.URL.Query().Get("after"); after != "" {
			parts := strings.Split(after, ":")
			ter, _ := strconv.Atoi(parts[2])
			from = ter + 1
			if !f.shifted {
				// the board moved between requests; the last row is served again
				f.shifted = true
				from = ter
			}
		}
		to := min(from+limit, len(f.entries))
		if from > to {
			from = to
		}
		fmt.Fprintf(w, `{"success":true,"data":{"entries":[%s]}}`, strings.Join(f.entries[from:to], ","))
	})
	mux.HandleFunc("GET /users/{name}", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("name") {
		case "osk", "fresh":
			fmt.Fprintf(w, `{"success":true,"data":{"_id":"abc","username":%q,"avatar_revision":1700000000}}`, r.PathValue("name"))
		case "broken":
			fmt.Fprint(w, `{"success":false,"error":{"msg":"internal hiccup"}}`)
		default:
			fmt.Fprint(w, `{"success":false,"error":{"msg":"No such user! | Either you mistyped something, or the account no longer exists."}}`)
		}
	})
	mux.HandleFunc("GET /users/{name}/summaries/league", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("name") == "fresh" {
			fmt.Fprint(w, `{"success":true,"data":{"gamesplayed":0,"rank":"z","apm":null,"pps":null,"vs":null}}`)
			return
		}
		fmt.Fprint(w, `{"success":true,"data":{"gamesplayed":900,"tr":23684.48,"glicko":2257.86,"rd":66.04,"rank":"x","apm":66.09,"pps":2.07,"vs":135.65}}`)
	})
	return mux
}

func newClient(url string, opts ...tetrio.Option) *tetrio.Client {
	base := []tetrio.Option{
		tetrio.WithBaseURL(url),
		tetrio.WithRequestsPerSecond(1000),
		tetrio.WithTimeout(2 * time.Second),
	}
	return tetrio.NewClient(append(base, opts...)...)
}

func TestCollect(t *testing.T) {
	Convey("Given a paginated leaderboard that shifts while paging", t, func() {
		api := newFakeAPI()
		srv := httptest.NewServer(api.handler())
		defer srv.Close()

		client := newClient(srv.URL, tetrio.WithPageSize(2), tetrio.WithUserAgent("osker-test"))

		Convey("Collect returns every player once", func() {
			players, err := client.Collect(context.Background())
			So(err, ShouldBeNil)
			So(len(players), ShouldEqual, 5)

			ids := map[string]bool{}
			for _, p := range players {
				So(ids[p.ID], ShouldBeFalse)
				ids[p.ID] = true
				So(p.Rank, ShouldEqual, rank.S)
				So(p.TR, ShouldNotBeNil)
			}
			So(players[0].Name, ShouldEqual, "p0")
			So(*players[0].TR, ShouldEqual, 20000)
		})

		Convey("every page of one collection shares a session", func() {
			_, err := client.Collect(context.Background())
			So(err, ShouldBeNil)
			So(len(api.sessions), ShouldEqual, 1)
			for id, n := range api.sessions {
				So(id, ShouldNotBeEmpty)
				So(n, ShouldBeGreaterThan, 1)
			}
			So(api.userAgent, ShouldEqual, "osker-test")
		})

		Convey("the player cap stops paging early", func() {
			capped := newClient(srv.URL, tetrio.WithPageSize(2), tetrio.WithMaxPlayers(3))
			players, err := capped.Collect(context.Background())
			So(err, ShouldBeNil)
			So(len(players), ShouldEqual, 3)
		})
	})

	Convey("Given a single page", t, func() {
		srv := httptest.NewServer(newFakeAPI().handler())
		defer srv.Close()
		client := newClient(srv.URL)

		page, err := client.LeaguePage(context.Background(), "", 100)
		So(err, ShouldBeNil)
		So(page.Entries, ShouldEqual, 6)
		So(len(page.Players), ShouldEqual, 5)
		So(page.Next, ShouldBeEmpty)

		page, err = client.LeaguePage(context.Background(), "", 3)
		So(err, ShouldBeNil)
		So(page.Next, ShouldEqual, "19998:0:2")
	})

	Convey("Given an upstream that serves the same full page for every cursor", t, func() {
		api := newFakeAPI()
		var mu sync.Mutex
		requests := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			requests++
			mu.Unlock()
			fmt.Fprintf(w, `{"success":true,"data":{"entries":[%s]}}`, strings.Join(api.entries[:2], ","))
		}))
		defer srv.Close()

		client := newClient(srv.URL, tetrio.WithPageSize(2))

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		players, err := client.Collect(ctx)

		So(err, ShouldBeNil)
		So(len(players), ShouldEqual, 2)
		mu.Lock()
		So(requests, ShouldEqual, 2)
		mu.Unlock()
	})
}

func TestUser(t *testing.T) {
	Convey("Given a user endpoint", t, func() {
		srv := httptest.NewServer(newFakeAPI().handler())
		defer srv.Close()
		client := newClient(srv.URL)
		ctx := context.Background()

		Convey("a known user combines profile and league summary", func() {
			p, err := client.User(ctx, " OSK ")
			So(err, ShouldBeNil)
			So(p.Name, ShouldEqual, "osk")
			So(p.ID, ShouldEqual, "abc")
			So(p.APM, ShouldEqual, 66.09)
			So(p.Rank, ShouldEqual, rank.X)
			So(*p.Glicko, ShouldEqual, 2257.86)
			So(p.AvatarURL, ShouldEqual, "https://tetr.io/user-content/avatars/abc.jpg?rv=1700000000")
			So(p.Synthetic, ShouldBeFalse)
		})

		Convey("an unknown user is not found", func() {
			_, err := client.User(ctx, "ghost")
			So(errors.Is(err, tetrio.ErrUserNotFound), ShouldBeTrue)

			_, err = client.User(ctx, "  ")
			So(errors.Is(err, tetrio.ErrUserNotFound), ShouldBeTrue)
		})

		Convey("a user without league stats is reported", func() {
			_, err := client.User(ctx, "fresh")
			So(errors.Is(err, tetrio.ErrNoLeagueStats), ShouldBeTrue)
		})

		Convey("other api failures surface as ErrAPI", func() {
			_, err := client.User(ctx, "broken")
			So(errors.Is(err, tetrio.ErrAPI), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "internal hiccup")
		})
	})
}

func TestBreaker(t *testing.T) {
	Convey("Given an upstream that keeps failing", t, func() {
		var hits int
		var mu sync.Mutex
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			mu.Lock()
			hits++
			mu.Unlock()
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		client := newClient(srv.URL, tetrio.WithBreaker(2, time.Hour))
		ctx := context.Background()

		_, err := client.LeaguePage(ctx, "", 10)
		So(errors.Is(err, tetrio.ErrStatus), ShouldBeTrue)
		_, err = client.LeaguePage(ctx, "", 10)
		So(errors.Is(err, tetrio.ErrStatus), ShouldBeTrue)

		Convey("the breaker opens and stops calling out", func() {
			_, err := client.LeaguePage(ctx, "", 10)
			So(errors.Is(err, tetrio.ErrBreakerOpen), ShouldBeTrue)
			So(client.BreakerState(), ShouldEqual, "open")
			mu.Lock()
			So(hits, ShouldEqual, 2)
			mu.Unlock()
		})

		Convey("Collect aborts with the failure", func() {
			players, err := client.Collect(ctx)
			So(err, ShouldNotBeNil)
			So(players, ShouldBeNil)
		})
	})

	Convey("Given a cancelled context", t, func() {
		srv := httptest.NewServer(newFakeAPI().handler())
		defer srv.Close()
		client := newClient(srv.URL)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := client.Collect(ctx)
		So(errors.Is(err, context.Canceled), ShouldBeTrue)
	})
}
