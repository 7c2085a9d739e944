package repository_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/osker/internal/adapters/repository"
	"github.com/okian/osker/internal/domain/aggregate"
	"github.com/okian/osker/internal/domain/model"
	"github.com/okian/osker/internal/domain/rank"
)

func result(ctx context.Context, players ...model.Player) aggregate.Result {
	res, err := aggregate.New().Aggregate(ctx, players)
	So(err, ShouldBeNil)
	return res
}

func TestSnapshotStore(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	Convey("Given a new store", t, func() {
		store := repository.NewSnapshotStore(repository.WithClock(func() time.Time { return fixed }))

		Convey("it starts empty and never nil", func() {
			snap := store.Current(ctx)
			So(snap, ShouldNotBeNil)
			So(snap.Empty(), ShouldBeTrue)
			So(snap.Generation, ShouldEqual, 0)
			So(store.Count(ctx), ShouldEqual, 0)
			So(store.Averages(ctx), ShouldBeEmpty)

			_, err := store.Player(ctx, "anyone")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			_, err = store.Average(ctx, rank.All)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When a result is published", func() {
			snap := store.Publish(ctx, result(ctx,
				model.Player{Name: "Alpha", Rank: rank.X, APM: 120, PPS: 3, VS: 260, TR: model.Float(24000)},
				model.Player{Name: "bravo", Rank: rank.S, APM: 60, PPS: 2, VS: 120, TR: model.Float(15000)},
				model.Player{Name: "charlie", Rank: rank.S, APM: 62, PPS: 2, VS: 125, TR: model.Float(15000)},
				model.Player{Name: "delta", Rank: rank.Z, APM: 20, PPS: 1, VS: 40},
			))

			Convey("the snapshot is stamped", func() {
				So(snap.Generation, ShouldEqual, 1)
				So(snap.RefreshedAt, ShouldEqual, fixed)
				So(store.Current(ctx), ShouldEqual, snap)
				So(store.Count(ctx), ShouldEqual, 4)
				So(snap.Dominant, ShouldEqual, rank.S)
			})

			Convey("players are found case-insensitively", func() {
				p, err := store.Player(ctx, "ALPHA")
				So(err, ShouldBeNil)
				So(p.Name, ShouldEqual, "Alpha")
			})

			Convey("$avg names resolve to averages", func() {
				p, err := store.Player(ctx, "$avgS")
				So(err, ShouldBeNil)
				So(p.Synthetic, ShouldBeTrue)
				So(p.APM, ShouldEqual, 61)

				all, err := store.Player(ctx, "$avgALL")
				So(err, ShouldBeNil)
				So(all.Name, ShouldEqual, "$avgALL")

				_, err = store.Player(ctx, "$avgD")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})

			Convey("Average looks up buckets directly", func() {
				p, err := store.Average(ctx, rank.X)
				So(err, ShouldBeNil)
				So(p.APM, ShouldEqual, 120)
				So(len(store.Averages(ctx)), ShouldEqual, 4)
			})

			Convey("TopN orders by TR and shares tied positions", func() {
				top, err := store.TopN(ctx, 10)
				So(err, ShouldBeNil)
				So(len(top), ShouldEqual, 4)
				So(top[0].Player.Name, ShouldEqual, "Alpha")
				So(top[0].Position, ShouldEqual, 1)
				So(top[1].Player.Name, ShouldEqual, "bravo")
				So(top[1].Position, ShouldEqual, 2)
				So(top[2].Player.Name, ShouldEqual, "charlie")
				So(top[2].Position, ShouldEqual, 2)
				So(top[3].Player.Name, ShouldEqual, "delta")
				So(top[3].Position, ShouldEqual, 3)

				top, err = store.TopN(ctx, 1)
				So(err, ShouldBeNil)
				So(len(top), ShouldEqual, 1)
			})

			Convey("invalid limits are rejected", func() {
				_, err := store.TopN(ctx, 0)
				So(errors.Is(err, repository.ErrInvalidLimit), ShouldBeTrue)
				_, err = store.TopN(ctx, 100000)
				So(errors.Is(err, repository.ErrInvalidLimit), ShouldBeTrue)
			})

			Convey("the published result no longer aliases the snapshot", func() {
				res := result(ctx,
					model.Player{Name: "echo", Rank: rank.A, APM: 40, PPS: 1.5, VS: 80},
				)
				store.Publish(ctx, res)
				res.Players[0].Name = "changed"
				res.Averages[0].APM = -1

				p, err := store.Player(ctx, "echo")
				So(err, ShouldBeNil)
				So(p.Name, ShouldEqual, "echo")
				a, err := store.Average(ctx, rank.A)
				So(err, ShouldBeNil)
				So(a.APM, ShouldEqual, 40)
			})

			Convey("a later publish replaces everything", func() {
				next := store.Publish(ctx, result(ctx))
				So(next.Generation, ShouldEqual, 2)
				So(store.Count(ctx), ShouldEqual, 0)
				So(store.Averages(ctx), ShouldBeEmpty)

				Convey("while the old snapshot stays intact for its readers", func() {
					So(len(snap.Players), ShouldEqual, 4)
				})
			})
		})
	})

	Convey("Given concurrent readers during publishes", t, func() {
		store := repository.NewSnapshotStore()
		small := result(ctx, model.Player{Name: "a", Rank: rank.A, APM: 40, PPS: 1.5, VS: 80})
		big := result(ctx,
			model.Player{Name: "a", Rank: rank.A, APM: 40, PPS: 1.5, VS: 80},
			model.Player{Name: "b", Rank: rank.B, APM: 30, PPS: 1.2, VS: 60},
		)

		var wg sync.WaitGroup
		var torn bool
		var mu sync.Mutex
		for r := 0; r < 4; r++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 2000; i++ {
					snap := store.Current(ctx)
					// averages always belong to the same pass as the players
					if !snap.Empty() && len(snap.Averages) != len(snap.Players)+1 {
						mu.Lock()
						torn = true
						mu.Unlock()
					}
				}
			}()
		}
		for i := 0; i < 200; i++ {
			if i%2 == 0 {
				store.Publish(ctx, small)
			} else {
				store.Publish(ctx, big)
			}
		}
		wg.Wait()

		So(torn, ShouldBeFalse)
	})
}
