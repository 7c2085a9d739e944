package aggregate_test

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/osker/internal/domain/aggregate"
	"github.com/okian/osker/internal/domain/model"
	"github.com/okian/osker/internal/domain/rank"
)

func player(name string, r rank.Rank, apm, pps, vs float64, tr *float64) model.Player {
	return model.Player{Name: name, ID: name, Rank: r, APM: apm, PPS: pps, VS: vs, TR: tr}
}

func population(n int, seed int64) []model.Player {
	rng := rand.New(rand.NewSource(seed))
	out := make([]model.Player, n)
	for i := range out {
		r := rank.Rank(rng.Intn(int(rank.All)))
		p := model.Player{
			ID:   string(rune('a'+i%26)) + string(rune('a'+(i/26)%26)),
			Rank: r,
			APM:  20 + rng.Float64()*150,
			PPS:  0.5 + rng.Float64()*3,
			VS:   40 + rng.Float64()*300,
		}
		if i%3 != 0 {
			p.TR = model.Float(rng.Float64() * 25000)
			p.Glicko = model.Float(800 + rng.Float64()*2500)
			p.RD = model.Float(60 + rng.Float64()*100)
		}
		out[i] = p
	}
	return out
}

func byName(res aggregate.Result) map[string]model.Player {
	out := map[string]model.Player{}
	for _, a := range res.Averages {
		out[a.Name] = a
	}
	return out
}

func TestAggregateEmpty(t *testing.T) {
	Convey("Given no players", t, func() {
		res, err := aggregate.New().Aggregate(context.Background(), nil)

		Convey("both collections are empty and no population record exists", func() {
			So(err, ShouldBeNil)
			So(res.Players, ShouldBeEmpty)
			So(res.Averages, ShouldBeEmpty)
			So(res.Dominant, ShouldEqual, rank.Z)
		})
	})
}

func TestAggregateBuckets(t *testing.T) {
	Convey("Given a small population", t, func() {
		players := []model.Player{
			player("a", rank.SPlus, 60, 2, 120, model.Float(20000)),
			player("b", rank.SPlus, 80, 2.5, 160, nil),
			player("c", rank.U, 100, 3, 220, model.Float(24000)),
			player("d", rank.Z, 30, 1, 50, nil),
		}
		res, err := aggregate.New().Aggregate(context.Background(), players)
		So(err, ShouldBeNil)

		Convey("players are returned unmodified", func() {
			So(cmp.Diff(players, res.Players), ShouldBeEmpty)
		})

		Convey("one average per populated bucket plus the population record", func() {
			So(len(res.Averages), ShouldEqual, 4)
			So(res.Averages[0].Name, ShouldEqual, "$avgU")
			So(res.Averages[1].Name, ShouldEqual, "$avgSPlus")
			So(res.Averages[2].Name, ShouldEqual, "$avgZ")
			So(res.Averages[3].Name, ShouldEqual, "$avgALL")
			for _, a := range res.Averages {
				So(a.Synthetic, ShouldBeTrue)
			}
		})

		Convey("bucket means are computed on raw fields", func() {
			s := byName(res)["$avgSPlus"]
			So(s.Rank, ShouldEqual, rank.SPlus)
			So(s.APM, ShouldEqual, 70)
			So(s.PPS, ShouldEqual, 2.25)
			So(s.VS, ShouldEqual, 140)
			So(*s.TR, ShouldEqual, 20000)
			So(s.Glicko, ShouldBeNil)
		})

		Convey("the population record averages the bucket means", func() {
			all := byName(res)["$avgALL"]
			So(all.APM, ShouldAlmostEqual, (70.0+100+30)/3, 1e-9)
			So(all.VS, ShouldAlmostEqual, (140.0+220+50)/3, 1e-9)
			So(*all.TR, ShouldEqual, 22000)
			So(all.Rank, ShouldEqual, rank.SPlus)
			So(res.Dominant, ShouldEqual, rank.SPlus)
		})

		Convey("counts are reported per bucket", func() {
			So(res.Counts[rank.SPlus], ShouldEqual, 2)
			So(res.Counts[rank.U], ShouldEqual, 1)
			So(res.Counts[rank.Z], ShouldEqual, 1)
			So(res.Counts[rank.X], ShouldEqual, 0)
		})
	})
}

func TestDominantTieBreak(t *testing.T) {
	Convey("Given two equally populous buckets", t, func() {
		players := []model.Player{
			player("a", rank.B, 30, 1, 60, nil),
			player("b", rank.X, 150, 3.5, 330, nil),
			player("c", rank.X, 150, 3.5, 330, nil),
			player("d", rank.B, 30, 1, 60, nil),
		}

		Convey("the bucket seen first wins", func() {
			res, err := aggregate.New(aggregate.WithPartitionSize(1)).Aggregate(context.Background(), players)
			So(err, ShouldBeNil)
			So(res.Dominant, ShouldEqual, rank.B)
		})

		Convey("and order decides when reversed", func() {
			rev := []model.Player{players[1], players[0], players[2], players[3]}
			res, err := aggregate.New().Aggregate(context.Background(), rev)
			So(err, ShouldBeNil)
			So(res.Dominant, ShouldEqual, rank.X)
		})
	})
}

func TestUnknownRank(t *testing.T) {
	Convey("Given records with an unknown or reserved rank", t, func() {
		players := []model.Player{
			player("a", rank.ParseOrZ("mystery"), 40, 1, 80, nil),
			player("b", rank.All, 60, 2, 100, nil),
			player("c", rank.Rank(250), 50, 1.5, 90, nil),
			player("d", rank.S, 70, 2, 150, nil),
		}
		res, err := aggregate.New().Aggregate(context.Background(), players)
		So(err, ShouldBeNil)

		Convey("they are bucketed under Z and still counted", func() {
			z := byName(res)["$avgZ"]
			So(res.Counts[rank.Z], ShouldEqual, 3)
			So(z.APM, ShouldEqual, 50)
			So(res.Dominant, ShouldEqual, rank.Z)

			all := byName(res)["$avgALL"]
			So(all.APM, ShouldEqual, 60)
		})
	})
}

func TestMissingRank(t *testing.T) {
	Convey("Given records that carry no rank at all", t, func() {
		var missing, null model.Player
		So(json.Unmarshal([]byte(`{"name":"missing","apm":40,"pps":1,"vs":80}`), &missing), ShouldBeNil)
		So(json.Unmarshal([]byte(`{"name":"null","apm":60,"pps":2,"vs":100,"rank":null}`), &null), ShouldBeNil)
		literal := model.Player{Name: "literal", APM: 50, PPS: 1.5, VS: 90}

		res, err := aggregate.New().Aggregate(context.Background(), []model.Player{missing, null, literal})
		So(err, ShouldBeNil)

		Convey("they all land in the Z bucket", func() {
			avgs := byName(res)
			So(res.Counts[rank.Z], ShouldEqual, 3)
			So(res.Counts[rank.XPlus], ShouldEqual, 0)
			So(avgs, ShouldContainKey, "$avgZ")
			So(avgs, ShouldNotContainKey, "$avgXPlus")
			So(avgs["$avgZ"].APM, ShouldEqual, 50)
			So(res.Dominant, ShouldEqual, rank.Z)
			So(avgs["$avgALL"].Rank, ShouldEqual, rank.Z)
		})
	})
}

func TestDegenerateRecords(t *testing.T) {
	Convey("Given a record with zero APM among normal records", t, func() {
		players := []model.Player{
			player("zero", rank.D, 0, 0.8, 0, nil),
			player("ok", rank.D, 20, 1, 40, nil),
		}
		res, err := aggregate.New().Aggregate(context.Background(), players)

		Convey("aggregation completes with finite raw means", func() {
			So(err, ShouldBeNil)
			d := byName(res)["$avgD"]
			So(d.APM, ShouldEqual, 10)
			So(math.IsNaN(d.PPS), ShouldBeFalse)
		})
	})
}

func TestDeterminism(t *testing.T) {
	Convey("Given a large random population", t, func() {
		players := population(10000, 42)
		ctx := context.Background()

		Convey("two passes are identical", func() {
			agg := aggregate.New(aggregate.WithPartitionSize(256))
			a, err := agg.Aggregate(ctx, players)
			So(err, ShouldBeNil)
			b, err := agg.Aggregate(ctx, players)
			So(err, ShouldBeNil)
			So(cmp.Diff(a, b), ShouldBeEmpty)
		})

		Convey("a concurrent mapper matches the sequential one bit for bit", func() {
			concurrent := aggregate.MapperFunc(func(ctx context.Context, parts []aggregate.Partition) ([]aggregate.Partial, error) {
				out := make([]aggregate.Partial, len(parts))
				done := make(chan int, len(parts))
				for i := range parts {
					go func(i int) {
						out[i] = aggregate.Accumulate(parts[i])
						done <- i
					}(i)
				}
				for range parts {
					<-done
				}
				return out, nil
			})

			seq, err := aggregate.New(aggregate.WithPartitionSize(300)).Aggregate(ctx, players)
			So(err, ShouldBeNil)
			par, err := aggregate.New(aggregate.WithPartitionSize(300), aggregate.WithMapper(concurrent)).Aggregate(ctx, players)
			So(err, ShouldBeNil)
			So(cmp.Diff(seq, par), ShouldBeEmpty)
		})

		Convey("bucket mean times count reconstructs the bucket sum", func() {
			res, err := aggregate.New().Aggregate(ctx, players)
			So(err, ShouldBeNil)

			sums := map[rank.Rank]float64{}
			for _, p := range players {
				sums[p.Rank] += p.APM
			}
			for _, avg := range res.Averages {
				if avg.Name == rank.All.AvgName() {
					continue
				}
				n := float64(res.Counts[avg.Rank])
				So(avg.APM*n, ShouldAlmostEqual, sums[avg.Rank], 1e-6)
			}
		})
	})
}

func TestMapperErrors(t *testing.T) {
	Convey("Given a failing mapper", t, func() {
		boom := errors.New("boom")
		failing := aggregate.MapperFunc(func(context.Context, []aggregate.Partition) ([]aggregate.Partial, error) {
			return nil, boom
		})
		_, err := aggregate.New(aggregate.WithMapper(failing)).Aggregate(context.Background(), population(10, 1))

		So(errors.Is(err, boom), ShouldBeTrue)
	})

	Convey("Given a mapper that drops partials", t, func() {
		short := aggregate.MapperFunc(func(context.Context, []aggregate.Partition) ([]aggregate.Partial, error) {
			return nil, nil
		})
		_, err := aggregate.New(aggregate.WithMapper(short)).Aggregate(context.Background(), population(10, 1))

		So(errors.Is(err, aggregate.ErrMapperResult), ShouldBeTrue)
	})

	Convey("Given a cancelled context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := aggregate.New().Aggregate(ctx, population(10, 1))

		So(errors.Is(err, context.Canceled), ShouldBeTrue)
	})
}
