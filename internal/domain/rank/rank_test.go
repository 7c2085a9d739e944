package rank_test

import (
	"errors"
	"testing"

	"github.com/goccy/go-json"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/osker/internal/domain/rank"
)

func TestParse(t *testing.T) {
	Convey("Parse", t, func() {
		Convey("accepts labels in any case", func() {
			cases := map[string]rank.Rank{
				"x+": rank.XPlus, "X": rank.X, "u": rank.U, "ss": rank.SS,
				"S+": rank.SPlus, "s-": rank.SMinus, "d": rank.D, "z": rank.Z, "all": rank.All,
			}
			for in, want := range cases {
				got, err := rank.Parse(in)
				So(err, ShouldBeNil)
				So(got, ShouldEqual, want)
			}
		})

		Convey("accepts spelled-out identifiers", func() {
			r, err := rank.Parse("SPlus")
			So(err, ShouldBeNil)
			So(r, ShouldEqual, rank.SPlus)

			r, err = rank.Parse("bminus")
			So(err, ShouldBeNil)
			So(r, ShouldEqual, rank.BMinus)
		})

		Convey("rejects unknown strings", func() {
			for _, in := range []string{"", "q", "S++", "grandmaster"} {
				r, err := rank.Parse(in)
				So(errors.Is(err, rank.ErrUnknownRank), ShouldBeTrue)
				So(r, ShouldEqual, rank.Z)
			}
		})

		Convey("ParseOrZ maps garbage to Z", func() {
			So(rank.ParseOrZ("???"), ShouldEqual, rank.Z)
			So(rank.ParseOrZ("a-"), ShouldEqual, rank.AMinus)
		})
	})
}

func TestNames(t *testing.T) {
	Convey("Rank names", t, func() {
		So(rank.SPlus.String(), ShouldEqual, "S+")
		So(rank.SPlus.Ident(), ShouldEqual, "SPlus")
		So(rank.AMinus.Ident(), ShouldEqual, "AMinus")
		So(rank.U.AvgName(), ShouldEqual, "$avgU")
		So(rank.XPlus.AvgName(), ShouldEqual, "$avgXPlus")
		So(rank.All.AvgName(), ShouldEqual, "$avgALL")
		So(rank.Rank(200).Valid(), ShouldBeFalse)
		So(rank.Z.IsTier(), ShouldBeFalse)
		So(rank.All.IsTier(), ShouldBeFalse)
		So(rank.Rank(200).IsTier(), ShouldBeFalse)
		So(rank.XPlus.IsTier(), ShouldBeTrue)
		So(rank.D.IsTier(), ShouldBeTrue)

		var unset rank.Rank
		So(unset, ShouldEqual, rank.Z)
		So(unset.String(), ShouldEqual, "Z")
	})

	Convey("Every identifier round-trips through Parse", t, func() {
		for i := 0; i < rank.Count; i++ {
			r := rank.Rank(i)
			got, err := rank.Parse(r.Ident())
			So(err, ShouldBeNil)
			So(got, ShouldEqual, r)
		}
	})

	Convey("ParseAvgName", t, func() {
		r, ok := rank.ParseAvgName("$avgSPlus")
		So(ok, ShouldBeTrue)
		So(r, ShouldEqual, rank.SPlus)

		r, ok = rank.ParseAvgName("$AVGall")
		So(ok, ShouldBeTrue)
		So(r, ShouldEqual, rank.All)

		_, ok = rank.ParseAvgName("$avg")
		So(ok, ShouldBeFalse)
		_, ok = rank.ParseAvgName("osk")
		So(ok, ShouldBeFalse)
		_, ok = rank.ParseAvgName("$avgNOPE")
		So(ok, ShouldBeFalse)
	})

	Convey("Display order", t, func() {
		d := rank.Display()
		So(len(d), ShouldEqual, 19)
		So(d[0], ShouldEqual, rank.XPlus)
		So(d[17], ShouldEqual, rank.D)
		So(d[18], ShouldEqual, rank.Z)
		So(len(rank.Tiers()), ShouldEqual, 18)
	})
}

func TestText(t *testing.T) {
	Convey("JSON text encoding", t, func() {
		type wrapper struct {
			Rank rank.Rank `json:"rank"`
		}

		Convey("encodes lowercase labels", func() {
			b, err := json.Marshal(wrapper{Rank: rank.SPlus})
			So(err, ShouldBeNil)
			So(string(b), ShouldEqual, `{"rank":"s+"}`)
		})

		Convey("decodes unknown labels to Z", func() {
			var w wrapper
			So(json.Unmarshal([]byte(`{"rank":"mystery"}`), &w), ShouldBeNil)
			So(w.Rank, ShouldEqual, rank.Z)

			So(json.Unmarshal([]byte(`{"rank":"x+"}`), &w), ShouldBeNil)
			So(w.Rank, ShouldEqual, rank.XPlus)
		})
	})
}
