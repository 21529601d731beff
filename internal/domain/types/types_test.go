package types_test

import (
	"encoding/json"
	"testing"

	"github.com/Clinico01/ranking-de-clientes3/internal/domain/types"
	"github.com/shopspring/decimal"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEntryJSON(t *testing.T) {
	Convey("Given leaderboard entries", t, func() {
		disclosed := types.Entry{Rank: 1, FirstName: "Ana", LastName: "Silva", Total: decimal.NewFromInt(150), Disclosed: true}
		redacted := types.Entry{Rank: 4, FirstName: "Caio", LastName: "Lima", Handle: "@caio"}

		Convey("When a disclosed entry is encoded", func() {
			b, err := json.Marshal(disclosed)
			So(err, ShouldBeNil)

			Convey("Then the total is a fixed two-decimal string", func() {
				So(string(b), ShouldContainSubstring, `"total":"150.00"`)
				So(string(b), ShouldContainSubstring, `"disclosed":true`)
				So(string(b), ShouldNotContainSubstring, `"handle"`)
			})
		})

		Convey("When a redacted entry is encoded", func() {
			b, err := json.Marshal(redacted)
			So(err, ShouldBeNil)

			Convey("Then only the sentinel is exposed", func() {
				So(string(b), ShouldContainSubstring, `"total":"private"`)
				So(string(b), ShouldContainSubstring, `"disclosed":false`)
				So(redacted.DisplayTotal(), ShouldEqual, types.PrivateTotal)
			})
		})

		Convey("When entries are decoded back", func() {
			var d, r types.Entry
			b1, _ := json.Marshal(disclosed)
			b2, _ := json.Marshal(redacted)
			So(json.Unmarshal(b1, &d), ShouldBeNil)
			So(json.Unmarshal(b2, &r), ShouldBeNil)

			Convey("Then disclosed totals survive and redacted ones stay zero", func() {
				So(d.Total.Equal(decimal.NewFromInt(150)), ShouldBeTrue)
				So(r.Disclosed, ShouldBeFalse)
				So(r.Total.IsZero(), ShouldBeTrue)
				So(r.Handle, ShouldEqual, "@caio")
			})
		})

		Convey("When a disclosed entry carries a malformed total", func() {
			var e types.Entry
			err := json.Unmarshal([]byte(`{"rank":1,"total":"abc","disclosed":true}`), &e)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestBoardLimit(t *testing.T) {
	Convey("Given a board with three entries", t, func() {
		b := types.Board{Entries: []types.Entry{{Rank: 1}, {Rank: 2}, {Rank: 3}}, Version: 9}

		Convey("When limiting below the length", func() {
			out := b.Limit(2)
			So(len(out.Entries), ShouldEqual, 2)
			So(out.Version, ShouldEqual, 9)

			Convey("Then the copy does not alias the original", func() {
				out.Entries[0].Rank = 99
				So(b.Entries[0].Rank, ShouldEqual, 1)
			})
		})

		Convey("When limiting above the length or with a negative value", func() {
			So(len(b.Limit(10).Entries), ShouldEqual, 3)
			So(len(b.Limit(-1).Entries), ShouldEqual, 3)
		})

		Convey("When the board is empty", func() {
			empty := types.Board{}
			So(empty.Empty(), ShouldBeTrue)
			So(len(empty.Limit(5).Entries), ShouldEqual, 0)
		})
	})
}
