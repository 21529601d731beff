package ranking_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/Clinico01/ranking-de-clientes3/internal/domain/model"
	"github.com/Clinico01/ranking-de-clientes3/internal/domain/ranking"
	"github.com/Clinico01/ranking-de-clientes3/internal/domain/types"
	"github.com/shopspring/decimal"
	. "github.com/smartystreets/goconvey/convey"
)

func sale(first, last, handle string, amount int64) model.SaleRecord {
	return model.SaleRecord{FirstName: first, LastName: last, Handle: handle, Amount: decimal.NewFromInt(amount)}
}

func TestComputeRankingScenarios(t *testing.T) {
	Convey("Given the two-client scenario", t, func() {
		records := []model.SaleRecord{
			sale("Ana", "Silva", "", 100),
			sale("ana", "SILVA", "", 50),
			sale("Bruno", "Costa", "@b", 30),
		}

		Convey("When computing the default leaderboard", func() {
			entries, err := ranking.ComputeRanking(records, 10, 3)
			So(err, ShouldBeNil)

			Convey("Then Ana Silva is grouped and leads with 150", func() {
				So(len(entries), ShouldEqual, 2)
				So(entries[0].Rank, ShouldEqual, 1)
				So(entries[0].FirstName, ShouldEqual, "ana")
				So(entries[0].LastName, ShouldEqual, "SILVA")
				So(entries[0].Total.Equal(decimal.NewFromInt(150)), ShouldBeTrue)
				So(entries[0].Disclosed, ShouldBeTrue)
			})

			Convey("And Bruno Costa follows with 30", func() {
				So(entries[1].Rank, ShouldEqual, 2)
				So(entries[1].FirstName, ShouldEqual, "Bruno")
				So(entries[1].Handle, ShouldEqual, "@b")
				So(entries[1].Total.Equal(decimal.NewFromInt(30)), ShouldBeTrue)
				So(entries[1].Disclosed, ShouldBeTrue)
			})
		})
	})

	Convey("Given fifteen clients with totals 100 down to 86", t, func() {
		var records []model.SaleRecord
		for i := 0; i < 15; i++ {
			records = append(records, sale(fmt.Sprintf("Client%02d", i), "Test", "", int64(100-i)))
		}

		Convey("When computing the default leaderboard", func() {
			entries, err := ranking.ComputeRanking(records, 10, 3)
			So(err, ShouldBeNil)

			Convey("Then exactly ten entries come back", func() {
				So(len(entries), ShouldEqual, 10)
			})

			Convey("And ranks 1-3 disclose the correct totals", func() {
				for i := 0; i < 3; i++ {
					So(entries[i].Rank, ShouldEqual, i+1)
					So(entries[i].Disclosed, ShouldBeTrue)
					So(entries[i].Total.Equal(decimal.NewFromInt(int64(100-i))), ShouldBeTrue)
				}
			})

			Convey("And ranks 4-10 are redacted", func() {
				for i := 3; i < 10; i++ {
					So(entries[i].Rank, ShouldEqual, i+1)
					So(entries[i].Disclosed, ShouldBeFalse)
					So(entries[i].Total.IsZero(), ShouldBeTrue)
					So(entries[i].DisplayTotal(), ShouldEqual, types.PrivateTotal)
				}
			})
		})
	})
}

func TestComputeRankingEdgeCases(t *testing.T) {
	Convey("Given edge-case inputs", t, func() {
		Convey("When the input is empty", func() {
			entries, err := ranking.ComputeRanking(nil, 10, 3)
			So(err, ShouldBeNil)
			So(entries, ShouldBeEmpty)

			entries, err = ranking.ComputeRanking([]model.SaleRecord{}, 10, 3)
			So(err, ShouldBeNil)
			So(entries, ShouldBeEmpty)
		})

		Convey("When limits are negative", func() {
			_, err := ranking.ComputeRanking(nil, -1, 3)
			So(errors.Is(err, ranking.ErrInvalidLimit), ShouldBeTrue)
			_, err = ranking.ComputeRanking(nil, 10, -2)
			So(errors.Is(err, ranking.ErrInvalidLimit), ShouldBeTrue)
		})

		Convey("When topN is zero", func() {
			entries, err := ranking.ComputeRanking([]model.SaleRecord{sale("a", "b", "", 1)}, 0, 3)
			So(err, ShouldBeNil)
			So(entries, ShouldBeEmpty)
		})

		Convey("When visibleCount exceeds topN", func() {
			records := []model.SaleRecord{sale("a", "b", "", 1), sale("c", "d", "", 2)}
			entries, err := ranking.ComputeRanking(records, 2, 5)
			So(err, ShouldBeNil)
			So(entries[0].Disclosed && entries[1].Disclosed, ShouldBeTrue)
		})

		Convey("When visibleCount is zero", func() {
			entries, err := ranking.ComputeRanking([]model.SaleRecord{sale("a", "b", "", 1)}, 10, 0)
			So(err, ShouldBeNil)
			So(entries[0].Disclosed, ShouldBeFalse)
		})

		Convey("When some records are malformed", func() {
			records := []model.SaleRecord{
				sale("", "Silva", "", 500),
				sale("Ana", "  ", "", 500),
				sale("Ana", "Silva", "", -5),
				sale("Ana", "Silva", "", 10),
				{FirstName: "Ana", LastName: "Silva"}, // absent amount
			}
			entries, err := ranking.ComputeRanking(records, 10, 3)

			Convey("Then they are skipped and absent amounts count as zero", func() {
				So(err, ShouldBeNil)
				So(len(entries), ShouldEqual, 1)
				So(entries[0].Total.Equal(decimal.NewFromInt(10)), ShouldBeTrue)
			})
		})

		Convey("When names differ only by surrounding spaces or case", func() {
			records := []model.SaleRecord{sale(" Ana", "Silva ", "@Ana", 1), sale("ANA", "silva", "@ana ", 2)}
			So(len(ranking.Aggregate(records)), ShouldEqual, 1)
		})

		Convey("When only the handle differs", func() {
			records := []model.SaleRecord{sale("Ana", "Silva", "", 1), sale("Ana", "Silva", "@ana", 2)}
			So(len(ranking.Aggregate(records)), ShouldEqual, 2)
		})

		Convey("When field values contain a pipe", func() {
			records := []model.SaleRecord{sale("a|b", "c", "", 1), sale("a", "b|c", "", 1)}

			Convey("Then the clients stay distinct", func() {
				So(len(ranking.Aggregate(records)), ShouldEqual, 2)
			})
		})

		Convey("When amounts have cents", func() {
			records := []model.SaleRecord{
				{FirstName: "a", LastName: "b", Amount: decimal.RequireFromString("0.10")},
				{FirstName: "a", LastName: "b", Amount: decimal.RequireFromString("0.20")},
			}
			clients := ranking.Aggregate(records)
			So(clients[0].Total.Equal(decimal.RequireFromString("0.30")), ShouldBeTrue)
		})
	})
}

func TestTieBreak(t *testing.T) {
	Convey("Given clients with equal totals", t, func() {
		records := []model.SaleRecord{
			sale("Caio", "Lima", "", 50),
			sale("Ana", "Silva", "", 80),
			sale("Bia", "Reis", "", 50),
			sale("Caio", "Lima", "", 30),
			sale("Bia", "Reis", "", 30),
		}

		Convey("When aggregating", func() {
			clients := ranking.Aggregate(records)

			Convey("Then all three tie at 80 and keep first-seen order", func() {
				So(len(clients), ShouldEqual, 3)
				So(clients[0].FirstName, ShouldEqual, "Caio")
				So(clients[1].FirstName, ShouldEqual, "Ana")
				So(clients[2].FirstName, ShouldEqual, "Bia")
				So(clients[0].Sales, ShouldEqual, 2)
				for _, c := range clients {
					So(c.Total.Equal(decimal.NewFromInt(80)), ShouldBeTrue)
				}
			})
		})
	})
}

func randomRecords(rng *rand.Rand, n int) []model.SaleRecord {
	firsts := []string{"Ana", "ANA", "Bruno", "bruno", "Caio", "Duda", ""}
	lasts := []string{"Silva", "silva", "Costa", "Lima"}
	handles := []string{"", "@x", "@X"}
	out := make([]model.SaleRecord, n)
	for i := range out {
		out[i] = model.SaleRecord{
			FirstName: firsts[rng.Intn(len(firsts))],
			LastName:  lasts[rng.Intn(len(lasts))],
			Handle:    handles[rng.Intn(len(handles))],
			Amount:    decimal.New(int64(rng.Intn(20000)-1000), -2),
		}
	}
	return out
}

func TestProperties(t *testing.T) {
	Convey("Given random snapshots", t, func() {
		rng := rand.New(rand.NewSource(7)) //nolint:gosec // deterministic test data

		for round := 0; round < 50; round++ {
			records := randomRecords(rng, rng.Intn(60))
			topN := rng.Intn(12)
			visible := rng.Intn(5)

			clients := ranking.Aggregate(records)
			entries, err := ranking.ComputeRanking(records, topN, visible)
			So(err, ShouldBeNil)

			// aggregation correctness over the full grouped set
			want := decimal.Zero
			for i := range records {
				if ranking.Valid(&records[i]) {
					want = want.Add(records[i].Amount)
				}
			}
			got := decimal.Zero
			for _, c := range clients {
				got = got.Add(c.Total)
			}
			So(got.Equal(want), ShouldBeTrue)

			// bounding
			So(len(entries), ShouldEqual, min(len(clients), topN))

			// ordering, ranks and redaction boundary
			for i := range entries {
				So(entries[i].Rank, ShouldEqual, i+1)
				So(entries[i].Disclosed, ShouldEqual, entries[i].Rank <= visible)
				if i+1 < len(clients) {
					So(clients[i].Total.GreaterThanOrEqual(clients[i+1].Total), ShouldBeTrue)
				}
				if entries[i].Disclosed {
					So(entries[i].Total.Equal(clients[i].Total), ShouldBeTrue)
				}
			}

			// idempotence
			again, err := ranking.ComputeRanking(records, topN, visible)
			So(err, ShouldBeNil)
			So(again, ShouldResemble, entries)
		}
	})
}

func TestEngine(t *testing.T) {
	Convey("Given an engine with custom limits and a fixed clock", t, func() {
		at := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
		engine := ranking.NewEngine(
			ranking.WithTopN(2),
			ranking.WithVisibleCount(1),
			ranking.WithClock(func() time.Time { return at }),
		)
		records := []model.SaleRecord{
			sale("a", "a", "", 1),
			sale("b", "b", "", 2),
			sale("c", "c", "", 3),
			sale("", "bad", "", 9),
		}

		Convey("When computing a board", func() {
			board := engine.Compute(context.Background(), records, 7)

			Convey("Then it carries the stats and limits", func() {
				So(board.Version, ShouldEqual, 7)
				So(board.ComputedAt, ShouldEqual, at)
				So(board.Records, ShouldEqual, 4)
				So(board.Excluded, ShouldEqual, 1)
				So(board.Clients, ShouldEqual, 3)
				So(board.TopN, ShouldEqual, 2)
				So(board.VisibleCount, ShouldEqual, 1)
				So(len(board.Entries), ShouldEqual, 2)
				So(board.Entries[0].Disclosed, ShouldBeTrue)
				So(board.Entries[1].Disclosed, ShouldBeFalse)
			})
		})

		Convey("When negative options are passed", func() {
			e := ranking.NewEngine(ranking.WithTopN(-1), ranking.WithVisibleCount(-1))

			Convey("Then the defaults are kept", func() {
				So(e.TopN(), ShouldEqual, ranking.DefaultTopN)
				So(e.VisibleCount(), ShouldEqual, ranking.DefaultVisibleCount)
			})
		})
	})
}
