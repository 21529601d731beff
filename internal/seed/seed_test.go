package seed

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Clinico01/ranking-de-clientes3/internal/adapters/http/api"
	service "github.com/Clinico01/ranking-de-clientes3/internal/app"
	"github.com/Clinico01/ranking-de-clientes3/internal/domain/model"
	"github.com/Clinico01/ranking-de-clientes3/internal/domain/ranking"
	"github.com/Clinico01/ranking-de-clientes3/pkg/logger"
	"github.com/shopspring/decimal"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init(logger.WithLevel(slog.LevelError))
}

func rec(first, last string, amount int64) model.SaleRecord {
	return model.SaleRecord{FirstName: first, LastName: last, Amount: decimal.NewFromInt(amount)}
}

func TestGenerate(t *testing.T) {
	Convey("Given a generator config", t, func() {
		cfg := &Config{Sales: 300, Clients: 12, Seed: 99}

		Convey("When generating twice with the same seed", func() {
			a, b := Generate(cfg), Generate(cfg)

			Convey("Then the sales are equal and the keys unique", func() {
				So(len(a), ShouldEqual, 300)
				for i := range a {
					So(a[i].Input, ShouldResemble, b[i].Input)
					So(a[i].Key, ShouldNotEqual, b[i].Key)
				}
			})

			Convey("And spelling variants group back to at most the configured clients", func() {
				clients := ranking.Aggregate(records(a))
				So(len(clients), ShouldBeLessThanOrEqualTo, 12)
				So(len(clients), ShouldBeGreaterThan, 1)
			})
		})

		Convey("When many clients are requested", func() {
			seen := make(map[identity]bool)
			for i := 0; i < 1000; i++ {
				id := clientIdentity(i)
				So(seen[id], ShouldBeFalse)
				seen[id] = true
			}
		})
	})
}

func TestVerify(t *testing.T) {
	Convey("Given accepted records with a tie", t, func() {
		accepted := []model.SaleRecord{
			rec("Ana", "Silva", 50),
			rec("Bruno", "Costa", 50),
			rec("Caio", "Lima", 10),
			rec("Duda", "Reis", 5),
			rec("ana", "SILVA", 0),
		}
		engine := ranking.NewEngine(ranking.WithTopN(3), ranking.WithVisibleCount(2))

		Convey("When the server saw the records in another order", func() {
			served := []model.SaleRecord{accepted[1], accepted[0], accepted[4], accepted[3], accepted[2]}
			board := engine.Compute(context.Background(), served, 1)

			Convey("Then the board still verifies", func() {
				So(Verify(accepted, board), ShouldBeNil)
			})
		})

		Convey("When the board is tampered with", func() {
			board := engine.Compute(context.Background(), accepted, 1)

			Convey("Then a leaked redacted total is caught", func() {
				board.Entries[2].Total = decimal.NewFromInt(10)
				So(errors.Is(Verify(accepted, board), ErrMismatch), ShouldBeTrue)
			})

			Convey("Then a wrong disclosed total is caught", func() {
				board.Entries[0].Total = decimal.NewFromInt(51)
				So(errors.Is(Verify(accepted, board), ErrMismatch), ShouldBeTrue)
			})

			Convey("Then swapped ranks of unequal totals are caught", func() {
				board.Entries[1], board.Entries[2] = board.Entries[2], board.Entries[1]
				board.Entries[1].Rank, board.Entries[2].Rank = 2, 3
				So(errors.Is(Verify(accepted, board), ErrMismatch), ShouldBeTrue)
			})

			Convey("Then a wrong client count is caught", func() {
				board.Clients++
				So(errors.Is(Verify(accepted, board), ErrMismatch), ShouldBeTrue)
			})
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a running service behind an HTTP server", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithWorkerCount(2), service.WithQueueSize(64))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		mux := http.NewServeMux()
		api.NewServer(svc, api.DefaultMaxLimit).Register(ctx, mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		cfg := &Config{
			BaseURL:    srv.URL,
			Sales:      200,
			Clients:    15,
			Duplicates: 10,
			Workers:    4,
			Timeout:    5 * time.Second,
			Settle:     10 * time.Second,
			Seed:       7,
		}

		Convey("When seeding an empty service", func() {
			stats, err := Run(ctx, cfg)

			Convey("Then every sale lands once and the board verifies", func() {
				So(err, ShouldBeNil)
				So(stats.Created, ShouldEqual, 200)
				So(stats.Duplicate, ShouldEqual, 10)
				So(stats.Failed, ShouldEqual, 0)
				So(stats.Verified, ShouldBeTrue)
			})

			Convey("And a second run skips verification", func() {
				cfg.Seed = 8
				again, err := Run(ctx, cfg)
				So(err, ShouldBeNil)
				So(again.Verified, ShouldBeFalse)
				So(again.SkipReason, ShouldNotBeEmpty)
			})
		})
	})
}

func TestRunUnreachable(t *testing.T) {
	Convey("Given no service listening", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		Convey("When running", func() {
			_, err := Run(context.Background(), &Config{BaseURL: url, Sales: 1, Workers: 1, Timeout: time.Second})

			Convey("Then the health check fails", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "health")
			})
		})
	})
}
