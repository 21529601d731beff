package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	service "github.com/Clinico01/ranking-de-clientes3/internal/app"
	"github.com/Clinico01/ranking-de-clientes3/internal/adapters/repository"
	"github.com/Clinico01/ranking-de-clientes3/internal/domain/model"
	"github.com/Clinico01/ranking-de-clientes3/internal/domain/ranking"
	"github.com/shopspring/decimal"
	. "github.com/smartystreets/goconvey/convey"
)

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service backed by a pebble store", t, func() {
		ctx := context.Background()
		dir := t.TempDir()

		store, err := repository.NewPebbleStore(dir)
		So(err, ShouldBeNil)
		svc := service.New(service.WithStore(store), service.WithWorkerCount(4), service.WithQueueSize(4096))
		So(svc.Start(ctx), ShouldBeNil)

		Convey("When many sales are submitted concurrently", func() {
			var (
				wg      sync.WaitGroup
				mu      sync.Mutex
				created []model.SaleRecord
			)
			names := []string{"Ana", "ANA", "ana ", "Bruno", "bruno", "Caio", "Duda", "Eva", "Fabi", "Gui", "Hugo", "Iara"}
			for i := 0; i < 120; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					rec, _, err := svc.CreateSale(ctx, model.SaleInput{
						FirstName: names[i%len(names)],
						LastName:  "Souza",
						Amount:    decimal.New(int64(100+i), -1),
					}, fmt.Sprintf("req-%d", i))
					if err == nil {
						mu.Lock()
						created = append(created, rec)
						mu.Unlock()
					}
				}(i)
			}
			wg.Wait()

			Convey("Then the served board matches a local recompute of the stored sales", func() {
				So(len(created), ShouldEqual, 120)
				snapshot, err := svc.ListSales(ctx)
				So(err, ShouldBeNil)
				want, err := ranking.ComputeRanking(snapshot, ranking.DefaultTopN, ranking.DefaultVisibleCount)
				So(err, ShouldBeNil)

				So(eventually(func() bool {
					b, _ := svc.Leaderboard(ctx, 0)
					if len(b.Entries) != len(want) {
						return false
					}
					for i := range want {
						if b.Entries[i].Rank != want[i].Rank || !b.Entries[i].Total.Equal(want[i].Total) {
							return false
						}
					}
					return true
				}), ShouldBeTrue)

				n, _ := svc.ClientCount(ctx)
				So(n, ShouldEqual, 9)
			})

			Convey("And the service restarts on the same directory", func() {
				svc.Stop()

				reopened, err := repository.NewPebbleStore(dir)
				So(err, ShouldBeNil)
				again := service.New(service.WithStore(reopened))
				So(again.Start(ctx), ShouldBeNil)
				defer again.Stop()

				Convey("Then the initial board is rebuilt from the persisted sales", func() {
					b, err := again.Leaderboard(ctx, 0)
					So(err, ShouldBeNil)
					So(b.Records, ShouldEqual, 120)
					So(b.Clients, ShouldEqual, 9)
				})
			})
		})

		Reset(func() {
			svc.Stop()
		})
	})
}
