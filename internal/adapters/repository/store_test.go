package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Clinico01/ranking-de-clientes3/internal/domain/model"
	"github.com/Clinico01/ranking-de-clientes3/pkg/metrics"
	"github.com/shopspring/decimal"
)

// fixedClock returns successive instants one second apart.
func fixedClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

// storeMetric reads the samples recorded for backend and op: the latency
// histogram count and the error counter.
func storeMetric(t *testing.T, backend, op string) (observed uint64, failed float64) {
	t.Helper()
	families, err := metrics.GetRegistry().Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, f := range families {
		for _, m := range f.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["backend"] != backend || labels["op"] != op {
				continue
			}
			switch f.GetName() {
			case "ranking_clients_store_latency_milliseconds":
				observed = m.GetHistogram().GetSampleCount()
			case "ranking_clients_store_errors_total":
				failed = m.GetCounter().GetValue()
			}
		}
	}
	return observed, failed
}

var noticeContactOps = []string{
	"count", "get_notice", "set_notice", "clear_notice",
	"list_contacts", "add_contact", "update_contact", "delete_contact",
}

// runNoticeContactOps calls every notice and contact operation once and
// returns the errors by op name.
func runNoticeContactOps(ctx context.Context, s Store) map[string]error {
	errs := map[string]error{}
	_, errs["count"] = s.Count(ctx)
	_, errs["get_notice"] = s.GetNotice(ctx)
	_, errs["set_notice"] = s.SetNotice(ctx, "hello")
	_, errs["clear_notice"] = s.ClearNotice(ctx)
	_, errs["list_contacts"] = s.ListContacts(ctx)
	c, err := s.AddContact(ctx, model.ContactLink{ID: "c1", Label: "Site", URL: "https://example.com"})
	errs["add_contact"] = err
	c.ID = "c1"
	errs["update_contact"] = s.UpdateContact(ctx, c)
	errs["delete_contact"] = s.DeleteContact(ctx, c.ID)
	return errs
}

func newSale(first, last string, amount int64) model.SaleRecord {
	return model.SaleRecord{FirstName: first, LastName: last, Amount: decimal.NewFromInt(amount)}
}

// runStoreSuite exercises the Store contract against one backend. newStore
// must return an empty store.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("CreateGetList", func(t *testing.T) {
		s := newStore(t)

		if n, err := s.Count(ctx); err != nil || n != 0 {
			t.Fatalf("expected empty store, got %d (%v)", n, err)
		}

		a, err := s.Create(ctx, newSale("Ana", "Silva", 100))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a.ID == "" {
			t.Fatal("expected generated id")
		}
		if a.CreatedAt.IsZero() || !a.UpdatedAt.Equal(a.CreatedAt) {
			t.Errorf("expected stamped timestamps, got %v/%v", a.CreatedAt, a.UpdatedAt)
		}
		b, err := s.Create(ctx, newSale("Bruno", "Costa", 30))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got, err := s.Get(ctx, a.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.FirstName != "Ana" || !got.Amount.Equal(decimal.NewFromInt(100)) {
			t.Errorf("unexpected record %+v", got)
		}

		list, err := s.List(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(list) != 2 || list[0].ID != a.ID || list[1].ID != b.ID {
			t.Errorf("expected creation order [%s %s], got %+v", a.ID, b.ID, list)
		}
		if n, _ := s.Count(ctx); n != 2 {
			t.Errorf("expected count 2, got %d", n)
		}
	})

	t.Run("DuplicateID", func(t *testing.T) {
		s := newStore(t)
		rec := newSale("Ana", "Silva", 1)
		rec.ID = "fixed"
		if _, err := s.Create(ctx, rec); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := s.Create(ctx, rec); !errors.Is(err, ErrAlreadyExists) {
			t.Errorf("expected ErrAlreadyExists, got %v", err)
		}
	})

	t.Run("UpdateDelete", func(t *testing.T) {
		s := newStore(t)
		rec, _ := s.Create(ctx, newSale("Ana", "Silva", 1))

		rec.Amount = decimal.RequireFromString("12.34")
		if err := s.Update(ctx, rec); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got, _ := s.Get(ctx, rec.ID)
		if !got.Amount.Equal(decimal.RequireFromString("12.34")) {
			t.Errorf("expected updated amount, got %s", got.Amount)
		}

		if err := s.Update(ctx, model.SaleRecord{ID: "missing"}); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if err := s.Update(ctx, model.SaleRecord{}); !errors.Is(err, ErrEmptyID) {
			t.Errorf("expected ErrEmptyID, got %v", err)
		}

		if err := s.Delete(ctx, rec.ID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := s.Get(ctx, rec.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
		if err := s.Delete(ctx, rec.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound on second delete, got %v", err)
		}
	})

	t.Run("Notice", func(t *testing.T) {
		s := newStore(t)
		n, err := s.GetNotice(ctx)
		if err != nil || n.Message != "" || n.Version != 0 {
			t.Fatalf("expected empty notice, got %+v (%v)", n, err)
		}
		first, err := s.SetNotice(ctx, "Promo de sábado")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		cleared, _ := s.ClearNotice(ctx)
		second, _ := s.SetNotice(ctx, "Nova mensagem")
		if !(first.Version < cleared.Version && cleared.Version < second.Version) {
			t.Errorf("expected increasing versions, got %d %d %d", first.Version, cleared.Version, second.Version)
		}
		if cleared.Message != "" {
			t.Errorf("expected cleared message, got %q", cleared.Message)
		}
		cur, _ := s.GetNotice(ctx)
		if cur.Message != "Nova mensagem" || cur.Version != second.Version {
			t.Errorf("unexpected notice %+v", cur)
		}
	})

	t.Run("Contacts", func(t *testing.T) {
		s := newStore(t)
		wa, err := s.AddContact(ctx, model.ContactLink{Label: "WhatsApp", URL: "https://wa.me/1", Position: 2})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		ig, _ := s.AddContact(ctx, model.ContactLink{Label: "Instagram", URL: "https://instagram.com/x", Position: 1})

		list, _ := s.ListContacts(ctx)
		if len(list) != 2 || list[0].ID != ig.ID || list[1].ID != wa.ID {
			t.Errorf("expected position order, got %+v", list)
		}

		wa.Position = 0
		if err := s.UpdateContact(ctx, wa); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		list, _ = s.ListContacts(ctx)
		if list[0].ID != wa.ID {
			t.Errorf("expected %s first after reorder, got %+v", wa.ID, list)
		}

		if err := s.DeleteContact(ctx, ig.ID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := s.DeleteContact(ctx, ig.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if err := s.UpdateContact(ctx, model.ContactLink{ID: "nope"}); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ConcurrentCreate", func(t *testing.T) {
		s := newStore(t)
		const n = 50
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if _, err := s.Create(ctx, newSale(fmt.Sprintf("c%d", i), "x", int64(i))); err != nil {
					errs <- err
				}
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Errorf("unexpected error: %v", err)
		}
		if c, _ := s.Count(ctx); c != n {
			t.Errorf("expected %d records, got %d", n, c)
		}
	})
}
