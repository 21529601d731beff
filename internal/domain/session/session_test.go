package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Clinico01/ranking-de-clientes3/internal/domain/session"
	"github.com/smartystreets/goconvey/convey"
	"golang.org/x/crypto/bcrypt"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// jumpClock moves forward by jump on its jumpAt-th reading.
type jumpClock struct {
	mu     sync.Mutex
	t      time.Time
	calls  int
	jumpAt int
	jump   time.Duration
}

func (c *jumpClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.calls == c.jumpAt {
		c.t = c.t.Add(c.jump)
	}
	return c.t
}

func (c *jumpClock) jumpAfter(reads int, d time.Duration) {
	c.mu.Lock()
	c.jumpAt = c.calls + reads + 1
	c.jump = d
	c.mu.Unlock()
}

func hash(key string) string {
	b, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return string(b)
}

func TestManager(t *testing.T) {
	convey.Convey("Given a session manager with an admin key", t, func() {
		ctx := context.Background()
		clk := &clock{t: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)}
		m := session.NewManager(
			session.WithTTL(time.Hour),
			session.WithAdminKeyHash(hash("s3cret")),
			session.WithClock(clk.now),
		)

		convey.Convey("When a session is created", func() {
			s := m.Create(ctx)

			convey.Convey("Then it is anonymous and resolvable", func() {
				convey.So(s.Token, convey.ShouldNotBeEmpty)
				convey.So(s.Admin, convey.ShouldBeFalse)
				got, err := m.Get(ctx, s.Token)
				convey.So(err, convey.ShouldBeNil)
				convey.So(got.Token, convey.ShouldEqual, s.Token)
				convey.So(m.Count(), convey.ShouldEqual, 1)
			})

			convey.Convey("And unlocked with the right key", func() {
				got, err := m.Unlock(ctx, s.Token, "s3cret")

				convey.Convey("Then it becomes admin", func() {
					convey.So(err, convey.ShouldBeNil)
					convey.So(got.Admin, convey.ShouldBeTrue)
					again, _ := m.Get(ctx, s.Token)
					convey.So(again.Admin, convey.ShouldBeTrue)
				})
			})

			convey.Convey("And unlocked with a wrong key", func() {
				_, err := m.Unlock(ctx, s.Token, "guess")

				convey.Convey("Then it is rejected and stays anonymous", func() {
					convey.So(errors.Is(err, session.ErrInvalidKey), convey.ShouldBeTrue)
					again, _ := m.Get(ctx, s.Token)
					convey.So(again.Admin, convey.ShouldBeFalse)
				})
			})

			convey.Convey("And a notice is dismissed", func() {
				_, err := m.DismissNotice(ctx, s.Token, 3)
				convey.So(err, convey.ShouldBeNil)
				got, _ := m.DismissNotice(ctx, s.Token, 2)

				convey.Convey("Then the highest version is kept", func() {
					convey.So(got.DismissedNotice, convey.ShouldEqual, 3)
				})
			})

			convey.Convey("And the TTL passes without activity", func() {
				clk.advance(time.Hour)

				convey.Convey("Then the session is gone", func() {
					_, err := m.Get(ctx, s.Token)
					convey.So(errors.Is(err, session.ErrNotFound), convey.ShouldBeTrue)
					convey.So(m.Count(), convey.ShouldEqual, 0)
				})
			})

			convey.Convey("And it keeps being used", func() {
				for i := 0; i < 3; i++ {
					clk.advance(40 * time.Minute)
					_, err := m.Get(ctx, s.Token)
					convey.So(err, convey.ShouldBeNil)
				}

				convey.Convey("Then each use extends its lifetime", func() {
					got, _ := m.Get(ctx, s.Token)
					convey.So(got.ExpiresAt, convey.ShouldEqual, clk.now().Add(time.Hour))
				})
			})
		})

		convey.Convey("When expired sessions pile up", func() {
			for i := 0; i < 5; i++ {
				m.Create(ctx)
			}
			clk.advance(2 * time.Hour)
			m.Create(ctx)

			convey.Convey("Then the next create sweeps them", func() {
				convey.So(m.Count(), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When an unknown token is used", func() {
			_, err := m.Unlock(ctx, "nope", "s3cret")
			convey.So(errors.Is(err, session.ErrNotFound), convey.ShouldBeTrue)
			_, err = m.DismissNotice(ctx, "nope", 1)
			convey.So(errors.Is(err, session.ErrNotFound), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given a manager without an admin key", t, func() {
		ctx := context.Background()
		m := session.NewManager()
		s := m.Create(ctx)

		convey.Convey("Then unlocking is disabled", func() {
			convey.So(m.UnlockEnabled(), convey.ShouldBeFalse)
			_, err := m.Unlock(ctx, s.Token, "anything")
			convey.So(errors.Is(err, session.ErrUnlockDisabled), convey.ShouldBeTrue)
		})
	})
}

func TestUnlockExpiry(t *testing.T) {
	convey.Convey("Given a session that expires while its key is checked", t, func() {
		ctx := context.Background()
		clk := &jumpClock{t: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)}
		m := session.NewManager(
			session.WithTTL(time.Hour),
			session.WithAdminKeyHash(hash("s3cret")),
			session.WithClock(clk.now),
		)
		s := m.Create(ctx)
		clk.jumpAfter(1, 2*time.Hour)

		convey.Convey("When it is unlocked with the right key", func() {
			got, err := m.Unlock(ctx, s.Token, "s3cret")

			convey.Convey("Then the unlock fails and no admin session survives", func() {
				convey.So(errors.Is(err, session.ErrNotFound), convey.ShouldBeTrue)
				convey.So(got.Admin, convey.ShouldBeFalse)
				convey.So(m.Count(), convey.ShouldEqual, 0)
				_, err := m.Get(ctx, s.Token)
				convey.So(errors.Is(err, session.ErrNotFound), convey.ShouldBeTrue)
			})
		})
	})
}

func TestHashKey(t *testing.T) {
	convey.Convey("Given a hashed key", t, func() {
		h, err := session.HashKey("s3cret")
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then a manager configured with it unlocks", func() {
			ctx := context.Background()
			m := session.NewManager(session.WithAdminKeyHash(h))
			s := m.Create(ctx)
			got, err := m.Unlock(ctx, s.Token, "s3cret")
			convey.So(err, convey.ShouldBeNil)
			convey.So(got.Admin, convey.ShouldBeTrue)
		})
	})
}
