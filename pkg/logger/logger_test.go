package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		Convey("When initialized with defaults", func() {
			So(Init(), ShouldBeNil)

			Convey("Then Get returns a usable logger", func() {
				So(Get(), ShouldNotBeNil)
				So(Sync(), ShouldBeNil)
			})
		})

		Convey("When initialized twice", func() {
			So(Init(), ShouldBeNil)
			So(Init(WithFormat("json")), ShouldBeNil)

			Convey("Then the last call wins without error", func() {
				So(Get(), ShouldNotBeNil)
			})
		})
	})
}

func TestLoggerOutput(t *testing.T) {
	Convey("Given a JSON logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(Init(WithFormat("json"), WithWriter(&buf)), ShouldBeNil)
		ctx := context.Background()

		Convey("When logging with fields", func() {
			Get().Info(ctx, "sale created",
				String("sale_id", "abc"),
				Int("count", 2),
				Bool("disclosed", true),
				Duration("took", 1500*time.Millisecond),
				Error(errors.New("boom")),
			)

			Convey("Then the record carries message, fields and source", func() {
				var rec map[string]any
				So(json.Unmarshal(buf.Bytes(), &rec), ShouldBeNil)
				So(rec["msg"], ShouldEqual, "sale created")
				So(rec["sale_id"], ShouldEqual, "abc")
				So(rec["count"], ShouldEqual, float64(2))
				So(rec["disclosed"], ShouldEqual, true)
				So(rec["took"], ShouldEqual, "1.5s")
				So(rec["error"], ShouldEqual, "boom")
				So(rec["source"], ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When using a named logger", func() {
			Named("ranking").Warn(ctx, "excluded records")

			Convey("Then the component is attached", func() {
				So(buf.String(), ShouldContainSubstring, `"component":"ranking"`)
			})
		})

		Convey("When using With", func() {
			Get().With(String("session", "s1")).Info(ctx, "unlocked")

			Convey("Then the bound field is present", func() {
				So(buf.String(), ShouldContainSubstring, `"session":"s1"`)
			})
		})

		Convey("When the level filters a record", func() {
			SetLevel(slog.LevelWarn)
			defer SetLevel(slog.LevelInfo)
			Get().Debug(ctx, "hidden")
			Get().Info(ctx, "hidden too")

			Convey("Then nothing is written", func() {
				So(buf.Len(), ShouldEqual, 0)
			})
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level strings", t, func() {
		So(Init(), ShouldBeNil)

		cases := map[string]slog.Level{
			"debug":   slog.LevelDebug,
			"":        slog.LevelInfo,
			"INFO":    slog.LevelInfo,
			"warning": slog.LevelWarn,
			" warn ":  slog.LevelWarn,
			"error":   slog.LevelError,
		}
		for in, want := range cases {
			So(SetLevelString(in), ShouldBeNil)
			So(Level(), ShouldEqual, want)
		}

		Convey("Then unknown levels are rejected", func() {
			err := SetLevelString("loud")
			So(err, ShouldNotBeNil)
			So(strings.Contains(err.Error(), "loud"), ShouldBeTrue)
		})
	})
}

func TestNop(t *testing.T) {
	Convey("Given a nop logger", t, func() {
		l := Nop()

		Convey("Then all methods except Fatal are safe", func() {
			So(func() {
				l.Info(context.Background(), "x")
				l.Named("n").Error(context.Background(), "y")
				l.With(String("k", "v")).Debug(context.Background(), "z")
			}, ShouldNotPanic)
		})
	})
}
