package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	. "github.com/smartystreets/goconvey/convey"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := NewRedisStore(context.Background(), RedisConfig{Addr: mr.Addr(), Prefix: "test:"},
		WithMetricsUpdateInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("failed to create RedisStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestRedisStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		s, _ := newTestRedisStore(t)
		return s
	})
}

func TestRedisStoreLayout(t *testing.T) {
	Convey("Given a Redis store backed by miniredis", t, func() {
		s, mr := newTestRedisStore(t)
		ctx := context.Background()

		Convey("When a session is upserted", func() {
			err := s.Upsert(ctx, "abc", fixations(0.25, 0.5), saccades(`{"v":1}`), baseTime)
			So(err, ShouldBeNil)

			Convey("Then a hash and an index entry are written under the prefix", func() {
				So(mr.Exists("test:session:abc"), ShouldBeTrue)
				So(mr.HGet("test:session:abc", "fixations"), ShouldEqual, `[{"x_per":0.25,"y_per":0.5}]`)
				So(mr.HGet("test:session:abc", "saccades"), ShouldEqual, `[{"v":1}]`)

				score, err := mr.ZScore("test:sessions", "abc")
				So(err, ShouldBeNil)
				So(score, ShouldEqual, float64(baseTime.UnixMicro()))
			})

			Convey("And eviction removes both", func() {
				removed, err := s.EvictStale(ctx, baseTime.Add(time.Minute), time.Second)
				So(err, ShouldBeNil)
				So(removed, ShouldEqual, 1)
				So(mr.Exists("test:session:abc"), ShouldBeFalse)
				members, _ := mr.ZMembers("test:sessions")
				So(members, ShouldBeEmpty)
			})
		})

		Convey("When the index names a hash that is gone", func() {
			So(s.Upsert(ctx, "kept", fixations(0.1, 0.1), nil, baseTime), ShouldBeNil)
			_, err := mr.ZAdd("test:sessions", float64(baseTime.UnixMicro()), "ghost")
			So(err, ShouldBeNil)

			Convey("Then the snapshot skips it", func() {
				entries, err := s.Snapshot(ctx)
				So(err, ShouldBeNil)
				So(len(entries), ShouldEqual, 1)
				So(entries[0].SessionID, ShouldEqual, "kept")
			})
		})

		Convey("When a hash holds garbage", func() {
			mr.HSet("test:session:bad", "fixations", "not json", "saccades", "[]", "last_seen", "1")

			Convey("Then Get reports a corrupt entry", func() {
				_, err := s.Get(ctx, "bad")
				So(errors.Is(err, ErrCorruptEntry), ShouldBeTrue)
			})
		})

		Convey("When Redis goes away", func() {
			mr.Close()

			Convey("Then writes fail and Count degrades to zero", func() {
				So(s.Upsert(ctx, "x", fixations(0.1, 0.1), nil, baseTime), ShouldNotBeNil)
				_, err := s.EvictStale(ctx, baseTime, time.Second)
				So(err, ShouldNotBeNil)
				So(s.Count(ctx), ShouldEqual, 0)
			})
		})
	})
}

func TestNewRedisStore_ConnectionError(t *testing.T) {
	Convey("Given an unreachable Redis address", t, func() {
		s, err := NewRedisStore(context.Background(), RedisConfig{Addr: "127.0.0.1:0"})

		Convey("Then construction fails", func() {
			So(err, ShouldNotBeNil)
			So(s, ShouldBeNil)
		})
	})
}

func TestNewStore(t *testing.T) {
	Convey("Given store configurations", t, func() {
		ctx := context.Background()

		Convey("When the type is memory or empty", func() {
			for _, typ := range []string{"memory", ""} {
				s, err := NewStore(ctx, Config{Type: typ})
				So(err, ShouldBeNil)
				_, ok := s.(*MemoryStore)
				So(ok, ShouldBeTrue)
				So(s.Close(), ShouldBeNil)
			}
		})

		Convey("When the type is redis", func() {
			mr := miniredis.RunT(t)
			s, err := NewStore(ctx, Config{Type: "redis", Redis: RedisConfig{Addr: mr.Addr()}})

			Convey("Then a Redis store with the default prefix is returned", func() {
				So(err, ShouldBeNil)
				rs, ok := s.(*RedisStore)
				So(ok, ShouldBeTrue)
				So(rs.indexKey, ShouldEqual, "gaze:sessions")
				So(s.Close(), ShouldBeNil)
			})
		})

		Convey("When the redis backend cannot connect", func() {
			s, err := NewStore(ctx, Config{Type: "redis", Redis: RedisConfig{Addr: "127.0.0.1:0"}})

			Convey("Then the interface value is nil", func() {
				So(err, ShouldNotBeNil)
				So(s, ShouldBeNil)
			})
		})

		Convey("When the type is unknown", func() {
			_, err := NewStore(ctx, Config{Type: "etcd"})

			Convey("Then it is rejected", func() {
				So(errors.Is(err, ErrUnsupportedType), ShouldBeTrue)
			})
		})
	})
}
