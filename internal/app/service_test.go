package service_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/hotpath/internal/adapters/mq/worker"
	service "github.com/okian/hotpath/internal/app"
	"github.com/okian/hotpath/internal/domain/model"
	"github.com/okian/hotpath/internal/domain/ranking"
	"github.com/okian/hotpath/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func fanout(id string) model.Task {
	return model.Task{
		Kind:           model.KindFanoutNotification,
		IdempotencyKey: id,
		RecipientID:    "u1",
		ActorID:        "u2",
		Type:           "like",
	}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should not be started", func() {
			So(svc, ShouldNotBeNil)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithWorkerCount(8),
			service.WithQueueSize(500),
			service.WithDedupeSize(25),
		)

		Convey("Then the options are reflected in stats", func() {
			stats := svc.GetStats()
			So(stats["workerCount"], ShouldEqual, 8)
			So(stats["queueSize"], ShouldEqual, 500)
			So(stats["dedupeSize"], ShouldEqual, 25)
		})
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a service", t, func() {
		svc := service.New(service.WithWorkerCount(2))
		ctx := context.Background()

		Convey("When started twice and stopped twice", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.GetStats()["started"], ShouldEqual, true)

			svc.Stop()
			svc.Stop()

			Convey("Then it ends stopped", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})

		Convey("When the start context is cancelled", func() {
			startCtx, cancel := context.WithCancel(ctx)
			So(svc.Start(startCtx), ShouldBeNil)
			cancel()
			defer svc.Stop()

			Convey("Then tasks are still accepted", func() {
				ack, err := svc.Acknowledge(ctx, fanout(""))
				So(err, ShouldBeNil)
				So(ack.Accepted, ShouldBeTrue)
			})
		})
	})
}

func TestService_RankFeed(t *testing.T) {
	Convey("Given a service", t, func() {
		svc := service.New()
		ctx := context.Background()

		Convey("When ranking the end-to-end example", func() {
			ids, err := svc.RankFeed(ctx, []ranking.Candidate{
				{ID: "p3", Score: 1.0, Timestamp: "2024-01-01"},
				{ID: "p1", Score: 2.0, Timestamp: "2024-01-02"},
				{ID: "p2", Score: 2.0, Timestamp: "2024-01-03"},
			})

			Convey("Then the ranked ids are returned", func() {
				So(err, ShouldBeNil)
				So(ids, ShouldResemble, []string{"p2", "p1", "p3"})
				So(svc.GetStats()["rankCalls"], ShouldEqual, int64(1))
				So(svc.GetStats()["rankedTotal"], ShouldEqual, int64(3))
			})
		})

		Convey("When ranking an empty set", func() {
			ids, err := svc.RankFeed(ctx, nil)

			Convey("Then the result is empty and non-nil", func() {
				So(err, ShouldBeNil)
				So(ids, ShouldNotBeNil)
				So(ids, ShouldBeEmpty)
			})
		})

		Convey("When ranking NaN scores", func() {
			ids, err := svc.RankFeed(ctx, []ranking.Candidate{
				{ID: "a", Score: math.NaN()},
				{ID: "b", Score: 5},
			})

			Convey("Then NaN ranks last", func() {
				So(err, ShouldBeNil)
				So(ids, ShouldResemble, []string{"b", "a"})
			})
		})

		Convey("Ranking does not require Start", func() {
			_, err := svc.RankFeed(ctx, []ranking.Candidate{{ID: "x", Score: 1}})
			So(err, ShouldBeNil)
		})
	})
}

func TestService_Acknowledge(t *testing.T) {
	Convey("Given a started service with a recording sink", t, func() {
		var (
			mu   sync.Mutex
			seen []model.Task
		)
		sink := worker.SinkFunc(func(_ context.Context, t model.Task) error {
			mu.Lock()
			seen = append(seen, t)
			mu.Unlock()
			return nil
		})
		svc := service.New(service.WithWorkerCount(2), service.WithSink(sink))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)

		Convey("When the same notification is sent twice", func() {
			first, err1 := svc.Acknowledge(ctx, fanout("n-1"))
			second, err2 := svc.Acknowledge(ctx, fanout("n-1"))
			svc.Stop()

			Convey("Then only one task reaches the sink", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(first, ShouldResemble, service.Ack{Accepted: true})
				So(second, ShouldResemble, service.Ack{Accepted: true, Duplicate: true})
				mu.Lock()
				defer mu.Unlock()
				So(len(seen), ShouldEqual, 1)
			})
		})

		Convey("When notifications carry no id", func() {
			_, _ = svc.Acknowledge(ctx, fanout(""))
			_, _ = svc.Acknowledge(ctx, fanout(""))
			svc.Stop()

			Convey("Then each is delivered", func() {
				mu.Lock()
				defer mu.Unlock()
				So(len(seen), ShouldEqual, 2)
			})
		})

		Convey("When every task kind is acknowledged", func() {
			tasks := []model.Task{
				fanout("n-2"),
				{Kind: model.KindIndexSearch, Entity: "post", EntityID: "p1"},
				{Kind: model.KindProcessMedia, MediaID: "m1", MediaType: "image", URL: "https://cdn/x.png"},
			}
			for _, task := range tasks {
				ack, err := svc.Acknowledge(ctx, task)
				So(err, ShouldBeNil)
				So(ack.Accepted, ShouldBeTrue)
			}
			svc.Stop()

			Convey("Then the sink sees all of them", func() {
				mu.Lock()
				defer mu.Unlock()
				So(len(seen), ShouldEqual, 3)
				So(svc.GetStats()["acksAccepted"], ShouldEqual, int64(3))
			})
		})

		Convey("When a task is invalid", func() {
			_, err := svc.Acknowledge(ctx, model.Task{Kind: model.KindIndexSearch})
			svc.Stop()

			Convey("Then it is rejected", func() {
				So(errors.Is(err, model.ErrInvalidTask), ShouldBeTrue)
			})
		})
	})

	Convey("Given a service that was never started", t, func() {
		svc := service.New()

		Convey("Then valid tasks are refused", func() {
			_, err := svc.Acknowledge(context.Background(), fanout("x"))
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})
	})
}

func TestService_Backpressure(t *testing.T) {
	Convey("Given a service whose single worker is blocked", t, func() {
		release := make(chan struct{})
		var delivered atomic.Int64
		sink := worker.SinkFunc(func(_ context.Context, _ model.Task) error {
			<-release
			delivered.Add(1)
			return nil
		})
		svc := service.New(
			service.WithWorkerCount(1),
			service.WithQueueSize(1),
			service.WithSink(sink),
			service.WithStopTimeout(5*time.Second),
		)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)

		Convey("When the queue overflows", func() {
			var backpressured error
			for i := 0; i < 10 && backpressured == nil; i++ {
				_, backpressured = svc.Acknowledge(ctx, fanout("bp-"+string(rune('a'+i))))
			}

			Convey("Then ErrBackpressure is returned and the key is released", func() {
				So(errors.Is(backpressured, service.ErrBackpressure), ShouldBeTrue)
				So(svc.GetStats()["acksBackpressed"], ShouldEqual, int64(1))

				close(release)
				svc.Stop()
				So(delivered.Load(), ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestService_CheckRateLimit(t *testing.T) {
	Convey("Given a service", t, func() {
		svc := service.New()
		ctx := context.Background()

		Convey("Then every request is approved", func() {
			res := svc.CheckRateLimit(ctx, service.RateLimitRequest{Key: "k", Limit: 10, WindowSeconds: 60})
			So(res, ShouldResemble, service.RateLimitResult{Success: true, Limit: 10, Remaining: 9})
		})

		Convey("And remaining saturates at zero", func() {
			res := svc.CheckRateLimit(ctx, service.RateLimitRequest{Key: "k"})
			So(res.Remaining, ShouldEqual, uint32(0))
			So(res.Success, ShouldBeTrue)
		})
	})
}

func TestService_Concurrency(t *testing.T) {
	Convey("Given concurrent rankers and acknowledgers", t, func() {
		svc := service.New(service.WithWorkerCount(4), service.WithQueueSize(10_000))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)

		var (
			wg       sync.WaitGroup
			failures atomic.Int64
		)
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func(g int) {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					in := []ranking.Candidate{
						{ID: "a", Score: float64(i)},
						{ID: "b", Score: float64(g)},
					}
					if _, err := svc.RankFeed(ctx, in); err != nil {
						failures.Add(1)
					}
					if _, err := svc.Acknowledge(ctx, fanout("")); err != nil {
						failures.Add(1)
					}
				}
			}(g)
		}
		wg.Wait()
		svc.Stop()

		Convey("Then nothing fails", func() {
			So(failures.Load(), ShouldEqual, 0)
			So(svc.GetStats()["rankCalls"], ShouldEqual, int64(800))
			So(svc.GetStats()["acksAccepted"], ShouldEqual, int64(800))
		})
	})
}
