package queue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/okian/hotpath/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func indexTask(id string) model.Task {
	return model.Task{Kind: model.KindIndexSearch, Entity: "post", EntityID: id}
}

func TestInMemoryQueue(t *testing.T) {
	ctx := context.Background()

	Convey("Given a queue with capacity 2", t, func() {
		q := NewInMemoryQueue(WithCapacity(2))

		Convey("Then it starts empty and open", func() {
			So(q.Len(ctx), ShouldEqual, 0)
			So(q.Cap(), ShouldEqual, 2)
			So(q.IsClosed(), ShouldBeFalse)
		})

		Convey("When a task is enqueued and dequeued", func() {
			So(q.Enqueue(ctx, indexTask("p1")), ShouldBeTrue)
			So(q.Len(ctx), ShouldEqual, 1)

			got := <-q.Dequeue(ctx)
			q.Observe()

			Convey("Then the same task comes out", func() {
				So(got.EntityID, ShouldEqual, "p1")
				So(q.Len(ctx), ShouldEqual, 0)
			})
		})

		Convey("When the queue is full", func() {
			So(q.Enqueue(ctx, indexTask("p1")), ShouldBeTrue)
			So(q.Enqueue(ctx, indexTask("p2")), ShouldBeTrue)

			Convey("Then further enqueues are rejected", func() {
				So(q.Enqueue(ctx, indexTask("p3")), ShouldBeFalse)
				So(q.Len(ctx), ShouldEqual, 2)
			})
		})

		Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			So(q.Enqueue(cctx, indexTask("p1")), ShouldBeFalse)
		})

		Convey("When the queue is closed", func() {
			So(q.Enqueue(ctx, indexTask("p1")), ShouldBeTrue)
			So(q.Close(), ShouldBeNil)
			So(q.Close(), ShouldBeNil)

			Convey("Then enqueues fail but queued tasks drain", func() {
				So(q.IsClosed(), ShouldBeTrue)
				So(q.Enqueue(ctx, indexTask("p2")), ShouldBeFalse)

				var drained []string
				for task := range q.Dequeue(ctx) {
					drained = append(drained, task.EntityID)
				}
				So(drained, ShouldResemble, []string{"p1"})
			})
		})
	})

	Convey("Given concurrent producers", t, func() {
		q := NewInMemoryQueue(WithCapacity(1000))
		var accepted atomic.Int64
		var wg sync.WaitGroup
		for p := 0; p < 10; p++ {
			wg.Add(1)
			go func(p int) {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					if q.Enqueue(ctx, indexTask(fmt.Sprintf("%d-%d", p, i))) {
						accepted.Add(1)
					}
				}
			}(p)
		}
		wg.Wait()

		Convey("Then every task fits", func() {
			So(accepted.Load(), ShouldEqual, 1000)
			So(q.Len(ctx), ShouldEqual, 1000)
		})
	})

	Convey("Given producers racing with Close", t, func() {
		q := NewInMemoryQueue(WithCapacity(10000))
		var wg sync.WaitGroup
		for p := 0; p < 8; p++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 500; i++ {
					q.Enqueue(ctx, indexTask("x"))
				}
			}()
		}

		Convey("Then closing never panics", func() {
			So(func() { _ = q.Close() }, ShouldNotPanic)
			wg.Wait()
		})
	})
}
