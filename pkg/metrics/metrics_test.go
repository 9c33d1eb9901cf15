package metrics

import (
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a fresh registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then its collectors are registered", func() {
				So(manager, ShouldNotBeNil)
				manager.rankRequests.Inc()
				count, err := testutil.GatherAndCount(registry, "hotpath_service_rank_requests_total")
				So(err, ShouldBeNil)
				So(count, ShouldEqual, 1)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("ranker"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.rankRequests.Inc()

			Convey("Then names and labels follow the options", func() {
				expected := `
# HELP test_ranker_rank_requests_total Total number of ranking calls
# TYPE test_ranker_rank_requests_total counter
test_ranker_rank_requests_total{env="test"} 1
`
				err := testutil.GatherAndCompare(registry, strings.NewReader(expected), "test_ranker_rank_requests_total")
				So(err, ShouldBeNil)
			})
		})

		Convey("When registering the same names twice on one registry", func() {
			registry := prometheus.NewRegistry()
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then promauto panics", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording ranking calls", func() {
			before := testutil.ToFloat64(globalManager.rankRequests)
			RecordRank(3, 0.2)
			RecordRank(0, 0.1)

			Convey("Then the request counter advances", func() {
				So(testutil.ToFloat64(globalManager.rankRequests), ShouldEqual, before+2)
			})
		})

		Convey("When recording NaN scores", func() {
			before := testutil.ToFloat64(globalManager.rankNaNScores)
			RecordNaNScores(2)
			RecordNaNScores(0)
			So(testutil.ToFloat64(globalManager.rankNaNScores), ShouldEqual, before+2)
		})

		Convey("When recording engine faults", func() {
			before := testutil.ToFloat64(globalManager.rankEngineFault)
			RecordEngineFault()
			So(testutil.ToFloat64(globalManager.rankEngineFault), ShouldEqual, before+1)
		})

		Convey("When recording acknowledgements", func() {
			before := testutil.ToFloat64(globalManager.acks.WithLabelValues("index_search"))
			RecordAck("index_search")
			So(testutil.ToFloat64(globalManager.acks.WithLabelValues("index_search")), ShouldEqual, before+1)
		})

		Convey("When updating gauges", func() {
			UpdateQueueSize(7)
			UpdateQueueCapacity(100)
			UpdateQueueUtilization(0.07)
			UpdateWorkerCount(4)
			UpdateDedupeSize(12)

			Convey("Then they hold the last value", func() {
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 7)
				So(testutil.ToFloat64(globalManager.queueCapacity), ShouldEqual, 100)
				So(testutil.ToFloat64(globalManager.queueUtilization), ShouldEqual, 0.07)
				So(testutil.ToFloat64(globalManager.workerCount), ShouldEqual, 4)
				So(testutil.ToFloat64(globalManager.dedupeSize), ShouldEqual, 12)
			})
		})

		Convey("When recording HTTP and error metrics", func() {
			So(func() {
				RecordHTTPRequest("rank-feed", "POST", "200")
				RecordHTTPRequestDuration("rank-feed", "POST", "200", 1.5)
				RecordErrorByEndpoint("rank-feed", "POST", "client_error")
				RecordErrorByType("client_error", "medium")
				RecordErrorByComponent("queue", "queue_full")
				RecordErrorLatency("http", "client_error", 0.4)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				RecordWorkerProcessingLatency(0.3)
				RecordWorkerError()
				RecordDuplicate()
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(10)
				RecordSystemGCPauseTime(0.2)
			}, ShouldNotPanic)
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given concurrent recorders", t, func() {
		before := testutil.ToFloat64(globalManager.rankRequests)
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				RecordRank(10, 0.5)
			}()
		}
		wg.Wait()

		Convey("Then no update is lost", func() {
			So(testutil.ToFloat64(globalManager.rankRequests), ShouldEqual, before+50)
		})
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("The exported registry gathers service metrics", t, func() {
		families, err := GetRegistry().Gather()
		So(err, ShouldBeNil)
		So(families, ShouldNotBeEmpty)
	})
}
