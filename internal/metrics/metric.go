package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const (
	StageInitializing = iota + 1
	StageCatchup
	StageSynced
	StageRollingBack
	StageServing
)

func fqn(name string) string {
	return prometheus.BuildFQName("nubit", "modular_ordinals", name)
}

var (
	Version = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: fqn("version"),
			Help: "Service version number",
		},
		[]string{"version"},
	)

	Stage = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: fqn("stage"),
		Help: "Indexer stage (e.g. initializing, catchup, synced)",
	})

	NodeQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    fqn("node_query_duration"),
			Help:    "Duration of queries against the bitcoin node",
			Buckets: []float64{0.02, 0.05, 0.1, 0.2, 0.5, 1, 5},
		},
		[]string{"op"},
	)

	BlockProcessDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    fqn("block_process_duration"),
			Help:    "Duration of executing and committing one block",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15},
		},
		[]string{"stage"},
	)

	CurrentHeight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: fqn("current_height"),
		Help: "Last committed height",
	})

	Reorgs = prometheus.NewCounter(prometheus.CounterOpts{
		Name: fqn("reorgs_total"),
		Help: "Chain reorganizations detected",
	})

	RolledBackHeights = prometheus.NewCounter(prometheus.CounterOpts{
		Name: fqn("rollback_heights_total"),
		Help: "Committed heights removed by rollbacks",
	})

	CacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: fqn("cache_hits_total"),
		Help: "Write path cache hits",
	})

	CacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: fqn("cache_misses_total"),
		Help: "Write path cache misses",
	})

	ExportFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: fqn("export_failures_total"),
			Help: "Writes to the SQL mirror that failed, the mirror is behind the index once this grows",
		},
		[]string{"op"},
	)

	HttpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    fqn("http_duration"),
			Help:    "HTTP request duration",
			Buckets: []float64{0.01, 0.05, 0.1, 0.2, 0.5, 1, 5, 15},
		},
		[]string{"method", "path", "status"},
	)
)

func ObserveNodeQuery(op string, started time.Time) {
	NodeQueryDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

func ObserveBlock(stage string, started time.Time) {
	BlockProcessDuration.WithLabelValues(stage).Observe(time.Since(started).Seconds())
}

func HTTP(c *gin.Context) {
	started := time.Now()

	c.Next()

	HttpDuration.WithLabelValues(
		c.Request.Method,
		c.FullPath(),
		strconv.Itoa(c.Writer.Status()),
	).Observe(time.Since(started).Seconds())
}

func init() {
	prometheus.MustRegister(
		Version,
		Stage,
		NodeQueryDuration,
		BlockProcessDuration,
		CurrentHeight,
		Reorgs,
		RolledBackHeights,
		CacheHits,
		CacheMisses,
		ExportFailures,
		HttpDuration,
	)
}

func ListenAndServe(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := (&http.Server{Addr: addr, Handler: mux}).ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		logrus.WithField("component", "metrics").Fatal(err)
	}
}
