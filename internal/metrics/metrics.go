package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BotUpdates = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sportclub", Name: "updates_total", Help: "Processed telegram updates",
	})
	HandlerErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sportclub", Name: "handler_errors_total", Help: "Handler errors",
	})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "sportclub", Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sportclub", Name: "http_requests_total", Help: "HTTP requests by route and status",
	}, []string{"method", "route", "status"})
	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sportclub", Name: "http_request_duration_seconds", Help: "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	NotificationsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sportclub", Name: "notifications_sent_total", Help: "Delivered telegram notifications",
	}, []string{"kind"})
	NotificationsFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sportclub", Name: "notifications_failed_total", Help: "Failed telegram delivery attempts",
	}, []string{"kind"})
	LessonsDeducted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sportclub", Name: "lessons_deducted_total", Help: "Lessons written off subscriptions",
	}, []string{"reason"})

	JobRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sportclub", Name: "job_runs_total", Help: "Background job runs",
	}, []string{"job"})
	JobErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sportclub", Name: "job_errors_total", Help: "Background job errors and panics",
	}, []string{"job"})
	JobDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sportclub", Name: "job_duration_seconds", Help: "Background job duration",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
)

func init() {
	prometheus.MustRegister(BotUpdates, HandlerErrors, DBPing,
		HTTPRequests, HTTPDuration, NotificationsSent, NotificationsFailed, LessonsDeducted,
		JobRuns, JobErrors, JobDuration)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }
