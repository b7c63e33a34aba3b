package metrics

import (
    "sync"

    "github.com/prometheus/client_golang/prometheus"
)

var (
    once sync.Once

    RateLimited = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "declcast",
            Subsystem: "api",
            Name:      "rate_limited_total",
            Help:      "Requests rejected by the per-customer limiter",
        },
        []string{"endpoint"},
    )

    PayloadRecords = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{
            Namespace: "declcast",
            Subsystem: "api",
            Name:      "payload_records",
            Help:      "Declaration records per train/evaluate request",
            Buckets:   prometheus.ExponentialBuckets(10, 4, 7),
        },
        []string{"endpoint"},
    )
)

// Register adds the API collectors to reg once per process.
func Register(reg prometheus.Registerer) {
    once.Do(func() {
        reg.MustRegister(RateLimited, PayloadRecords)
    })
}
