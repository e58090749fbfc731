package turn

import (
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"
)

var (
    metricTurns = promauto.NewCounter(prometheus.CounterOpts{
        Name: "turn_total",
        Help: "Total conversational turns started",
    })

    metricTurnFailures = promauto.NewCounter(prometheus.CounterOpts{
        Name: "turn_failures_total",
        Help: "Turns that ended with a generation failure",
    })

    metricChunks = promauto.NewCounter(prometheus.CounterOpts{
        Name: "turn_chunks_total",
        Help: "Speech chunks emitted across all turns",
    })

    metricChunkTruncations = promauto.NewCounter(prometheus.CounterOpts{
        Name: "turn_chunk_truncations_total",
        Help: "Chunks cut at the character cap before emission",
    })

    metricInterstitials = promauto.NewCounter(prometheus.CounterOpts{
        Name: "turn_interstitials_total",
        Help: "Filler phrases emitted while generation was pending",
    })

    metricRedactions = promauto.NewCounter(prometheus.CounterOpts{
        Name: "turn_redactions_total",
        Help: "History redactions applied after interruptions",
    })

    metricRedactionRemovals = promauto.NewCounter(prometheus.CounterOpts{
        Name: "turn_redaction_removals_total",
        Help: "Redactions that removed the pending reply entirely",
    })

    metricFirstChunk = promauto.NewHistogram(prometheus.HistogramOpts{
        Name:    "turn_first_chunk_ms",
        Help:    "Latency from turn start to first real chunk",
        Buckets: prometheus.ExponentialBuckets(50, 1.6, 10),
    })

    metricTurnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
        Name:    "turn_duration_ms",
        Help:    "Total turn duration from start to finalization",
        Buckets: prometheus.ExponentialBuckets(100, 1.6, 12),
    })
)
