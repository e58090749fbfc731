package relay

import (
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"
)

var (
    metricConnections = promauto.NewCounter(prometheus.CounterOpts{
        Name: "relay_connections_total",
        Help: "Total gateway WebSocket connections accepted",
    })

    metricPrompts = promauto.NewCounter(prometheus.CounterOpts{
        Name: "relay_prompts_total",
        Help: "Voice prompts processed",
    })

    metricInterrupts = promauto.NewCounter(prometheus.CounterOpts{
        Name: "relay_interrupts_total",
        Help: "Caller interruptions received",
    })

    metricUnsupportedLang = promauto.NewCounter(prometheus.CounterOpts{
        Name: "relay_unsupported_lang_total",
        Help: "Prompts rejected for unsupported language",
    })
)
