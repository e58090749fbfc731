package main

import (
    "context"
    "log"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/joho/godotenv"
    "github.com/prometheus/client_golang/prometheus/promhttp"

    agt "brewline/agent/internal/agent"
    "brewline/agent/internal/api"
    "brewline/agent/internal/config"
    "brewline/agent/internal/relay"
    "brewline/agent/internal/session"
    "brewline/agent/internal/store"
    "brewline/agent/internal/turn"
)

func main() {
    // Load .env file if present (ignored if missing)
    _ = godotenv.Load()

    cfg := config.Load()

    reg := session.NewRegistry(cfg.Turn.Phrases)
    st := store.New()
    coord := turn.New(turn.Options{
        InterstitialDelay:  time.Duration(cfg.Turn.InterstitialDelayMs) * time.Millisecond,
        ChunkWordThreshold: cfg.Turn.ChunkWordThreshold,
        ChunkMaxChars:      cfg.Turn.ChunkMaxChars,
    })

    newGenerator := func() agt.Generator {
        return agt.NewAzure(agt.AzureConfig{
            Endpoint:     cfg.Azure.Endpoint,
            APIKey:       cfg.Azure.APIKey,
            Deployment:   cfg.Azure.Deployment,
            APIVersion:   cfg.Azure.APIVersion,
            SystemPrompt: cfg.Azure.SystemPrompt,
        })
    }

    rly := relay.NewServer(cfg, reg, coord, st, newGenerator)

    h := api.NewHandlers(reg, st)
    mux := http.NewServeMux()
    mux.Handle("/", api.NewRouter(h))
    mux.HandleFunc("/ws", rly.HandleRelayWS)
    mux.HandleFunc("/twiml", rly.HandleTwiML)
    mux.Handle("/metrics", promhttp.Handler())

    addr := ":" + cfg.Server.Port
    srv := &http.Server{
        Addr:              addr,
        Handler:           logMiddleware(mux),
        ReadHeaderTimeout: 5 * time.Second,
    }

    // Graceful shutdown on SIGINT/SIGTERM
    sigc := make(chan os.Signal, 1)
    signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
    go func() {
        <-sigc
        log.Printf("shutdown signal received; stopping server...")
        ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
        defer cancel()
        _ = srv.Shutdown(ctx)
    }()

    log.Printf("server starting on %s", addr)
    if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
        log.Println("server error:", err)
        os.Exit(1)
    }
}

func logMiddleware(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        start := time.Now()
        next.ServeHTTP(w, r)
        log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
    })
}
