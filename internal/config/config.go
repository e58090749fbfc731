package config

import (
    "fmt"
    "log"
    "strings"

    "github.com/spf13/viper"
)

type Config struct {
    Server struct {
        Port     string
        LogLevel string
    }
    Relay struct {
        Language          string
        WelcomeGreeting   string
        SecondsPerWord    float64
        MinSpeechDelaySec float64
    }
    Turn struct {
        InterstitialDelayMs int
        ChunkWordThreshold  int
        ChunkMaxChars       int
        Phrases             []string
    }
    Azure struct {
        Endpoint     string
        APIKey       string
        Deployment   string
        APIVersion   string
        SystemPrompt string
    }
}

// DefaultPhrases is the built-in filler rotation used when no override is
// configured. Order matters: the session cursor walks it round-robin.
var DefaultPhrases = []string{
    "Let me check that for you...",
    "One moment please...",
    "I'm looking into that...",
    "Just a second...",
    "Let me find that information...",
    "Give me just a moment...",
}

func Load() Config {
    v := viper.New()
    v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
    v.AutomaticEnv()

    // Defaults
    v.SetDefault("server.port", 8080)
    v.SetDefault("server.log_level", "info")

    v.SetDefault("relay.language", "en-US")
    v.SetDefault("relay.welcome_greeting", "Hello! Welcome to CoffeeMarket. How can I help you today?")
    v.SetDefault("relay.seconds_per_word", 0.4)
    v.SetDefault("relay.min_speech_delay_sec", 1.0)

    v.SetDefault("turn.interstitial_delay_ms", 400)
    v.SetDefault("turn.chunk_word_threshold", 3)
    v.SetDefault("turn.chunk_max_chars", 200)

    v.SetDefault("azure.api_version", "2024-02-15-preview")

    // Map envs
    v.BindEnv("server.port", "PORT")
    v.BindEnv("server.log_level", "LOG_LEVEL")

    v.BindEnv("relay.language", "RELAY_LANGUAGE")
    v.BindEnv("relay.welcome_greeting", "RELAY_WELCOME_GREETING")
    v.BindEnv("relay.seconds_per_word", "RELAY_SECONDS_PER_WORD")
    v.BindEnv("relay.min_speech_delay_sec", "RELAY_MIN_SPEECH_DELAY_SEC")

    v.BindEnv("turn.interstitial_delay_ms", "TURN_INTERSTITIAL_DELAY_MS")
    v.BindEnv("turn.chunk_word_threshold", "TURN_CHUNK_WORD_THRESHOLD")
    v.BindEnv("turn.chunk_max_chars", "TURN_CHUNK_MAX_CHARS")
    v.BindEnv("turn.phrases", "TURN_PHRASES")

    v.BindEnv("azure.endpoint", "AZURE_ENDPOINT")
    v.BindEnv("azure.api_key", "AZURE_API_KEY")
    v.BindEnv("azure.deployment", "AZURE_DEPLOYMENT")
    v.BindEnv("azure.api_version", "AZURE_API_VERSION")
    v.BindEnv("azure.system_prompt", "AZURE_SYSTEM_PROMPT")

    var c Config
    c.Server.Port = toString(v.Get("server.port"))
    c.Server.LogLevel = v.GetString("server.log_level")

    c.Relay.Language = v.GetString("relay.language")
    c.Relay.WelcomeGreeting = v.GetString("relay.welcome_greeting")
    c.Relay.SecondsPerWord = v.GetFloat64("relay.seconds_per_word")
    c.Relay.MinSpeechDelaySec = v.GetFloat64("relay.min_speech_delay_sec")

    c.Turn.InterstitialDelayMs = v.GetInt("turn.interstitial_delay_ms")
    c.Turn.ChunkWordThreshold = v.GetInt("turn.chunk_word_threshold")
    c.Turn.ChunkMaxChars = v.GetInt("turn.chunk_max_chars")
    c.Turn.Phrases = parsePhrases(v.GetString("turn.phrases"))

    c.Azure.Endpoint = v.GetString("azure.endpoint")
    c.Azure.APIKey = v.GetString("azure.api_key")
    c.Azure.Deployment = v.GetString("azure.deployment")
    c.Azure.APIVersion = v.GetString("azure.api_version")
    c.Azure.SystemPrompt = v.GetString("azure.system_prompt")

    log.Printf("config loaded: port=%s lang=%s interstitial_delay=%dms", c.Server.Port, c.Relay.Language, c.Turn.InterstitialDelayMs)
    return c
}

// parsePhrases splits a pipe-separated TURN_PHRASES override, falling back
// to the built-in rotation when unset.
func parsePhrases(raw string) []string {
    if strings.TrimSpace(raw) == "" {
        out := make([]string, len(DefaultPhrases))
        copy(out, DefaultPhrases)
        return out
    }
    var out []string
    for _, p := range strings.Split(raw, "|") {
        if t := strings.TrimSpace(p); t != "" {
            out = append(out, t)
        }
    }
    if len(out) == 0 {
        out = append(out, DefaultPhrases...)
    }
    return out
}

func toString(v any) string { return fmt.Sprint(v) }
