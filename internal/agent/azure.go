package agent

import (
    "bufio"
    "bytes"
    "context"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "strings"
)

// AzureConfig carries the Azure OpenAI connection settings.
type AzureConfig struct {
    Endpoint     string
    APIKey       string
    Deployment   string
    APIVersion   string
    SystemPrompt string
}

type chatMessage struct {
    Role    string `json:"role"`
    Content string `json:"content"`
}

// Azure is a Generator backed by the Azure OpenAI streaming chat completions
// API. Each instance carries its own rolling message memory, so one Azure
// value serves exactly one session.
type Azure struct {
    cfg      AzureConfig
    httpc    *http.Client
    messages []chatMessage
}

func NewAzure(cfg AzureConfig) *Azure {
    if cfg.APIVersion == "" {
        cfg.APIVersion = "2024-02-15-preview"
    }
    a := &Azure{cfg: cfg, httpc: &http.Client{Timeout: 0}}
    if cfg.SystemPrompt != "" {
        a.messages = append(a.messages, chatMessage{Role: "system", Content: cfg.SystemPrompt})
    }
    return a
}

func (a *Azure) Generate(ctx context.Context, input string, l Listener) (string, error) {
    if a.cfg.Endpoint == "" || a.cfg.APIKey == "" {
        return "", fmt.Errorf("azure: missing endpoint or api key")
    }
    msgs := make([]chatMessage, 0, len(a.messages)+1)
    msgs = append(msgs, a.messages...)
    msgs = append(msgs, chatMessage{Role: "user", Content: input})

    body := map[string]any{
        "stream":   true,
        "messages": msgs,
    }
    reqBytes, err := json.Marshal(body)
    if err != nil {
        return "", err
    }

    url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
        strings.TrimRight(a.cfg.Endpoint, "/"), a.cfg.Deployment, a.cfg.APIVersion)
    req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBytes))
    if err != nil {
        return "", err
    }
    req.Header.Set("api-key", a.cfg.APIKey)
    req.Header.Set("Content-Type", "application/json")
    req.Header.Set("Accept", "text/event-stream")

    l.OnGenerationStart()
    defer l.OnGenerationEnd()

    resp, err := a.httpc.Do(req)
    if err != nil {
        return "", err
    }
    defer resp.Body.Close()
    if resp.StatusCode/100 != 2 {
        b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
        return "", fmt.Errorf("azure: status=%d body=%s", resp.StatusCode, string(b))
    }

    var full strings.Builder
    decoder := newSSEDecoder(bufio.NewReader(resp.Body))
    for {
        // Cancellation mid-stream is a failure, not a shorter reply.
        if err := ctx.Err(); err != nil {
            return "", err
        }
        _, data, err := decoder.Next()
        if err != nil {
            if err == io.EOF {
                break
            }
            return "", fmt.Errorf("azure: stream: %w", err)
        }
        if string(data) == "[DONE]" {
            break
        }
        var m map[string]any
        if err := json.Unmarshal(data, &m); err != nil {
            continue
        }
        choices, _ := m["choices"].([]any)
        if len(choices) == 0 {
            continue
        }
        choice, _ := choices[0].(map[string]any)
        delta, _ := choice["delta"].(map[string]any)
        content, _ := delta["content"].(string)
        if content != "" {
            full.WriteString(content)
            l.OnToken(content)
        }
    }

    // Memory holds completed exchanges only; a failed call above leaves it
    // untouched so the next turn does not replay the user message.
    reply := full.String()
    a.messages = append(a.messages,
        chatMessage{Role: "user", Content: input},
        chatMessage{Role: "assistant", Content: reply})
    return reply, nil
}

type sseDecoder struct {
    r *bufio.Reader
}

func newSSEDecoder(r *bufio.Reader) *sseDecoder { return &sseDecoder{r: r} }

// Next returns (event, data, error). Azure usually leaves event empty; data
// lines begin with "data: ".
func (d *sseDecoder) Next() (string, []byte, error) {
    var event string
    var data []byte
    for {
        line, err := d.r.ReadBytes('\n')
        if err != nil {
            return "", nil, err
        }
        line = bytes.TrimSpace(line)
        if len(line) == 0 { // dispatch
            if len(data) == 0 {
                continue
            }
            return event, data, nil
        }
        if bytes.HasPrefix(line, []byte("event:")) {
            event = strings.TrimSpace(string(line[len("event:"):]))
        } else if bytes.HasPrefix(line, []byte("data:")) {
            data = append(data, bytes.TrimSpace(line[len("data:"):])...)
        }
    }
}
