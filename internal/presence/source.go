package presence

import (
	"context"
	"fmt"
	"time"

	"halo-watcher/internal/config"

	"github.com/goccy/go-json"
	"github.com/valyala/fasthttp"
)

// Source reports the current activity list for the watched identity.
type Source interface {
	Current(ctx context.Context) ([]string, error)
}

// HTTPSource polls a presence-forwarder endpoint that mirrors the chat
// platform's gateway state. Used once at startup to seed the monitor;
// steady-state events arrive pushed through the command server.
type HTTPSource struct {
	url    string
	client *fasthttp.Client
}

func NewHTTPSource(cfg *config.Config) *HTTPSource {
	return &HTTPSource{
		url: cfg.PresenceURL,
		client: &fasthttp.Client{
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

type presencePayload struct {
	Activities []string `json:"activities"`
}

func (s *HTTPSource) Current(ctx context.Context) ([]string, error) {
	if s.url == "" {
		return nil, nil
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(s.url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = s.client.DoDeadline(req, resp, deadline)
	} else {
		err = s.client.Do(req, resp)
	}
	if err != nil {
		return nil, fmt.Errorf("presence fetch failed: %w", err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("presence endpoint returned status %d", resp.StatusCode())
	}

	var payload presencePayload
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("presence decode failed: %w", err)
	}
	return payload.Activities, nil
}
