package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"

	"halo-watcher/internal/config"

	"github.com/goccy/go-json"
	"github.com/valyala/fasthttp"
)

// DiscordWebhook delivers text and file attachments to a single fixed
// Discord webhook.
type DiscordWebhook struct {
	url    string
	client *fasthttp.Client
}

func NewDiscordWebhook(cfg *config.Config) *DiscordWebhook {
	return &DiscordWebhook{
		url: cfg.DiscordWebhookURL,
		client: &fasthttp.Client{
			MaxConnsPerHost:     4,
			ReadTimeout:         15 * time.Second,
			WriteTimeout:        15 * time.Second,
			MaxIdleConnDuration: 1 * time.Minute,
		},
	}
}

func (d *DiscordWebhook) SendText(ctx context.Context, text string) error {
	payload, err := json.Marshal(map[string]string{"content": text})
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}
	return d.post(ctx, "application/json", payload)
}

func (d *DiscordWebhook) SendFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open attachment: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("files[0]", filepath.Base(path))
	if err != nil {
		return fmt.Errorf("failed to create multipart field: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("failed to read attachment: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish multipart body: %w", err)
	}

	return d.post(ctx, writer.FormDataContentType(), body.Bytes())
}

func (d *DiscordWebhook) post(ctx context.Context, contentType string, body []byte) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(d.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType(contentType)
	req.SetBody(body)

	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = d.client.DoDeadline(req, resp, deadline)
	} else {
		err = d.client.Do(req, resp)
	}
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}

	// Discord answers 204 for plain sends and 200 when ?wait=true.
	if status := resp.StatusCode(); status < 200 || status >= 300 {
		return fmt.Errorf("webhook rejected with status %d", status)
	}
	return nil
}
