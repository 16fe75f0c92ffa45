package gemini

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"ai-dslr-studio/internal/photoshoot"
)

const DefaultModel = "gemini-2.5-flash-image"

type Options struct {
	Registry *Registry
	Model    string
	Logger   *slog.Logger

	// Retries is how many extra attempts a rate-limited call gets. Zero means
	// a single attempt.
	Retries    int
	RetryDelay time.Duration
}

// Client turns a photoshoot.Request into one generateContent call.
type Client struct {
	registry   *Registry
	model      string
	logger     *slog.Logger
	retries    int
	retryDelay time.Duration
}

func New(opts Options) (*Client, error) {
	if opts.Registry == nil {
		return nil, errors.New("registry is required")
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	retries := opts.Retries
	if retries < 0 {
		retries = 0
	}
	retryDelay := opts.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 2 * time.Second
	}

	return &Client{
		registry:   opts.Registry,
		model:      model,
		logger:     logger,
		retries:    retries,
		retryDelay: retryDelay,
	}, nil
}

func (c *Client) Model() string {
	return c.model
}

// Invoke sends the request's images and prompt and returns the first image
// in the response. A response without an image is a refusal.
func (c *Client) Invoke(ctx context.Context, req photoshoot.Request) (photoshoot.Image, error) {
	if err := req.Validate(); err != nil {
		return photoshoot.Image{}, err
	}

	models, err := c.registry.Resolve(ctx, req.Backend)
	if err != nil {
		return photoshoot.Image{}, err
	}

	contents := []*genai.Content{{Role: "user", Parts: buildParts(req)}}
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
	}

	logger := c.logger.With("backend", string(req.Backend), "model", c.model, "style", string(req.Style), "shot", string(req.ShotType))

	var resp *genai.GenerateContentResponse
	for attempt := 0; ; attempt++ {
		start := time.Now()
		resp, err = models.GenerateContent(ctx, c.model, contents, config)
		if err == nil {
			logger.Debug("generate content", "attempt", attempt+1, "dur_ms", time.Since(start).Milliseconds())
			break
		}
		if ctx.Err() != nil || attempt >= c.retries || !isRateLimited(err) {
			logger.Error("generate content failed", "attempt", attempt+1, "err", err)
			return photoshoot.Image{}, &photoshoot.BackendError{Backend: req.Backend, Err: err}
		}
		logger.Warn("generate content rate limited", "attempt", attempt+1, "retry_in", c.retryDelay.String())
		select {
		case <-time.After(c.retryDelay):
		case <-ctx.Done():
			return photoshoot.Image{}, &photoshoot.BackendError{Backend: req.Backend, Err: ctx.Err()}
		}
	}

	img, text, ok := extractImage(resp)
	if !ok {
		logger.Warn("no image in response", "text", text)
		return photoshoot.Image{}, &photoshoot.GenerationRefusedError{Backend: req.Backend, Text: text}
	}
	return img, nil
}

// buildParts orders the payload scene, portrait, optional outfit, then text.
func buildParts(req photoshoot.Request) []*genai.Part {
	images := req.Images()
	parts := make([]*genai.Part, 0, len(images)+1)
	for _, img := range images {
		mimeType := img.MIMEType
		if mimeType == "" {
			mimeType = photoshoot.DefaultMIMEType
		}
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: mimeType, Data: img.Data}})
	}
	parts = append(parts, genai.NewPartFromText(req.Prompt()))
	return parts
}

func extractImage(resp *genai.GenerateContentResponse) (photoshoot.Image, string, bool) {
	if resp == nil || len(resp.Candidates) == 0 {
		return photoshoot.Image{}, "", false
	}

	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		return photoshoot.Image{}, "", false
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil {
			continue
		}
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			mimeType := part.InlineData.MIMEType
			if mimeType == "" {
				mimeType = photoshoot.DefaultMIMEType
			}
			return photoshoot.Image{MIMEType: mimeType, Data: part.InlineData.Data}, "", true
		}
		if part.Text != "" {
			text.WriteString(part.Text)
		}
	}
	return photoshoot.Image{}, strings.TrimSpace(text.String()), false
}

// isRateLimited reports whether the backend answered 429.
func isRateLimited(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code == http.StatusTooManyRequests
	}
	return false
}
