package gemini

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"google.golang.org/genai"

	"ai-dslr-studio/internal/photoshoot"
)

// Models is the slice of the genai surface the invoker needs. *genai.Models
// satisfies it.
type Models interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Factory builds a backend client for an API key.
type Factory func(ctx context.Context, backend photoshoot.Backend, apiKey string) (Models, error)

type RegistryOptions struct {
	// Credentials maps each backend to its API key. A missing or blank key
	// leaves that backend unconfigured.
	Credentials map[photoshoot.Backend]string
	Factory     Factory

	HTTPClient *http.Client
	BaseURL    string
	APIVersion string
	Logger     *slog.Logger
}

// Registry lazily constructs one client per backend and reuses it for the
// lifetime of the process.
type Registry struct {
	credentials map[photoshoot.Backend]string
	factory     Factory
	logger      *slog.Logger

	mu      sync.Mutex
	clients map[photoshoot.Backend]Models
}

func NewRegistry(opts RegistryOptions) *Registry {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	credentials := make(map[photoshoot.Backend]string, len(opts.Credentials))
	for backend, key := range opts.Credentials {
		credentials[backend] = strings.TrimSpace(key)
	}

	factory := opts.Factory
	if factory == nil {
		factory = genaiFactory(opts.HTTPClient, opts.BaseURL, opts.APIVersion)
	}

	return &Registry{
		credentials: credentials,
		factory:     factory,
		logger:      logger,
		clients:     make(map[photoshoot.Backend]Models),
	}
}

// Check reports a *photoshoot.ConfigurationError when the backend has no
// credential. It never constructs a client.
func (r *Registry) Check(backend photoshoot.Backend) error {
	if !backend.Valid() {
		return fmt.Errorf("%w: unknown backend %q", photoshoot.ErrInvalidRequest, backend)
	}
	if r.credentials[backend] == "" {
		return &photoshoot.ConfigurationError{Backend: backend, Credential: backend.CredentialEnv()}
	}
	return nil
}

// Configured lists the backends that have a credential, in catalog order.
func (r *Registry) Configured() []photoshoot.Backend {
	var out []photoshoot.Backend
	for _, backend := range photoshoot.Backends() {
		if r.Check(backend) == nil {
			out = append(out, backend)
		}
	}
	return out
}

// Resolve returns the client for backend, constructing it on first use.
// Concurrent callers share a single construction.
func (r *Registry) Resolve(ctx context.Context, backend photoshoot.Backend) (Models, error) {
	if err := r.Check(backend); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if client, ok := r.clients[backend]; ok {
		return client, nil
	}

	client, err := r.factory(ctx, backend, r.credentials[backend])
	if err != nil {
		return nil, &photoshoot.BackendError{Backend: backend, Err: fmt.Errorf("create %s client: %w", backend, err)}
	}
	r.clients[backend] = client
	r.logger.Info("backend client ready", "backend", string(backend))
	return client, nil
}

func genaiFactory(httpClient *http.Client, baseURL, apiVersion string) Factory {
	return func(ctx context.Context, backend photoshoot.Backend, apiKey string) (Models, error) {
		cfg := &genai.ClientConfig{
			APIKey:     apiKey,
			Backend:    genai.BackendGeminiAPI,
			HTTPClient: httpClient,
			HTTPOptions: genai.HTTPOptions{
				BaseURL:    strings.TrimSpace(baseURL),
				APIVersion: strings.TrimSpace(apiVersion),
			},
		}
		client, err := genai.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return client.Models, nil
	}
}
