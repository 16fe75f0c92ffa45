package gemini

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"ai-dslr-studio/internal/photoshoot"
)

type stubModels struct {
	mu       sync.Mutex
	calls    int
	contents [][]*genai.Content
	config   *genai.GenerateContentConfig
	model    string
	errs     []error
	resp     *genai.GenerateContentResponse
}

func (s *stubModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.model = model
	s.contents = append(s.contents, contents)
	s.config = config
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return s.resp, nil
}

type countingFactory struct {
	mu     sync.Mutex
	calls  map[photoshoot.Backend]int
	keys   map[photoshoot.Backend]string
	models Models
	err    error
}

func (f *countingFactory) build(ctx context.Context, backend photoshoot.Backend, apiKey string) (Models, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[photoshoot.Backend]int)
		f.keys = make(map[photoshoot.Backend]string)
	}
	f.calls[backend]++
	f.keys[backend] = apiKey
	if f.err != nil {
		return nil, f.err
	}
	return f.models, nil
}

func TestRegistryResolveMemoizes(t *testing.T) {
	factory := &countingFactory{models: &stubModels{}}
	reg := NewRegistry(RegistryOptions{
		Credentials: map[photoshoot.Backend]string{photoshoot.BackendGemini: " key-1 "},
		Factory:     factory.build,
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := reg.Resolve(context.Background(), photoshoot.BackendGemini)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, factory.calls[photoshoot.BackendGemini])
	assert.Equal(t, "key-1", factory.keys[photoshoot.BackendGemini])
}

func TestRegistryMissingCredential(t *testing.T) {
	factory := &countingFactory{models: &stubModels{}}
	reg := NewRegistry(RegistryOptions{
		Credentials: map[photoshoot.Backend]string{
			photoshoot.BackendGemini:   "key-1",
			photoshoot.BackendSeedream: "   ",
		},
		Factory: factory.build,
	})

	_, err := reg.Resolve(context.Background(), photoshoot.BackendSeedream)
	var cfgErr *photoshoot.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "SEEDREAM_API_KEY", cfgErr.Credential)
	assert.Zero(t, factory.calls[photoshoot.BackendSeedream])

	assert.NoError(t, reg.Check(photoshoot.BackendGemini))
	assert.Equal(t, []photoshoot.Backend{photoshoot.BackendGemini}, reg.Configured())
}

func TestRegistryUnknownBackend(t *testing.T) {
	reg := NewRegistry(RegistryOptions{})
	_, err := reg.Resolve(context.Background(), "dalle")
	assert.ErrorIs(t, err, photoshoot.ErrInvalidRequest)
}

func TestRegistryFactoryFailure(t *testing.T) {
	factory := &countingFactory{err: errors.New("bad key")}
	reg := NewRegistry(RegistryOptions{
		Credentials: map[photoshoot.Backend]string{photoshoot.BackendGemini: "key"},
		Factory:     factory.build,
	})

	_, err := reg.Resolve(context.Background(), photoshoot.BackendGemini)
	assert.Equal(t, photoshoot.KindBackend, photoshoot.KindOf(err))

	// a failed construction is not cached
	factory.err = nil
	factory.models = &stubModels{}
	_, err = reg.Resolve(context.Background(), photoshoot.BackendGemini)
	assert.NoError(t, err)
	assert.Equal(t, 2, factory.calls[photoshoot.BackendGemini])
}
