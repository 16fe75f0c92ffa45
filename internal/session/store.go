package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"ai-dslr-studio/internal/photoshoot"
)

type Step string

const (
	StepPortrait   Step = "portrait"
	StepScene      Step = "scene"
	StepOptions    Step = "options"
	StepOutfit     Step = "outfit"
	StepGenerating Step = "generating"
)

// Wizard is one user's progress through a photoshoot in one chat.
type Wizard struct {
	ChatID int64
	UserID int64

	Step     Step
	Portrait *photoshoot.Image
	Scene    *photoshoot.Image
	Outfit   *photoshoot.Image
	Mode     photoshoot.Mode
	Backend  photoshoot.Backend

	// MessageID is the options message the wizard keeps editing.
	MessageID int
	// LastShots holds the most recent batch so "Save" buttons can find them.
	LastShots []photoshoot.Shot

	UpdatedAt time.Time
}

func newWizard(chatID, userID int64) Wizard {
	return Wizard{
		ChatID:  chatID,
		UserID:  userID,
		Step:    StepPortrait,
		Mode:    photoshoot.SingleStyle(photoshoot.StyleCasual),
		Backend: photoshoot.BackendGemini,
	}
}

// Input assembles the batch input from the collected images.
func (w Wizard) Input() photoshoot.Input {
	in := photoshoot.Input{Backend: w.Backend}
	if w.Portrait != nil {
		in.Portrait = *w.Portrait
	}
	if w.Scene != nil {
		in.Scene = *w.Scene
	}
	if w.Outfit != nil && !w.Mode.Compare && w.Mode.Style == photoshoot.StyleCustom {
		outfit := *w.Outfit
		in.Outfit = &outfit
	}
	return in
}

func (w Wizard) HasImages() bool {
	return w.Portrait != nil && w.Scene != nil
}

// NeedsOutfit is true when Custom is chosen but no outfit photo arrived yet.
func (w Wizard) NeedsOutfit() bool {
	return !w.Mode.Compare && w.Mode.Style == photoshoot.StyleCustom && w.Outfit == nil
}

// AcceptPhoto stores img in the slot the current step is waiting for and
// advances the step.
func (w *Wizard) AcceptPhoto(img photoshoot.Image) Step {
	switch w.Step {
	case StepGenerating:
		return w.Step
	case StepScene:
		w.Scene = &img
		w.Step = StepOptions
		w.Settle()
	case StepOutfit:
		w.Outfit = &img
		w.Step = StepOptions
	case StepOptions:
		// a new photo restarts the shoot from the portrait
		*w = Wizard{ChatID: w.ChatID, UserID: w.UserID, Mode: w.Mode, Backend: w.Backend, MessageID: w.MessageID, LastShots: w.LastShots}
		w.Portrait = &img
		w.Step = StepScene
	default:
		w.Portrait = &img
		w.Scene = nil
		w.Step = StepScene
	}
	return w.Step
}

// Settle moves between the options and outfit steps after the mode changed.
func (w *Wizard) Settle() {
	switch {
	case w.Step == StepOptions && w.NeedsOutfit():
		w.Step = StepOutfit
	case w.Step == StepOutfit && !w.NeedsOutfit():
		w.Step = StepOptions
	}
}

type Options struct {
	TTL time.Duration
}

// Store keeps wizards keyed by (chat, user). Idle wizards expire after TTL.
type Store struct {
	mu    sync.Mutex
	cache *cache.Cache
	now   func() time.Time
}

func NewStore(opts Options) *Store {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Store{
		cache: cache.New(ttl, ttl/2),
		now:   time.Now,
	}
}

func (s *Store) Get(chatID, userID int64) Wizard {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(chatID, userID)
}

// Update applies fn to the wizard under the store lock and saves the result.
func (s *Store) Update(chatID, userID int64, fn func(*Wizard)) Wizard {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.getLocked(chatID, userID)
	fn(&w)
	s.putLocked(w)
	return w
}

// Begin moves the wizard into StepGenerating. It fails if a batch is already
// running or the wizard is not ready.
func (s *Store) Begin(chatID, userID int64) (Wizard, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.getLocked(chatID, userID)
	if w.Step == StepGenerating || !w.HasImages() || w.NeedsOutfit() {
		return w, false
	}
	w.Step = StepGenerating
	s.putLocked(w)
	return w, true
}

// Finish records the batch outcome and returns the wizard to the options step.
func (s *Store) Finish(chatID, userID int64, shots []photoshoot.Shot) Wizard {
	return s.Update(chatID, userID, func(w *Wizard) {
		w.Step = StepOptions
		if shots != nil {
			w.LastShots = shots
		}
	})
}

func (s *Store) Reset(chatID, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Delete(makeKey(chatID, userID))
}

func (s *Store) getLocked(chatID, userID int64) Wizard {
	if v, ok := s.cache.Get(makeKey(chatID, userID)); ok {
		if w, ok := v.(Wizard); ok {
			return w
		}
	}
	return newWizard(chatID, userID)
}

func (s *Store) putLocked(w Wizard) {
	w.UpdatedAt = s.now()
	s.cache.Set(makeKey(w.ChatID, w.UserID), w, cache.DefaultExpiration)
}

func makeKey(chatID, userID int64) string {
	return fmt.Sprintf("%d:%d", chatID, userID)
}
