package handlers

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-dslr-studio/internal/mediagroup"
	"ai-dslr-studio/internal/photoshoot"
	"ai-dslr-studio/internal/portfolio"
	"ai-dslr-studio/internal/session"
)

type sentPhoto struct {
	chatID  int64
	caption string
	kb      *tgbotapi.InlineKeyboardMarkup
}

type answer struct {
	text  string
	alert bool
}

type fakeMessenger struct {
	mu      sync.Mutex
	texts   []string
	photos  []sentPhoto
	answers []answer
	edits   int
	nextID  int
	failDL  bool

	// onDownload runs before each download returns.
	onDownload func()
}

func (m *fakeMessenger) SendText(chatID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = append(m.texts, text)
	return nil
}

func (m *fakeMessenger) SendTextWithKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = append(m.texts, text)
	m.nextID++
	return 100 + m.nextID, nil
}

func (m *fakeMessenger) EditTextWithKeyboard(chatID int64, messageID int, text string, kb tgbotapi.InlineKeyboardMarkup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edits++
	m.texts = append(m.texts, text)
	return nil
}

func (m *fakeMessenger) AnswerCallback(callbackID, text string, alert bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answers = append(m.answers, answer{text: text, alert: alert})
	return nil
}

func (m *fakeMessenger) SendPhoto(chatID int64, img photoshoot.Image, caption string, kb *tgbotapi.InlineKeyboardMarkup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.photos = append(m.photos, sentPhoto{chatID: chatID, caption: caption, kb: kb})
	return nil
}

func (m *fakeMessenger) SendTyping(chatID int64) {}

func (m *fakeMessenger) DownloadFile(ctx context.Context, fileID string) (photoshoot.Image, error) {
	if m.failDL {
		return photoshoot.Image{}, errors.New("telegram down")
	}
	if m.onDownload != nil {
		m.onDownload()
	}
	return photoshoot.NewImage([]byte(fileID), "image/jpeg"), nil
}

func (m *fakeMessenger) lastText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.texts) == 0 {
		return ""
	}
	return m.texts[len(m.texts)-1]
}

func (m *fakeMessenger) lastAnswer() answer {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.answers) == 0 {
		return answer{}
	}
	return m.answers[len(m.answers)-1]
}

type fakeGenerator struct {
	mu    sync.Mutex
	calls []generateCall
	err   error
}

type generateCall struct {
	in   photoshoot.Input
	mode photoshoot.Mode
}

func (g *fakeGenerator) Generate(ctx context.Context, in photoshoot.Input, mode photoshoot.Mode, opts ...photoshoot.GenerateOption) ([]photoshoot.Shot, error) {
	g.mu.Lock()
	g.calls = append(g.calls, generateCall{in: in, mode: mode})
	g.mu.Unlock()

	if g.err != nil {
		return nil, g.err
	}
	img := photoshoot.NewImage([]byte("rendered"), "image/png")
	var shots []photoshoot.Shot
	for _, style := range mode.Styles() {
		for _, shot := range photoshoot.ShotTypes() {
			shots = append(shots, photoshoot.Shot{
				ID:       photoshoot.ShotID("batch", style, shot),
				URL:      img.DataURL(),
				Style:    style,
				ShotType: shot,
				Backend:  in.Backend,
			})
		}
	}
	return shots, nil
}

type fakeBackends struct {
	err error
}

func (b fakeBackends) Check(photoshoot.Backend) error { return b.err }

type fixture struct {
	h         *Handler
	tg        *fakeMessenger
	gen       *fakeGenerator
	sessions  *session.Store
	portfolio portfolio.Store
}

func newFixture(t *testing.T, backends BackendChecker) *fixture {
	t.Helper()

	store, err := portfolio.NewFileStore(filepath.Join(t.TempDir(), "portfolio.json"))
	require.NoError(t, err)

	f := &fixture{
		tg:        &fakeMessenger{},
		gen:       &fakeGenerator{},
		sessions:  session.NewStore(session.Options{}),
		portfolio: store,
	}
	f.h, err = New(Options{
		Telegram:  f.tg,
		Generator: f.gen,
		Backends:  backends,
		Sessions:  f.sessions,
		Portfolio: store,
	})
	require.NoError(t, err)
	return f
}

const (
	testChat int64 = 10
	testUser int64 = 20
)

func photoUpdate(fileID, caption string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: testUser},
		Chat:      &tgbotapi.Chat{ID: testChat},
		Caption:   caption,
		Photo:     []tgbotapi.PhotoSize{{FileID: fileID + "-small"}, {FileID: fileID}},
	}}
}

func commandUpdate(text string) tgbotapi.Update {
	cmd, _, _ := strings.Cut(text, " ")
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: testUser},
		Chat:      &tgbotapi.Chat{ID: testChat},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}}
}

func callbackUpdate(fromID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: fromID},
		Message: &tgbotapi.Message{MessageID: 55, Chat: &tgbotapi.Chat{ID: testChat}},
		Data:    data,
	}}
}

func (f *fixture) send(t *testing.T, update tgbotapi.Update) {
	t.Helper()
	require.NoError(t, f.h.HandleUpdate(context.Background(), update))
}

func (f *fixture) ready(t *testing.T) {
	t.Helper()
	f.send(t, photoUpdate("portrait", ""))
	f.send(t, photoUpdate("scene", ""))
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestPhotoFlow(t *testing.T) {
	f := newFixture(t, nil)

	f.send(t, photoUpdate("portrait", ""))
	assert.Equal(t, askSceneText, f.tg.lastText())

	f.send(t, photoUpdate("scene", ""))
	w := f.sessions.Get(testChat, testUser)
	assert.Equal(t, session.StepOptions, w.Step)
	assert.Equal(t, []byte("portrait"), w.Portrait.Data, "largest photo size is used")
	assert.Equal(t, []byte("scene"), w.Scene.Data)
	assert.NotZero(t, w.MessageID)
	assert.Contains(t, f.tg.lastText(), "Tap Generate")
}

func TestPhotoDownloadFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.tg.failDL = true

	f.send(t, photoUpdate("portrait", ""))
	assert.Equal(t, downloadErrText, f.tg.lastText())
	assert.Nil(t, f.sessions.Get(testChat, testUser).Portrait)
}

func TestCaptionPreselectsOptions(t *testing.T) {
	f := newFixture(t, nil)

	f.send(t, photoUpdate("portrait", "compare seedream"))
	w := f.sessions.Get(testChat, testUser)
	assert.True(t, w.Mode.Compare)
	assert.Equal(t, photoshoot.BackendSeedream, w.Backend)
}

func TestPhotoDuringGenerationKeepsOptions(t *testing.T) {
	f := newFixture(t, nil)
	f.ready(t)
	before := f.sessions.Get(testChat, testUser)

	// The batch starts while the photo is still downloading.
	f.tg.onDownload = func() {
		_, ok := f.sessions.Begin(testChat, testUser)
		require.True(t, ok)
	}
	f.send(t, photoUpdate("late", "compare seedream"))

	w := f.sessions.Get(testChat, testUser)
	assert.Equal(t, session.StepGenerating, w.Step)
	assert.Equal(t, before.Mode, w.Mode)
	assert.Equal(t, before.Backend, w.Backend)
	assert.Equal(t, []byte("portrait"), w.Portrait.Data)
	assert.Equal(t, []byte("scene"), w.Scene.Data)
	assert.Equal(t, busyText, f.tg.lastText())
}

func TestGenerateSingleStyle(t *testing.T) {
	f := newFixture(t, fakeBackends{})
	f.ready(t)

	f.send(t, callbackUpdate(testUser, cb(testUser, "style", "formal")))
	f.send(t, callbackUpdate(testUser, cb(testUser, "generate")))

	require.Len(t, f.gen.calls, 1)
	call := f.gen.calls[0]
	assert.Equal(t, photoshoot.SingleStyle(photoshoot.StyleFormal), call.mode)
	assert.Equal(t, []byte("portrait"), call.in.Portrait.Data)
	assert.Equal(t, []byte("scene"), call.in.Scene.Data)
	assert.Nil(t, call.in.Outfit)

	require.Len(t, f.tg.photos, 3)
	assert.Equal(t, "Closeup Shot · Formal style", f.tg.photos[0].caption)
	require.NotNil(t, f.tg.photos[0].kb)

	w := f.sessions.Get(testChat, testUser)
	assert.Equal(t, session.StepOptions, w.Step)
	assert.Len(t, w.LastShots, 3)
}

func TestGenerateCompare(t *testing.T) {
	f := newFixture(t, fakeBackends{})
	f.ready(t)

	f.send(t, callbackUpdate(testUser, cb(testUser, "compare")))
	f.send(t, callbackUpdate(testUser, cb(testUser, "backend", "seedream")))
	f.send(t, callbackUpdate(testUser, cb(testUser, "generate")))

	require.Len(t, f.gen.calls, 1)
	assert.True(t, f.gen.calls[0].mode.Compare)
	assert.Equal(t, photoshoot.BackendSeedream, f.gen.calls[0].in.Backend)
	assert.Len(t, f.tg.photos, 9)
}

func TestCustomStyleWaitsForOutfit(t *testing.T) {
	f := newFixture(t, fakeBackends{})
	f.ready(t)

	f.send(t, callbackUpdate(testUser, cb(testUser, "style", "custom")))
	assert.Equal(t, session.StepOutfit, f.sessions.Get(testChat, testUser).Step)

	f.send(t, callbackUpdate(testUser, cb(testUser, "generate")))
	assert.Empty(t, f.gen.calls)
	assert.Equal(t, askOutfitText, f.tg.lastText())

	f.send(t, photoUpdate("outfit", ""))
	f.send(t, callbackUpdate(testUser, cb(testUser, "generate")))
	require.Len(t, f.gen.calls, 1)
	require.NotNil(t, f.gen.calls[0].in.Outfit)
	assert.Equal(t, []byte("outfit"), f.gen.calls[0].in.Outfit.Data)
}

func TestGenerateFailureKeepsWizard(t *testing.T) {
	f := newFixture(t, fakeBackends{})
	f.gen.err = &photoshoot.GenerationRefusedError{Backend: photoshoot.BackendGemini, Text: "no"}
	f.ready(t)

	f.send(t, callbackUpdate(testUser, cb(testUser, "generate")))

	assert.Empty(t, f.tg.photos)
	var refused bool
	for _, text := range f.tg.texts {
		refused = refused || strings.HasPrefix(text, "🚫")
	}
	assert.True(t, refused)

	w := f.sessions.Get(testChat, testUser)
	assert.Equal(t, session.StepOptions, w.Step)
	assert.NotNil(t, w.Portrait)
	assert.Empty(t, w.LastShots)
}

func TestGenerateUnconfiguredBackend(t *testing.T) {
	cfgErr := &photoshoot.ConfigurationError{Backend: photoshoot.BackendSeedream, Credential: "SEEDREAM_API_KEY"}
	f := newFixture(t, fakeBackends{err: cfgErr})
	f.ready(t)

	f.send(t, callbackUpdate(testUser, cb(testUser, "generate")))

	assert.Empty(t, f.gen.calls)
	var mentioned bool
	for _, text := range f.tg.texts {
		mentioned = mentioned || strings.Contains(text, "SEEDREAM_API_KEY")
	}
	assert.True(t, mentioned)
	assert.Equal(t, session.StepOptions, f.sessions.Get(testChat, testUser).Step)
}

func TestGenerateWithoutPhotos(t *testing.T) {
	f := newFixture(t, nil)

	f.send(t, callbackUpdate(testUser, cb(testUser, "generate")))
	assert.Empty(t, f.gen.calls)
	assert.Contains(t, f.tg.lastText(), askPortraitText)
}

func TestForeignCallbackRejected(t *testing.T) {
	f := newFixture(t, nil)
	f.ready(t)

	f.send(t, callbackUpdate(999, cb(testUser, "compare")))

	assert.True(t, f.tg.lastAnswer().alert)
	assert.False(t, f.sessions.Get(testChat, testUser).Mode.Compare)
}

func TestSaveAndRemoveShots(t *testing.T) {
	f := newFixture(t, nil)
	f.ready(t)
	f.send(t, callbackUpdate(testUser, cb(testUser, "generate")))

	shot := f.sessions.Get(testChat, testUser).LastShots[1]
	save := cb(testUser, "save", shotToken(shot.ID))
	assert.LessOrEqual(t, len(save), 64)

	f.send(t, callbackUpdate(testUser, save))
	assert.Equal(t, "Saved to portfolio", f.tg.lastAnswer().text)

	f.send(t, callbackUpdate(testUser, save))
	assert.Equal(t, "Already saved", f.tg.lastAnswer().text)

	saved, err := f.portfolio.List(context.Background(), ownerKey(testUser))
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, shot.ID, saved[0].ID)

	f.tg.photos = nil
	f.send(t, commandUpdate("/portfolio"))
	require.Len(t, f.tg.photos, 1)
	assert.Equal(t, shot.Caption(), f.tg.photos[0].caption)

	f.send(t, callbackUpdate(testUser, cb(testUser, "rm", shotToken(shot.ID))))
	assert.Equal(t, "Removed from portfolio", f.tg.lastAnswer().text)

	saved, err = f.portfolio.List(context.Background(), ownerKey(testUser))
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestSaveExpiredShot(t *testing.T) {
	f := newFixture(t, nil)

	f.send(t, callbackUpdate(testUser, cb(testUser, "save", "nope")))
	assert.True(t, f.tg.lastAnswer().alert)
}

func TestEmptyPortfolio(t *testing.T) {
	f := newFixture(t, nil)

	f.send(t, commandUpdate("/portfolio"))
	assert.Equal(t, emptyPortfolio, f.tg.lastText())
}

func TestCommands(t *testing.T) {
	f := newFixture(t, nil)
	f.ready(t)

	f.send(t, commandUpdate("/shoot artistic seedream bogus"))
	w := f.sessions.Get(testChat, testUser)
	assert.Equal(t, photoshoot.StyleArtistic, w.Mode.Style)
	assert.Equal(t, photoshoot.BackendSeedream, w.Backend)
	assert.Contains(t, f.tg.texts[len(f.tg.texts)-2], "bogus")

	f.send(t, commandUpdate("/reset"))
	assert.Equal(t, resetText, f.tg.lastText())
	assert.Nil(t, f.sessions.Get(testChat, testUser).Portrait)

	f.send(t, commandUpdate("/help"))
	assert.Equal(t, helpText, f.tg.lastText())
}

func TestHandleMediaGroup(t *testing.T) {
	t.Run("portrait and scene", func(t *testing.T) {
		f := newFixture(t, nil)
		f.h.HandleMediaGroup(context.Background(), mediagroup.Group{
			ChatID:  testChat,
			UserID:  testUser,
			Caption: "formal",
			FileIDs: []string{"portrait", "scene"},
		})

		w := f.sessions.Get(testChat, testUser)
		assert.Equal(t, session.StepOptions, w.Step)
		assert.Equal(t, []byte("portrait"), w.Portrait.Data)
		assert.Equal(t, []byte("scene"), w.Scene.Data)
		assert.Equal(t, photoshoot.StyleFormal, w.Mode.Style)
	})

	t.Run("third photo is the outfit", func(t *testing.T) {
		f := newFixture(t, nil)
		f.h.HandleMediaGroup(context.Background(), mediagroup.Group{
			ChatID:  testChat,
			UserID:  testUser,
			FileIDs: []string{"portrait", "scene", "outfit"},
		})

		w := f.sessions.Get(testChat, testUser)
		assert.Equal(t, session.StepOptions, w.Step)
		assert.Equal(t, photoshoot.StyleCustom, w.Mode.Style)
		require.NotNil(t, w.Outfit)
		assert.Equal(t, []byte("outfit"), w.Outfit.Data)
	})

	t.Run("logs the sender", func(t *testing.T) {
		f := newFixture(t, nil)
		var logs bytes.Buffer
		f.h.logger = slog.New(slog.NewJSONHandler(&logs, nil))
		f.h.HandleMediaGroup(context.Background(), mediagroup.Group{
			ChatID:   testChat,
			UserID:   testUser,
			Username: "ann",
			FileIDs:  []string{"portrait", "scene"},
		})

		assert.Contains(t, logs.String(), `"msg":"album received"`)
		assert.Contains(t, logs.String(), `"username":"ann"`)
		assert.Contains(t, logs.String(), `"photos":2`)
	})
}
