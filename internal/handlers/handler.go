package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"ai-dslr-studio/internal/mediagroup"
	"ai-dslr-studio/internal/photoshoot"
	"ai-dslr-studio/internal/portfolio"
	"ai-dslr-studio/internal/session"
)

// Messenger is the part of the Telegram client the handler drives.
type Messenger interface {
	SendText(chatID int64, text string) error
	SendTextWithKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) (int, error)
	EditTextWithKeyboard(chatID int64, messageID int, text string, kb tgbotapi.InlineKeyboardMarkup) error
	AnswerCallback(callbackID, text string, alert bool) error
	SendPhoto(chatID int64, img photoshoot.Image, caption string, kb *tgbotapi.InlineKeyboardMarkup) error
	SendTyping(chatID int64)
	DownloadFile(ctx context.Context, fileID string) (photoshoot.Image, error)
}

type Generator interface {
	Generate(ctx context.Context, in photoshoot.Input, mode photoshoot.Mode, opts ...photoshoot.GenerateOption) ([]photoshoot.Shot, error)
}

// BackendChecker reports whether a backend can be used before a batch starts.
type BackendChecker interface {
	Check(backend photoshoot.Backend) error
}

type Options struct {
	Telegram  Messenger
	Generator Generator
	Backends  BackendChecker
	Sessions  *session.Store
	Portfolio portfolio.Store
	Logger    *slog.Logger
}

type Handler struct {
	tg         Messenger
	gen        Generator
	backends   BackendChecker
	sessions   *session.Store
	portfolio  portfolio.Store
	logger     *slog.Logger
	aggregator *mediagroup.Aggregator
}

func New(opts Options) (*Handler, error) {
	switch {
	case opts.Telegram == nil:
		return nil, errors.New("telegram client is required")
	case opts.Generator == nil:
		return nil, errors.New("generator is required")
	case opts.Sessions == nil:
		return nil, errors.New("session store is required")
	case opts.Portfolio == nil:
		return nil, errors.New("portfolio store is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Handler{
		tg:        opts.Telegram,
		gen:       opts.Generator,
		backends:  opts.Backends,
		sessions:  opts.Sessions,
		portfolio: opts.Portfolio,
		logger:    logger,
	}, nil
}

func (h *Handler) SetMediaGroupAggregator(ag *mediagroup.Aggregator) {
	h.aggregator = ag
}

func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) error {
	if update.CallbackQuery != nil {
		return h.handleCallback(ctx, update.CallbackQuery)
	}
	if update.Message == nil || update.Message.From == nil {
		return nil
	}

	msg := update.Message
	chatID := msg.Chat.ID
	userID := msg.From.ID

	if msg.IsCommand() {
		return h.handleCommand(ctx, chatID, userID, msg)
	}

	if fileID, ok := imageFileID(msg); ok {
		return h.handlePhoto(ctx, chatID, userID, msg, fileID)
	}

	if strings.TrimSpace(msg.Text) != "" {
		return h.handleText(chatID, userID, msg.Text)
	}

	return nil
}

// HandleMediaGroup treats an album as portrait, scene and optional outfit, in
// the order the user attached them.
func (h *Handler) HandleMediaGroup(ctx context.Context, group mediagroup.Group) {
	images, err := h.download(ctx, group.FileIDs)
	if err != nil {
		h.logger.Error("album download failed", "chat_id", group.ChatID, "err", err)
		_ = h.tg.SendText(group.ChatID, downloadErrText)
		return
	}

	h.logger.Info("album received",
		"chat_id", group.ChatID,
		"user_id", group.UserID,
		"username", group.Username,
		"photos", len(group.FileIDs),
	)
	args := parseShootArgs(group.Caption)
	w := h.sessions.Update(group.ChatID, group.UserID, func(w *session.Wizard) {
		if w.Step == session.StepGenerating {
			return
		}
		w.Portrait, w.Scene, w.Outfit = nil, nil, nil
		w.Step = session.StepPortrait
		if len(images) >= 3 {
			outfit := images[2]
			w.Outfit = &outfit
			w.Mode = photoshoot.SingleStyle(photoshoot.StyleCustom)
		}
		applyArgs(w, args)
		for _, img := range images[:min(2, len(images))] {
			w.AcceptPhoto(img)
		}
	})
	if w.Step == session.StepGenerating {
		_ = h.tg.SendText(group.ChatID, busyText)
		return
	}

	if err := h.afterPhoto(group.ChatID, group.UserID, w); err != nil {
		h.logger.Error("album reply failed", "chat_id", group.ChatID, "err", err)
	}
}

func (h *Handler) handleCommand(ctx context.Context, chatID, userID int64, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		h.sessions.Reset(chatID, userID)
		return h.tg.SendText(chatID, startText)
	case "help":
		return h.tg.SendText(chatID, helpText)
	case "reset", "cancel":
		h.sessions.Reset(chatID, userID)
		return h.tg.SendText(chatID, resetText)
	case "shoot":
		args := parseShootArgs(msg.CommandArguments())
		w := h.sessions.Update(chatID, userID, func(w *session.Wizard) {
			if w.Step != session.StepGenerating {
				applyArgs(w, args)
			}
		})
		if len(args.Unknown) > 0 {
			_ = h.tg.SendText(chatID, "🤔 Ignored unknown options: "+strings.Join(args.Unknown, ", "))
		}
		return h.renderWizard(chatID, userID, w, false)
	case "portfolio":
		return h.sendPortfolio(ctx, chatID, userID)
	default:
		return h.tg.SendText(chatID, "❓ Unknown command. Use /help.")
	}
}

func (h *Handler) handleText(chatID, userID int64, text string) error {
	args := parseShootArgs(text)
	if args.empty() {
		return h.tg.SendText(chatID, "📷 Send photos to start, or use /help.")
	}
	w := h.sessions.Update(chatID, userID, func(w *session.Wizard) {
		if w.Step != session.StepGenerating {
			applyArgs(w, args)
		}
	})
	return h.renderWizard(chatID, userID, w, true)
}

func (h *Handler) handlePhoto(ctx context.Context, chatID, userID int64, msg *tgbotapi.Message, fileID string) error {
	if msg.MediaGroupID != "" && h.aggregator != nil {
		h.aggregator.Add(mediagroup.Item{
			ChatID:       chatID,
			UserID:       userID,
			Username:     msg.From.UserName,
			MediaGroupID: msg.MediaGroupID,
			MessageID:    msg.MessageID,
			Caption:      msg.Caption,
			FileID:       fileID,
		})
		return nil
	}

	if h.sessions.Get(chatID, userID).Step == session.StepGenerating {
		return h.tg.SendText(chatID, busyText)
	}

	images, err := h.download(ctx, []string{fileID})
	if err != nil {
		h.logger.Error("photo download failed", "chat_id", chatID, "err", err)
		return h.tg.SendText(chatID, downloadErrText)
	}

	args := parseShootArgs(msg.Caption)
	w := h.sessions.Update(chatID, userID, func(w *session.Wizard) {
		if w.Step == session.StepGenerating {
			return
		}
		applyArgs(w, args)
		w.AcceptPhoto(images[0])
	})
	if w.Step == session.StepGenerating {
		return h.tg.SendText(chatID, busyText)
	}
	return h.afterPhoto(chatID, userID, w)
}

func (h *Handler) afterPhoto(chatID, userID int64, w session.Wizard) error {
	switch {
	case w.Step == session.StepScene:
		return h.tg.SendText(chatID, askSceneText)
	case w.NeedsOutfit():
		return h.tg.SendText(chatID, askOutfitText)
	default:
		return h.renderWizard(chatID, userID, w, false)
	}
}

func (h *Handler) download(ctx context.Context, fileIDs []string) ([]photoshoot.Image, error) {
	images := make([]photoshoot.Image, len(fileIDs))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, fileID := range fileIDs {
		eg.Go(func() error {
			img, err := h.tg.DownloadFile(egCtx, fileID)
			if err != nil {
				return err
			}
			images[i] = img
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return images, nil
}

func applyArgs(w *session.Wizard, args shootArgs) {
	if args.Mode != nil {
		w.Mode = *args.Mode
	}
	if args.Backend != nil {
		w.Backend = *args.Backend
	}
	w.Settle()
}

// imageFileID picks the largest photo size, or an image sent as a document.
func imageFileID(msg *tgbotapi.Message) (string, bool) {
	if len(msg.Photo) > 0 {
		return msg.Photo[len(msg.Photo)-1].FileID, true
	}
	if msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/") {
		return msg.Document.FileID, true
	}
	return "", false
}
