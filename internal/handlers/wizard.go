package handlers

import (
	"context"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ai-dslr-studio/internal/photoshoot"
	"ai-dslr-studio/internal/session"
)

const callbackPrefix = "ps"

func (h *Handler) renderWizard(chatID, userID int64, w session.Wizard, edit bool) error {
	text := wizardText(w)
	kb := wizardKeyboard(userID, w)

	if edit && w.MessageID != 0 {
		if err := h.tg.EditTextWithKeyboard(chatID, w.MessageID, text, kb); err == nil {
			return nil
		}
	}

	msgID, err := h.tg.SendTextWithKeyboard(chatID, text, kb)
	if err != nil {
		return err
	}
	h.sessions.Update(chatID, userID, func(w *session.Wizard) { w.MessageID = msgID })
	return nil
}

func (h *Handler) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	if q == nil || q.Message == nil || q.From == nil {
		return nil
	}

	ownerID, action, args, ok := parseCallback(q.Data)
	if !ok {
		return nil
	}
	if ownerID != q.From.ID {
		_ = h.tg.AnswerCallback(q.ID, "This menu belongs to someone else.", true)
		return nil
	}

	chatID := q.Message.Chat.ID

	switch action {
	case "save":
		return h.saveShot(ctx, q, chatID, ownerID, args)
	case "rm":
		return h.removeShot(ctx, q, chatID, ownerID, args)
	case "generate":
		_ = h.tg.AnswerCallback(q.ID, "Generating…", false)
		return h.generate(ctx, chatID, ownerID)
	case "reset":
		h.sessions.Reset(chatID, ownerID)
		_ = h.tg.AnswerCallback(q.ID, "Cleared", false)
		return h.tg.SendText(chatID, resetText)
	}

	w := h.sessions.Update(chatID, ownerID, func(w *session.Wizard) {
		if w.Step == session.StepGenerating {
			return
		}
		w.MessageID = q.Message.MessageID
		switch action {
		case "style":
			if len(args) > 0 {
				if style, ok := photoshoot.ParseStyle(args[0]); ok {
					w.Mode = photoshoot.SingleStyle(style)
				}
			}
		case "compare":
			w.Mode = photoshoot.CompareAll()
		case "backend":
			if len(args) > 0 {
				if backend, ok := photoshoot.ParseBackend(args[0]); ok {
					w.Backend = backend
				}
			}
		}
		w.Settle()
	})

	if w.Step == session.StepGenerating {
		_ = h.tg.AnswerCallback(q.ID, "Please wait for the current photoshoot.", false)
		return nil
	}
	_ = h.tg.AnswerCallback(q.ID, "", false)
	return h.renderWizard(chatID, ownerID, w, true)
}

// generate runs one batch for the wizard. On failure the wizard goes back to
// the options step with everything the user provided kept.
func (h *Handler) generate(ctx context.Context, chatID, userID int64) error {
	w, ok := h.sessions.Begin(chatID, userID)
	if !ok {
		switch {
		case w.Step == session.StepGenerating:
			return h.tg.SendText(chatID, busyText)
		case w.NeedsOutfit() && w.HasImages():
			return h.tg.SendText(chatID, askOutfitText)
		default:
			return h.renderWizard(chatID, userID, w, false)
		}
	}

	logger := h.logger.With("chat_id", chatID, "user_id", userID, "mode", w.Mode.String(), "backend", string(w.Backend))

	if h.backends != nil {
		if err := h.backends.Check(w.Backend); err != nil {
			w = h.sessions.Finish(chatID, userID, nil)
			logger.Warn("backend not configured", "err", err)
			if sendErr := h.tg.SendText(chatID, userMessage(err)); sendErr != nil {
				return sendErr
			}
			return h.renderWizard(chatID, userID, w, false)
		}
	}

	total := shotCount(w.Mode)
	_ = h.tg.SendText(chatID, fmt.Sprintf("🎨 Generating %d shots (%s, %s). This can take a few minutes…", total, modeLabel(w.Mode), w.Backend.DisplayName()))
	h.tg.SendTyping(chatID)

	shots, err := h.gen.Generate(ctx, w.Input(), w.Mode, photoshoot.WithProgress(func(p photoshoot.Progress) {
		if p.Done < p.Total {
			h.tg.SendTyping(chatID)
		}
	}))
	if err != nil {
		w = h.sessions.Finish(chatID, userID, nil)
		logger.Error("photoshoot failed", "kind", photoshoot.KindOf(err), "err", err)
		if sendErr := h.tg.SendText(chatID, userMessage(err)); sendErr != nil {
			return sendErr
		}
		return h.renderWizard(chatID, userID, w, false)
	}

	h.sessions.Finish(chatID, userID, shots)
	logger.Info("photoshoot delivered", "shots", len(shots))

	for _, shot := range shots {
		img, err := shot.Image()
		if err != nil {
			logger.Error("shot decode failed", "shot_id", shot.ID, "err", err)
			continue
		}
		kb := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💾 Save", cb(userID, "save", shotToken(shot.ID))),
		))
		if err := h.tg.SendPhoto(chatID, img, shot.Caption(), &kb); err != nil {
			return err
		}
	}

	return h.tg.SendText(chatID, "✅ Done! Tap Save on your favourites, /portfolio to see them, or send a new photo to start over.")
}

func (h *Handler) saveShot(ctx context.Context, q *tgbotapi.CallbackQuery, chatID, userID int64, args []string) error {
	if len(args) == 0 {
		return nil
	}
	shot, ok := findByToken(h.sessions.Get(chatID, userID).LastShots, args[0])
	if !ok {
		return h.tg.AnswerCallback(q.ID, "This shot has expired, generate again to save it.", true)
	}

	added, err := h.portfolio.Add(ctx, ownerKey(userID), shot)
	if err != nil {
		h.logger.Error("portfolio save failed", "user_id", userID, "shot_id", shot.ID, "err", err)
		return h.tg.AnswerCallback(q.ID, "Could not save the shot, please try again.", true)
	}
	if !added {
		return h.tg.AnswerCallback(q.ID, "Already saved", false)
	}
	return h.tg.AnswerCallback(q.ID, "Saved to portfolio", false)
}

func (h *Handler) removeShot(ctx context.Context, q *tgbotapi.CallbackQuery, chatID, userID int64, args []string) error {
	if len(args) == 0 {
		return nil
	}

	shots, err := h.portfolio.List(ctx, ownerKey(userID))
	if err != nil {
		h.logger.Error("portfolio list failed", "user_id", userID, "err", err)
		return h.tg.AnswerCallback(q.ID, "Could not load your portfolio.", true)
	}

	shot, ok := findByToken(shots, args[0])
	if !ok {
		return h.tg.AnswerCallback(q.ID, "Already removed", false)
	}
	if _, err := h.portfolio.Remove(ctx, ownerKey(userID), shot.ID); err != nil {
		h.logger.Error("portfolio remove failed", "user_id", userID, "shot_id", shot.ID, "err", err)
		return h.tg.AnswerCallback(q.ID, "Could not remove the shot.", true)
	}
	return h.tg.AnswerCallback(q.ID, "Removed from portfolio", false)
}

func (h *Handler) sendPortfolio(ctx context.Context, chatID, userID int64) error {
	shots, err := h.portfolio.List(ctx, ownerKey(userID))
	if err != nil {
		h.logger.Error("portfolio list failed", "user_id", userID, "err", err)
		return h.tg.SendText(chatID, "❌ Could not load your portfolio.")
	}
	if len(shots) == 0 {
		return h.tg.SendText(chatID, emptyPortfolio)
	}

	_ = h.tg.SendText(chatID, fmt.Sprintf("🗂 Your portfolio (%d)", len(shots)))
	for _, shot := range shots {
		img, err := shot.Image()
		if err != nil {
			h.logger.Warn("portfolio shot unreadable", "shot_id", shot.ID, "err", err)
			continue
		}
		kb := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 Remove", cb(userID, "rm", shotToken(shot.ID))),
		))
		if err := h.tg.SendPhoto(chatID, img, shot.Caption(), &kb); err != nil {
			return err
		}
	}
	return nil
}

func wizardKeyboard(ownerID int64, w session.Wizard) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	var row []tgbotapi.InlineKeyboardButton
	for _, style := range photoshoot.Styles() {
		label := string(style)
		if !w.Mode.Compare && w.Mode.Style == style {
			label = "✅ " + label
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, cb(ownerID, "style", style.Key())))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	compare := "🔀 Compare all styles"
	if w.Mode.Compare {
		compare = "✅ " + compare
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(compare, cb(ownerID, "compare")),
	))

	var backendRow []tgbotapi.InlineKeyboardButton
	for _, backend := range photoshoot.Backends() {
		label := backend.DisplayName()
		if w.Backend == backend {
			label = "✅ " + label
		}
		backendRow = append(backendRow, tgbotapi.NewInlineKeyboardButtonData(label, cb(ownerID, "backend", string(backend))))
	}
	rows = append(rows, backendRow)

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🎨 Generate", cb(ownerID, "generate")),
		tgbotapi.NewInlineKeyboardButtonData("Reset", cb(ownerID, "reset")),
	))

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func cb(ownerID int64, parts ...string) string {
	return fmt.Sprintf("%s:%d:%s", callbackPrefix, ownerID, strings.Join(parts, ":"))
}

func parseCallback(data string) (ownerID int64, action string, args []string, ok bool) {
	parts := strings.Split(strings.TrimSpace(data), ":")
	if len(parts) < 3 || parts[0] != callbackPrefix {
		return 0, "", nil, false
	}
	ownerID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, "", nil, false
	}
	return ownerID, parts[2], parts[3:], true
}

// shotToken shortens a shot ID to fit Telegram's 64-byte callback data.
func shotToken(id string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	return strconv.FormatUint(h.Sum64(), 36)
}

func findByToken(shots []photoshoot.Shot, token string) (photoshoot.Shot, bool) {
	for _, shot := range shots {
		if shotToken(shot.ID) == token {
			return shot, true
		}
	}
	return photoshoot.Shot{}, false
}

func ownerKey(userID int64) string {
	return "tg-" + strconv.FormatInt(userID, 10)
}
