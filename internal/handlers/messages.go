package handlers

import (
	"fmt"
	"strings"

	"ai-dslr-studio/internal/photoshoot"
	"ai-dslr-studio/internal/session"
)

const (
	startText = "📸 AI DSLR Photoshoot\n\n" +
		"Turn a casual selfie into a professional photoshoot.\n\n" +
		"1. Send a clear portrait of yourself.\n" +
		"2. Send the scene you want to appear in.\n" +
		"3. Pick an outfit style (or Compare all) and tap Generate.\n\n" +
		"Tip: send portrait and scene together as one album. Add a caption like \"formal\" or \"compare seedream\" to preselect options.\n\n" +
		"Commands:\n" +
		"/start - Start over\n" +
		"/help - Help\n" +
		"/shoot [style|compare] [backend] - Set options\n" +
		"/portfolio - Your saved shots\n" +
		"/reset - Clear the current photoshoot"

	helpText = "ℹ️ Help\n\n" +
		"Styles: Casual, Formal, Artistic, Custom (send an outfit photo).\n" +
		"Compare renders Casual, Formal and Artistic side by side.\n" +
		"Every style produces three shots: Closeup, Medium Close-up and Knees-Up.\n" +
		"Backends: gemini (photorealistic), seedream (dream-like).\n\n" +
		"Examples:\n" +
		"/shoot formal\n" +
		"/shoot compare seedream\n" +
		"/shoot custom"

	askPortraitText = "👤 Send a portrait photo of the person to photograph."
	askSceneText    = "🏞 Portrait saved. Now send the background scene."
	askOutfitText   = "👗 Custom style selected. Send a photo of the outfit to wear."
	busyText        = "⏳ A photoshoot is already being generated. Please wait."
	downloadErrText = "❌ Could not download the photo. Please send it again."
	emptyPortfolio  = "🗂 Your portfolio is empty. Generate some shots and tap Save!"
	resetText       = "🔄 Photoshoot cleared. " + askPortraitText
)

// userMessage turns a generation failure into chat text.
func userMessage(err error) string {
	switch photoshoot.KindOf(err) {
	case photoshoot.KindConfiguration:
		return "⚙️ " + err.Error()
	case photoshoot.KindRefused:
		return "🚫 No image was generated. The model may have refused the request due to safety policies or could not process the images. Please try different images."
	case photoshoot.KindInvalid:
		return "⚠️ " + strings.TrimPrefix(err.Error(), photoshoot.ErrInvalidRequest.Error()+": ")
	case photoshoot.KindCanceled:
		return "⌛ Generation took too long and was stopped. Please try again."
	default:
		return "❌ Failed to generate image. An unexpected error occurred, please try again."
	}
}

func modeLabel(mode photoshoot.Mode) string {
	if mode.Compare {
		names := make([]string, 0, 3)
		for _, s := range photoshoot.CompareStyles() {
			names = append(names, string(s))
		}
		return "Compare (" + strings.Join(names, ", ") + ")"
	}
	return string(mode.Style)
}

func shotCount(mode photoshoot.Mode) int {
	return len(mode.Styles()) * len(photoshoot.ShotTypes())
}

func wizardText(w session.Wizard) string {
	var b strings.Builder
	b.WriteString("📸 AI DSLR Photoshoot\n\n")
	b.WriteString("Portrait: " + check(w.Portrait != nil) + "\n")
	b.WriteString("Scene: " + check(w.Scene != nil) + "\n")
	b.WriteString("Style: " + modeLabel(w.Mode) + "\n")
	if !w.Mode.Compare && w.Mode.Style == photoshoot.StyleCustom {
		b.WriteString("Outfit: " + check(w.Outfit != nil) + "\n")
	}
	b.WriteString("Backend: " + w.Backend.DisplayName() + "\n")
	b.WriteString(fmt.Sprintf("Shots: %d\n", shotCount(w.Mode)))

	switch {
	case w.Step == session.StepGenerating:
		b.WriteString("\n🎨 Generating…")
	case w.Portrait == nil:
		b.WriteString("\n" + askPortraitText)
	case w.Scene == nil:
		b.WriteString("\n🏞 Now send the background scene.")
	case w.NeedsOutfit():
		b.WriteString("\n" + askOutfitText)
	default:
		b.WriteString("\n🎨 Tap Generate when ready. Sending a new photo starts over.")
	}
	return b.String()
}

func check(ok bool) string {
	if ok {
		return "✅"
	}
	return "➖"
}
