package photoshoot

import (
	"fmt"
	"strings"
)

type numberedSection struct {
	Title string
	Lines []string
}

var identityMandates = []numberedSection{
	{
		Title: "Perfect Facial Likeness (Highest Priority)",
		Lines: []string{
			"The generated face MUST be an exact, pixel-perfect replica of the reference person (Image 2).",
			"ZERO DEVIATION: Do not alter, stylize, beautify, or interpret the facial features in any way. This includes the precise shape of the eyes, nose, mouth, jawline, and unique skin details (moles, freckles).",
			"Your primary function is to flawlessly composite the real face, not generate a new one. Any change to the person's identity is a complete failure of the task.",
		},
	},
	{
		Title: "Anatomical and Proportional Integrity",
		Lines: []string{
			"Anatomical Correctness: The person's body must be complete and anatomically sound. All limbs, hands, and feet (if visible) must be fully rendered, with the correct number of fingers and toes, and positioned logically. There must be no missing or malformed body parts.",
			"Realistic Proportions: The head-to-body ratio MUST be natural and anatomically correct. The size of the head must be proportional to the generated body. Strictly forbid any 'bobblehead' effect or exaggerated features. The final image must look like a photograph of a real human.",
		},
	},
}

var sceneAnalysis = []string{
	"Identify the lighting source, direction, color temperature (e.g., warm golden hour, cool overcast day), and quality (e.g., soft diffused, hard direct).",
	"Note the overall mood, environment, and time of day.",
	"Understand the perspective and depth of the scene.",
}

var photographicProperties = []string{
	"The final image must match the specific shot type instructions provided below.",
	"Masterful Re-lighting: Re-light the person to match the scene's lighting conditions flawlessly. This includes replicating the direction, color temperature, and quality (hard vs. soft) of the primary light source, as well as accounting for bounced light and ambient occlusion. Create realistic specular highlights on skin and reflective surfaces.",
	"Accurate Shadows: Create accurate, soft shadows that ground the person in the environment. The person must not appear to be floating. Their feet (if visible) must be firmly on the ground with realistic contact shadows and core shadows on the body.",
	"Cohesive Color Grading: Apply professional color grading to the entire image for a unified, cinematic look. The person's skin tones must remain natural, accurate, and vibrant.",
}

var qualityRequirements = []string{
	"Extreme Detail & Texture: Generate extremely fine details. For the person, this includes realistic skin texture (pores, subtle lines, realistic sheen), individual hair strands with realistic flyaways, and crisp catchlights in the eyes. For clothing, render the precise texture of the fabric (e.g., the weave of denim, the sheen of silk, the knit of wool).",
	"Impeccable Clarity & Sharpness: The image must be tack sharp, especially on the subject's eyes. Avoid any digital softness, blurriness, or \"painterly\" effects. The focus falloff should be natural and consistent with the specified lens aperture.",
	"Seamless Compositing: No visible edges, halos, or color fringing. The blend between the person and the scene must be absolutely perfect and physically plausible.",
	"Lighting & Shadow Perfection: Lighting on the person must perfectly match the scene's source direction, color, and hardness. Shadows must be correctly cast, with soft penumbras and accurate contact shadows, firmly grounding the subject.",
	"No Digital Artifacts: The final image must be clean and pristine, with no compression artifacts, strange patterns, misplaced textures, or other tell-tale signs of AI generation.",
}

const (
	customOutfitImageNote = "Image 3 (Third): The reference OUTFIT to be applied to the person."
	customOutfitDressing  = "Dress the person in the outfit from the reference OUTFIT image (Image 3). IMPORTANT: If a person is visible in the outfit image, completely ignore them. Your only task is to extract the clothing and apply it to the reference PERSON (Image 2). Adapt the fit, proportions, and lighting of the outfit to the person's pose and the scene's environment."
	customOutfitGuide     = "The outfit is provided in the third input image. Adapt it realistically to the person and the scene."
)

// BuildPrompt renders the full instruction text for one shot. It is a pure
// function of its arguments.
func BuildPrompt(style Style, shot ShotType, backend Backend, hasCustomOutfit bool) string {
	var b strings.Builder
	b.Grow(8192)

	b.WriteString("TASK: Create a single, professional photograph by seamlessly compositing a person into a background scene with a new outfit, following the specified AI engine aesthetic.\n\n")

	b.WriteString("INPUT IMAGES:\n")
	b.WriteString("- Image 1 (First): The background SCENE.\n")
	b.WriteString("- Image 2 (Second): The reference PERSON whose likeness must be preserved.\n")
	if hasCustomOutfit {
		b.WriteString("- " + customOutfitImageNote + "\n")
	}
	b.WriteString("\n")

	engine, ok := backendSpecs[backend]
	if !ok {
		engine = backendSpecs[BackendGemini]
	}
	b.WriteString("AI ENGINE: " + engine.Engine + "\n")
	for _, line := range engine.Aesthetic {
		b.WriteString("- " + line + "\n")
	}
	b.WriteString("\n")

	b.WriteString("CRITICAL MANDATES (these rules are absolute and must not be violated under any circumstances):\n")
	for i, m := range identityMandates {
		writeNumbered(&b, i+1, m.Title, m.Lines)
	}
	b.WriteString("\n")

	integrate := []string{
		"Place the person from the reference image realistically into the scene. The person's scale and perspective must perfectly match the background.",
		"Adhere strictly to the \"Anatomical and Proportional Integrity\" mandate at all times.",
	}
	if hasCustomOutfit {
		integrate = append(integrate, customOutfitDressing)
	} else {
		integrate = append(integrate, fmt.Sprintf("Generate a new outfit for the person according to the '%s' style guide below. The outfit must look natural in the scene.", style))
	}
	integrate = append(integrate, "Reconfirm HIGHEST PRIORITY: The person's identity must be perfectly preserved as mandated above. The generated face must be an exact replica. There is zero tolerance for deviation.")

	b.WriteString("CORE INSTRUCTIONS (follow these steps precisely, adhering to the Critical Mandates above):\n")
	writeNumbered(&b, 1, "Analyze the Scene", sceneAnalysis)
	writeNumbered(&b, 2, "Integrate the Person", integrate)
	writeNumbered(&b, 3, "Apply Photographic Properties & Fine Details", photographicProperties)
	b.WriteString("\n")

	b.WriteString("SHOT TYPE SPECIFICATIONS: " + string(shot) + "\n")
	b.WriteString(ShotSpec(shot))
	b.WriteString("\n")

	if hasCustomOutfit {
		b.WriteString("OUTFIT STYLE GUIDE: " + string(StyleCustom) + "\n")
		b.WriteString(customOutfitGuide + "\n")
	} else {
		b.WriteString("OUTFIT STYLE GUIDE: " + string(style) + "\n")
		b.WriteString(StyleGuide(style))
	}
	b.WriteString("\n")

	b.WriteString("UNIVERSAL QUALITY REQUIREMENTS (mandatory):\n")
	for _, line := range qualityRequirements {
		b.WriteString("- " + line + "\n")
	}

	return strings.TrimSpace(b.String())
}

func writeNumbered(b *strings.Builder, n int, title string, lines []string) {
	if len(lines) == 0 {
		return
	}
	b.WriteString(fmt.Sprintf("%d. %s:\n", n, title))
	for _, line := range lines {
		b.WriteString("   - " + line + "\n")
	}
}
