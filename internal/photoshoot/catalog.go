package photoshoot

import "strings"

type Style string

const (
	StyleCasual   Style = "Casual"
	StyleFormal   Style = "Formal"
	StyleArtistic Style = "Artistic"
	StyleCustom   Style = "Custom"
)

type ShotType string

const (
	ShotCloseup       ShotType = "Closeup Shot"
	ShotMediumCloseup ShotType = "Medium Close-up Shot"
	ShotKneesUp       ShotType = "Knees-Up Medium Wide Shot"
)

// Backend selects the credential, client and aesthetic block used for a shot.
type Backend string

const (
	BackendGemini   Backend = "gemini"
	BackendSeedream Backend = "seedream"
)

type shotSpec struct {
	Key       string
	Framing   string
	CameraLen string
	Pose      string
}

type styleSpec struct {
	Key     string
	Outfit  string
	Compare bool
}

// backendSpec.Engine is the label written into the prompt's engine line.
type backendSpec struct {
	Name       string
	Engine     string
	Credential string
	Aesthetic  []string
}

var shotOrder = []ShotType{ShotCloseup, ShotMediumCloseup, ShotKneesUp}

var styleOrder = []Style{StyleCasual, StyleFormal, StyleArtistic, StyleCustom}

var backendOrder = []Backend{BackendGemini, BackendSeedream}

var shotSpecs = map[ShotType]shotSpec{
	ShotCloseup: {
		Key:       "closeup",
		Framing:   "A classic portrait, framed from the waist up. This will capture the subject's upper body and expression.",
		CameraLen: "Emulate a shot with a 35mm lens at f/2.5. This will capture some of the surrounding environment. Despite the wider lens, keep the composition focused on the subject to reduce the feeling of overall wideness.",
		Pose:      "The person should have a natural, engaging expression, suitable for a waist-up portrait.",
	},
	ShotMediumCloseup: {
		Key:       "medium_closeup",
		Framing:   "A classic medium portrait, framed from the waist up. This is perfect for capturing the subject's upper body, expression, and their interaction with the immediate environment.",
		CameraLen: "Emulate a standard shot with a 50mm lens at f/2.2. This provides a natural field of view, similar to the human eye, capturing the subject and a portion of their surroundings without significant compression or distortion.",
		Pose:      "A natural pose where the person might be interacting with something or has their hands visible, suitable for this framing.",
	},
	ShotKneesUp: {
		Key:       "knees_up",
		Framing:   `An "American Shot," framed from mid-thigh up. This shot should capture most of the person's body and their immediate surroundings to give a strong sense of place and context.`,
		CameraLen: "Emulate a 85mm lens at f/2.4. This will provide a natural field of view, capturing the subject within the scene without distortion and with a less wide, more focused perspective.",
		Pose:      "A confident, full-body pose that fits the environment. The person should appear naturally placed and central to the composition.",
	},
}

var styleSpecs = map[Style]styleSpec{
	StyleCasual: {
		Key:     "casual",
		Compare: true,
		Outfit:  "A stylish and modern casual outfit. Think high-quality fabrics and a cohesive look. Examples: well-fitting designer jeans with a fashionable top or knit sweater, a chic jumpsuit, or a stylish casual dress with fashionable sneakers or boots. The clothing should look natural and comfortable for the scene.",
	},
	StyleFormal: {
		Key:     "formal",
		Compare: true,
		Outfit:  "An elegant and sophisticated formal outfit. Examples: a modern, tailored suit (for any gender), a chic evening gown, or a stylish cocktail dress. The materials should look luxurious (e.g., silk, satin, fine wool) and the fit should be impeccable.",
	},
	StyleArtistic: {
		Key:     "artistic",
		Compare: true,
		Outfit:  "A creative and unique artistic outfit. This style is avant-garde and expressive. Think bold patterns, unconventional silhouettes, intricate textures, or designer pieces that make a statement. The outfit should be a work of art in itself, complementing the scene in a visually striking way.",
	},
	// Custom has no built-in guide; the outfit comes from the reference image.
	StyleCustom: {
		Key: "custom",
	},
}

var backendSpecs = map[Backend]backendSpec{
	BackendGemini: {
		Name:       "Gemini",
		Engine:     "Gemini",
		Credential: "GEMINI_API_KEY",
		Aesthetic: []string{
			"Hyper-Photorealism: The final output must be indistinguishable from a high-resolution photograph taken with a professional DSLR/mirrorless camera and prime lens. Avoid any hint of being AI-generated.",
		},
	},
	BackendSeedream: {
		Name:       "Seedream",
		Engine:     "Seedream (Simulated)",
		Credential: "SEEDREAM_API_KEY",
		Aesthetic: []string{
			"Aesthetic: Emphasize a more dream-like, slightly stylized and artistic quality. Enhance colors and add a subtle, ethereal glow. Focus on creating a visually striking and imaginative composition rather than strict photorealism.",
		},
	},
}

// ShotTypes returns the shot types in catalog order.
func ShotTypes() []ShotType {
	return append([]ShotType(nil), shotOrder...)
}

// Styles returns every outfit style, Custom included.
func Styles() []Style {
	return append([]Style(nil), styleOrder...)
}

// CompareStyles returns the styles a compare batch expands to.
func CompareStyles() []Style {
	out := make([]Style, 0, len(styleOrder))
	for _, s := range styleOrder {
		if styleSpecs[s].Compare {
			out = append(out, s)
		}
	}
	return out
}

func Backends() []Backend {
	return append([]Backend(nil), backendOrder...)
}

// ShotSpec renders the framing, lens and pose lines for a shot type.
func ShotSpec(shot ShotType) string {
	spec, ok := shotSpecs[shot]
	if !ok {
		return ""
	}
	var b strings.Builder
	b.WriteString("- Framing: " + spec.Framing + "\n")
	b.WriteString("- Camera & Lens: " + spec.CameraLen + "\n")
	b.WriteString("- Pose & Expression: " + spec.Pose + "\n")
	return b.String()
}

// StyleGuide returns the built-in outfit guide; empty for Custom.
func StyleGuide(style Style) string {
	spec, ok := styleSpecs[style]
	if !ok || spec.Outfit == "" {
		return ""
	}
	return "- Outfit Details: " + spec.Outfit + "\n"
}

func (s Style) Valid() bool {
	_, ok := styleSpecs[s]
	return ok
}

func (s Style) Key() string {
	return styleSpecs[s].Key
}

func (s Style) String() string {
	return string(s)
}

func (t ShotType) Valid() bool {
	_, ok := shotSpecs[t]
	return ok
}

func (t ShotType) Key() string {
	return shotSpecs[t].Key
}

func (t ShotType) String() string {
	return string(t)
}

func (b Backend) Valid() bool {
	_, ok := backendSpecs[b]
	return ok
}

func (b Backend) DisplayName() string {
	if spec, ok := backendSpecs[b]; ok {
		return spec.Name
	}
	return string(b)
}

// CredentialEnv names the environment variable holding the backend's API key.
func (b Backend) CredentialEnv() string {
	return backendSpecs[b].Credential
}

func (b Backend) String() string {
	return string(b)
}

// ParseStyle accepts a display name or key, case-insensitively.
func ParseStyle(raw string) (Style, bool) {
	raw = normalizeToken(raw)
	for _, s := range styleOrder {
		if raw == normalizeToken(string(s)) || raw == styleSpecs[s].Key {
			return s, true
		}
	}
	return "", false
}

func ParseShotType(raw string) (ShotType, bool) {
	raw = normalizeToken(raw)
	for _, t := range shotOrder {
		if raw == normalizeToken(string(t)) || raw == shotSpecs[t].Key {
			return t, true
		}
	}
	return "", false
}

func ParseBackend(raw string) (Backend, bool) {
	raw = normalizeToken(raw)
	switch raw {
	case "primary":
		return BackendGemini, true
	case "alternative":
		return BackendSeedream, true
	}
	for _, b := range backendOrder {
		if raw == string(b) {
			return b, true
		}
	}
	return "", false
}

func normalizeToken(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	raw = strings.NewReplacer(" ", "_", "-", "_").Replace(raw)
	return raw
}
