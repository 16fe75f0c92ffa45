package photoshoot

import "strings"

// Request is one unit of work: a single shot type rendered in a single style.
// Build it with NewRequest or WorkList; it is not mutated afterwards.
type Request struct {
	Portrait Image
	Scene    Image
	Outfit   *Image
	Style    Style
	ShotType ShotType
	Backend  Backend
}

// Input is what the caller supplies for a whole batch.
type Input struct {
	Portrait Image
	Scene    Image
	Outfit   *Image
	Backend  Backend
}

// Mode is either a single chosen style or a compare-all run.
type Mode struct {
	Style   Style
	Compare bool
}

func SingleStyle(style Style) Mode {
	return Mode{Style: style}
}

func CompareAll() Mode {
	return Mode{Compare: true}
}

// Styles resolves the mode into the ordered list of styles to render.
func (m Mode) Styles() []Style {
	if m.Compare {
		return CompareStyles()
	}
	return []Style{m.Style}
}

func (m Mode) String() string {
	if m.Compare {
		return "compare"
	}
	return string(m.Style)
}

// ParseMode accepts "compare"/"all" or a style name.
func ParseMode(raw string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "compare", "all", "compare_all", "compare-all":
		return CompareAll(), true
	}
	style, ok := ParseStyle(raw)
	if !ok {
		return Mode{}, false
	}
	return SingleStyle(style), true
}

// NewRequest validates and builds a request. An outfit reference is only kept
// for the Custom style.
func NewRequest(in Input, style Style, shot ShotType) (Request, error) {
	req := Request{
		Portrait: in.Portrait,
		Scene:    in.Scene,
		Style:    style,
		ShotType: shot,
		Backend:  in.Backend,
	}
	if style == StyleCustom && in.Outfit != nil {
		outfit := *in.Outfit
		req.Outfit = &outfit
	}
	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}

func (r Request) Validate() error {
	switch {
	case r.Portrait.Empty():
		return invalidf("portrait image is required")
	case r.Scene.Empty():
		return invalidf("scene image is required")
	case !r.Style.Valid():
		return invalidf("unknown outfit style %q", r.Style)
	case !r.ShotType.Valid():
		return invalidf("unknown shot type %q", r.ShotType)
	case !r.Backend.Valid():
		return invalidf("unknown backend %q", r.Backend)
	case r.Style == StyleCustom && (r.Outfit == nil || r.Outfit.Empty()):
		return invalidf("custom style requires an outfit reference image")
	case r.Style != StyleCustom && r.Outfit != nil:
		return invalidf("outfit reference is only allowed for the custom style")
	}
	return nil
}

func (r Request) HasCustomOutfit() bool {
	return r.Style == StyleCustom && r.Outfit != nil && !r.Outfit.Empty()
}

// Images returns the image payload in the order the prompt numbers them:
// scene, portrait, then the outfit for Custom.
func (r Request) Images() []Image {
	images := []Image{r.Scene, r.Portrait}
	if r.HasCustomOutfit() {
		images = append(images, *r.Outfit)
	}
	return images
}

func (r Request) Prompt() string {
	return BuildPrompt(r.Style, r.ShotType, r.Backend, r.HasCustomOutfit())
}

// WorkList expands a batch into requests, style-major and shot-type-minor.
// Every request is validated before the list is returned.
func WorkList(in Input, mode Mode) ([]Request, error) {
	styles := mode.Styles()
	shots := ShotTypes()

	out := make([]Request, 0, len(styles)*len(shots))
	for _, style := range styles {
		for _, shot := range shots {
			req, err := NewRequest(in, style, shot)
			if err != nil {
				return nil, err
			}
			out = append(out, req)
		}
	}
	return out, nil
}
