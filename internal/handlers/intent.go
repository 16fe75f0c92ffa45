package handlers

import (
	"strings"
	"unicode"

	"ai-dslr-studio/internal/photoshoot"
)

// shootArgs is what a /shoot command or a photo caption asks for.
type shootArgs struct {
	Mode    *photoshoot.Mode
	Backend *photoshoot.Backend
	Unknown []string
}

// parseShootArgs reads free-text tokens such as "formal seedream" or
// "compare". Later tokens win over earlier ones.
func parseShootArgs(text string) shootArgs {
	var out shootArgs

	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == ';'
	})
	for _, field := range fields {
		field = strings.TrimLeft(field, "-#/")
		if field == "" {
			continue
		}
		if key, value, ok := strings.Cut(field, "="); ok {
			field = value
			if key != "style" && key != "backend" && key != "mode" && key != "engine" {
				out.Unknown = append(out.Unknown, key)
				continue
			}
		}

		if mode, ok := photoshoot.ParseMode(field); ok {
			out.Mode = &mode
			continue
		}
		if backend, ok := photoshoot.ParseBackend(field); ok {
			out.Backend = &backend
			continue
		}
		out.Unknown = append(out.Unknown, field)
	}
	return out
}

func (a shootArgs) empty() bool {
	return a.Mode == nil && a.Backend == nil
}
