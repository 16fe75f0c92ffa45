package api

import (
	"context"
	"net/http"
	"strings"

	"ai-dslr-studio/internal/photoshoot"
)

type styleInfo struct {
	Name    string `json:"name"`
	Key     string `json:"key"`
	Compare bool   `json:"compare"`
}

type shotTypeInfo struct {
	Name string `json:"name"`
	Key  string `json:"key"`
}

type backendInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Credential string `json:"credential"`
	Configured bool   `json:"configured"`
}

type catalogResponse struct {
	Styles    []styleInfo    `json:"styles"`
	ShotTypes []shotTypeInfo `json:"shotTypes"`
	Backends  []backendInfo  `json:"backends"`
}

// photoshootRequest carries images as data URLs. Style is ignored when
// Compare is set.
type photoshootRequest struct {
	Portrait string `json:"portrait"`
	Scene    string `json:"scene"`
	Outfit   string `json:"outfit,omitempty"`
	Style    string `json:"style,omitempty"`
	Compare  bool   `json:"compare,omitempty"`
	Backend  string `json:"backend,omitempty"`
}

type photoshootResponse struct {
	Shots []photoshoot.Shot `json:"shots"`
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	compare := make(map[photoshoot.Style]bool)
	for _, style := range photoshoot.CompareStyles() {
		compare[style] = true
	}

	var resp catalogResponse
	for _, style := range photoshoot.Styles() {
		resp.Styles = append(resp.Styles, styleInfo{Name: string(style), Key: style.Key(), Compare: compare[style]})
	}
	for _, shot := range photoshoot.ShotTypes() {
		resp.ShotTypes = append(resp.ShotTypes, shotTypeInfo{Name: string(shot), Key: shot.Key()})
	}
	for _, backend := range photoshoot.Backends() {
		resp.Backends = append(resp.Backends, backendInfo{
			ID:         string(backend),
			Name:       backend.DisplayName(),
			Credential: backend.CredentialEnv(),
			Configured: s.backends == nil || s.backends.Check(backend) == nil,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePhotoshoot(w http.ResponseWriter, r *http.Request) {
	var req photoshootRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid request body", Kind: string(photoshoot.KindInvalid)})
		return
	}

	in, mode, err := req.toInput()
	if err != nil {
		s.writeError(w, err)
		return
	}

	if s.backends != nil {
		if err := s.backends.Check(in.Backend); err != nil {
			s.writeError(w, err)
			return
		}
	}

	ctx := r.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	shots, err := s.gen.Generate(ctx, in, mode)
	if err != nil {
		s.logger.Error("photoshoot failed", "mode", mode.String(), "backend", string(in.Backend), "kind", photoshoot.KindOf(err), "err", err)
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, photoshootResponse{Shots: shots})
}

func (req photoshootRequest) toInput() (photoshoot.Input, photoshoot.Mode, error) {
	var in photoshoot.Input

	portrait, err := decodeImage("portrait", req.Portrait)
	if err != nil {
		return in, photoshoot.Mode{}, err
	}
	scene, err := decodeImage("scene", req.Scene)
	if err != nil {
		return in, photoshoot.Mode{}, err
	}
	in.Portrait, in.Scene = portrait, scene

	if strings.TrimSpace(req.Outfit) != "" {
		outfit, err := decodeImage("outfit", req.Outfit)
		if err != nil {
			return in, photoshoot.Mode{}, err
		}
		in.Outfit = &outfit
	}

	in.Backend = photoshoot.BackendGemini
	if strings.TrimSpace(req.Backend) != "" {
		backend, ok := photoshoot.ParseBackend(req.Backend)
		if !ok {
			return in, photoshoot.Mode{}, invalidf("unknown backend %q", req.Backend)
		}
		in.Backend = backend
	}

	if req.Compare {
		return in, photoshoot.CompareAll(), nil
	}
	if strings.TrimSpace(req.Style) == "" {
		return in, photoshoot.Mode{}, invalidf("style is required unless compare is set")
	}
	style, ok := photoshoot.ParseStyle(req.Style)
	if !ok {
		return in, photoshoot.Mode{}, invalidf("unknown outfit style %q", req.Style)
	}
	return in, photoshoot.SingleStyle(style), nil
}

func decodeImage(field, value string) (photoshoot.Image, error) {
	if strings.TrimSpace(value) == "" {
		return photoshoot.Image{}, invalidf("%s image is required", field)
	}
	img, err := photoshoot.ParseDataURL(value)
	if err != nil {
		return photoshoot.Image{}, invalidf("%s image: %v", field, err)
	}
	return img, nil
}
