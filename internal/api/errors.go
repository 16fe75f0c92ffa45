package api

import (
	"errors"
	"fmt"
	"net/http"

	"ai-dslr-studio/internal/photoshoot"
	"ai-dslr-studio/internal/portfolio"
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", photoshoot.ErrInvalidRequest, fmt.Sprintf(format, args...))
}

func statusFor(kind photoshoot.ErrorKind) int {
	switch kind {
	case photoshoot.KindInvalid:
		return http.StatusBadRequest
	case photoshoot.KindConfiguration:
		return http.StatusServiceUnavailable
	case photoshoot.KindRefused:
		return http.StatusUnprocessableEntity
	case photoshoot.KindBackend:
		return http.StatusBadGateway
	case photoshoot.KindCanceled:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, portfolio.ErrInvalidShot) {
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error(), Kind: string(photoshoot.KindInvalid)})
		return
	}

	kind := photoshoot.KindOf(err)
	msg := err.Error()
	if kind == photoshoot.KindUnknown {
		msg = "internal error"
	}
	writeJSON(w, statusFor(kind), apiError{Error: msg, Kind: string(kind)})
}
