package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"ai-dslr-studio/internal/photoshoot"
)

type portfolioResponse struct {
	Owner string            `json:"owner"`
	Shots []photoshoot.Shot `json:"shots"`
}

type saveResponse struct {
	Added bool `json:"added"`
}

func (s *Server) handleListPortfolio(w http.ResponseWriter, r *http.Request) {
	owner := mux.Vars(r)["owner"]

	shots, err := s.portfolio.List(r.Context(), owner)
	if err != nil {
		s.logger.Error("portfolio list failed", "owner", owner, "err", err)
		s.writeError(w, err)
		return
	}
	if shots == nil {
		shots = []photoshoot.Shot{}
	}
	writeJSON(w, http.StatusOK, portfolioResponse{Owner: owner, Shots: shots})
}

// handleSaveShot answers 201 for a new entry and 200 when the ID was already
// saved; the stored entry is left as it was.
func (s *Server) handleSaveShot(w http.ResponseWriter, r *http.Request) {
	owner := mux.Vars(r)["owner"]

	var shot photoshoot.Shot
	if err := decodeJSON(w, r, &shot); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid request body", Kind: string(photoshoot.KindInvalid)})
		return
	}

	added, err := s.portfolio.Add(r.Context(), owner, shot)
	if err != nil {
		s.logger.Error("portfolio save failed", "owner", owner, "shot_id", shot.ID, "err", err)
		s.writeError(w, err)
		return
	}

	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	writeJSON(w, status, saveResponse{Added: added})
}

func (s *Server) handleRemoveShot(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	owner, id := vars["owner"], vars["id"]

	removed, err := s.portfolio.Remove(r.Context(), owner, id)
	if err != nil {
		s.logger.Error("portfolio remove failed", "owner", owner, "shot_id", id, "err", err)
		s.writeError(w, err)
		return
	}
	if !removed {
		writeJSON(w, http.StatusNotFound, apiError{Error: "shot not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
