package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/Feral-Mailbox/PokeWars/catalog"
	"github.com/Feral-Mailbox/PokeWars/gameerr"
	"github.com/Feral-Mailbox/PokeWars/ledger"
	"github.com/Feral-Mailbox/PokeWars/lifecycle"
	"github.com/Feral-Mailbox/PokeWars/models"
)

// --- auth ---

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func setSessionCookie(w http.ResponseWriter, userID uint) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    strconv.FormatUint(uint64(userID), 10),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *GameServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	ident, err := s.deps.Identity.Register(req.Username, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	setSessionCookie(w, ident.ID)
	writeJSON(w, http.StatusOK, ident)
}

func (s *GameServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	ident, err := s.deps.Identity.Authenticate(req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	setSessionCookie(w, ident.ID)
	writeJSON(w, http.StatusOK, ident)
}

func (s *GameServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:   sessionCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *GameServer) handleMe(w http.ResponseWriter, r *http.Request, userID uint) {
	ident, err := s.deps.Identity.Resolve(userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ident)
}

// --- catalog ---

func (s *GameServer) handleOfficialMaps(w http.ResponseWriter, r *http.Request) {
	maps, err := s.deps.Catalog.OfficialMaps()
	if err != nil {
		writeError(w, err)
		return
	}
	details := make([]*models.MapDetail, 0, len(maps))
	for i := range maps {
		details = append(details, catalog.DetailOf(&maps[i]))
	}
	writeJSON(w, http.StatusOK, details)
}

func (s *GameServer) handleUnitSummaries(w http.ResponseWriter, r *http.Request) {
	units, err := s.deps.Catalog.Units()
	if err != nil {
		writeError(w, err)
		return
	}
	summaries := make([]models.UnitSummary, 0, len(units))
	for i := range units {
		summaries = append(summaries, catalog.SummaryOf(&units[i]))
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *GameServer) handleMoves(w http.ResponseWriter, r *http.Request) {
	moves, err := s.deps.Catalog.Moves()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, moves)
}

func (s *GameServer) handleAbilities(w http.ResponseWriter, r *http.Request) {
	abilities, err := s.deps.Catalog.Abilities()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, abilities)
}

// --- sessions ---

func (s *GameServer) handleCreateGame(w http.ResponseWriter, r *http.Request, userID uint) {
	var req lifecycle.CreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	rec, err := s.deps.Engine.Create(userID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Sessions.View(rec))
}

const openGamesLimit = 10

func (s *GameServer) handleOpenGames(w http.ResponseWriter, r *http.Request, userID uint) {
	recs, err := s.deps.Engine.List(models.StatusOpen, 0)
	if err != nil {
		writeError(w, err)
		return
	}

	public := recs[:0]
	for _, rec := range recs {
		if !rec.Game.IsPrivate {
			public = append(public, rec)
		}
		if len(public) == openGamesLimit {
			break
		}
	}
	writeJSON(w, http.StatusOK, s.deps.Sessions.Views(public))
}

func (s *GameServer) handleListGames(w http.ResponseWriter, r *http.Request, userID uint) {
	status := models.GameStatus(r.URL.Query().Get("status"))
	switch status {
	case "", models.StatusOpen, models.StatusClosed, models.StatusPreparation,
		models.StatusInProgress, models.StatusCompleted:
	default:
		writeError(w, fmt.Errorf("%w: unknown status %q", gameerr.ErrValidation, status))
		return
	}

	recs, err := s.deps.Engine.List(status, 50)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Sessions.Views(recs))
}

func (s *GameServer) handleGetGame(w http.ResponseWriter, r *http.Request, userID uint) {
	rec, err := s.deps.Engine.Get(r.PathValue("link"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Sessions.View(rec))
}

func (s *GameServer) handleJoinGame(w http.ResponseWriter, r *http.Request, userID uint) {
	rec, err := s.deps.Engine.Join(r.PathValue("link"), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Sessions.View(rec))
}

func (s *GameServer) handleStartGame(w http.ResponseWriter, r *http.Request, userID uint) {
	status, err := s.deps.Engine.Start(r.PathValue("link"), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": status})
}

func (s *GameServer) handleToggleReady(w http.ResponseWriter, r *http.Request, userID uint) {
	ready, err := s.deps.Engine.ToggleReady(r.PathValue("link"), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"is_ready": ready})
}

func (s *GameServer) handlePatchState(w http.ResponseWriter, r *http.Request, userID uint) {
	var body map[string]any
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	patch, err := lifecycle.PatchFromMap(body)
	if err != nil {
		writeError(w, err)
		return
	}

	rec, err := s.deps.Engine.PatchState(r.PathValue("link"), userID, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Sessions.View(rec))
}

// --- units ---

func (s *GameServer) handlePlaceUnit(w http.ResponseWriter, r *http.Request, userID uint) {
	var req ledger.PlaceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	view, err := s.deps.Ledger.Place(r.PathValue("link"), userID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *GameServer) handleRemoveUnit(w http.ResponseWriter, r *http.Request, userID uint) {
	unitID, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, fmt.Errorf("%w: unit id must be numeric", gameerr.ErrValidation))
		return
	}

	if err := s.deps.Ledger.Remove(r.PathValue("link"), userID, uint(unitID)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
