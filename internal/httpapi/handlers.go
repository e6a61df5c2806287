package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/BananaLabs/oss-companion/internal/party"
	"github.com/BananaLabs/oss-companion/internal/resolve"
	"github.com/BananaLabs/oss-companion/internal/scanner"
	"github.com/BananaLabs/oss-companion/internal/transport"
	"github.com/BananaLabs/oss-companion/internal/types"
)

type api struct {
	svc      *party.Service
	scanner  *scanner.Scanner
	resolver *resolve.Engine
	chat     transport.Chat
	log      *zap.SugaredLogger
}

type friendRef struct {
	FriendID   string `json:"friendId"`
	FriendName string `json:"friendName"`
}

type selectionBody struct {
	ChampionID int     `json:"championId"`
	SkinID     int     `json:"skinId"`
	ChromaID   *int    `json:"chromaId"`
	Fantome    *string `json:"fantome"`
}

type memberView struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"`
	Availability types.Availability    `json:"availability"`
	Skins        []types.SkinSelection `json:"skins"`
	LastSeenAt   time.Time             `json:"lastSeenAt"`
}

type partyView struct {
	Version int                       `json:"version"`
	Members []memberView              `json:"members"`
	Pending *types.PendingSyncRequest `json:"pending"`
}

func (a *api) healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (a *api) getParty(w http.ResponseWriter, _ *http.Request) {
	view := a.svc.State()
	out := partyView{Version: view.Version, Pending: view.Pending, Members: make([]memberView, 0, len(view.Members))}
	for _, m := range view.Members {
		skins := make([]types.SkinSelection, 0, len(m.Skins))
		for _, sel := range m.Skins {
			skins = append(skins, sel)
		}
		out.Members = append(out.Members, memberView{
			ID:           m.ID,
			Name:         m.Name,
			Availability: m.Availability,
			Skins:        skins,
			LastSeenAt:   m.LastSeenAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *api) listFriends(w http.ResponseWriter, r *http.Request) {
	friends, err := a.chat.ListFriends(r.Context())
	if err != nil {
		a.writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, friends)
}

func (a *api) submitRequest(w http.ResponseWriter, r *http.Request) {
	var body friendRef
	if !decodeBody(w, r, &body) {
		return
	}
	if err := a.svc.SubmitRequest(body.FriendID, body.FriendName); err != nil {
		a.writeActionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) accept(w http.ResponseWriter, r *http.Request) {
	var body friendRef
	if !decodeBody(w, r, &body) {
		return
	}
	if err := a.svc.Accept(body.FriendID, body.FriendName); err != nil {
		a.writeActionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) reject(w http.ResponseWriter, r *http.Request) {
	var body friendRef
	if !decodeBody(w, r, &body) {
		return
	}
	if err := a.svc.Reject(body.FriendID); err != nil {
		a.writeActionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) rescan(w http.ResponseWriter, _ *http.Request) {
	a.scanner.Force()
	w.WriteHeader(http.StatusAccepted)
}

func (a *api) listSelections(w http.ResponseWriter, _ *http.Request) {
	view := a.svc.State()
	out := make([]types.SkinSelection, 0, len(view.Selections))
	for _, sel := range view.Selections {
		out = append(out, sel)
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *api) setSelection(w http.ResponseWriter, r *http.Request) {
	var body selectionBody
	if !decodeBody(w, r, &body) {
		return
	}
	if body.ChampionID <= 0 || body.SkinID < 0 {
		http.Error(w, "championId must be positive and skinId non-negative", http.StatusBadRequest)
		return
	}
	a.svc.SetSelection(types.SkinSelection{
		ChampionID: body.ChampionID,
		SkinID:     body.SkinID,
		ChromaID:   body.ChromaID,
		Fantome:    body.Fantome,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) clearSelection(w http.ResponseWriter, r *http.Request) {
	championID, err := strconv.Atoi(chi.URLParam(r, "championID"))
	if err != nil {
		http.Error(w, "bad champion id", http.StatusBadRequest)
		return
	}
	a.svc.ClearSelection(championID)
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) injectChampion(w http.ResponseWriter, r *http.Request) {
	championID, err := strconv.Atoi(chi.URLParam(r, "championID"))
	if err != nil {
		http.Error(w, "bad champion id", http.StatusBadRequest)
		return
	}
	if err := a.resolver.ApplyForChampion(r.Context(), championID); err != nil {
		a.writeActionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeActionError maps the error taxonomy onto HTTP statuses with messages
// the UI can show directly.
func (a *api) writeActionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, party.ErrCapacityExceeded):
		http.Error(w, "party can have a maximum of 5 members", http.StatusConflict)
	case errors.Is(err, party.ErrDuplicateMember):
		http.Error(w, "friend is already in the party", http.StatusConflict)
	case errors.Is(err, party.ErrNoPendingRequest):
		http.Error(w, "no matching pending request or party member", http.StatusNotFound)
	case errors.Is(err, transport.ErrUnavailable):
		http.Error(w, "could not reach friend; is the League client running?", http.StatusBadGateway)
	default:
		a.log.Errorw("action failed", "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
