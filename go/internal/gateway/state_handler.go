package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mcdev12/jeopardy/go/internal/game"
	"github.com/rs/zerolog/log"
)

// RoomSummary is one loaded room in GET /api/rooms.
type RoomSummary struct {
	RoomID      string         `json:"room_id"`
	EpNum       string         `json:"ep_num,omitempty"`
	Round       game.Round     `json:"round"`
	Phase       game.Phase     `json:"phase"`
	Scoring     string         `json:"scoring"`
	Connections int            `json:"connections"`
	Scores      map[string]int `json:"scores"`
}

// StateHandler serves read-only room state over HTTP.
type StateHandler struct {
	registry *game.Registry
	cm       *ConnectionManager
}

func NewStateHandler(registry *game.Registry, cm *ConnectionManager) *StateHandler {
	return &StateHandler{registry: registry, cm: cm}
}

func (h *StateHandler) summaries() []RoomSummary {
	stats := h.cm.GetConnectionStats()
	rooms := h.registry.Rooms()
	out := make([]RoomSummary, 0, len(rooms))
	for _, id := range rooms {
		s, ok := h.registry.Lookup(id)
		if !ok {
			continue
		}
		st := s.State()
		out = append(out, RoomSummary{
			RoomID:      id,
			EpNum:       st.EpNum,
			Round:       st.Round,
			Phase:       st.Phase,
			Scoring:     string(st.Scoring),
			Connections: stats.RoomConnections[id],
			Scores:      st.Scores,
		})
	}
	return out
}

// HandleListRooms handles GET /api/rooms
func (h *StateHandler) HandleListRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.summaries())
}

// HandleGetRoomState handles GET /api/rooms/{roomID}/state
func (h *StateHandler) HandleGetRoomState(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	s, ok := h.registry.Lookup(roomID)
	if !ok {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, s.State())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
