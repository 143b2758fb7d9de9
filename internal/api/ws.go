package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"interview/internal/models"
	"interview/internal/signal"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// RoomWS is the signaling endpoint. Access requires a room token minted by
// GetInterviewByRoom; the interview's status is re-checked here so a room
// whose interview has since completed or been cancelled cannot be joined.
func (h *Handlers) RoomWS(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")

	claims, err := h.tokens.ParseRoomToken(r.URL.Query().Get("token"))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid room token")
		return
	}
	if claims.RoomID != roomID {
		writeError(w, http.StatusForbidden, "access_denied", "token not valid for this room")
		return
	}

	actor := models.User{ID: claims.UserID, Name: claims.UserName, Role: claims.Role}
	iv, err := h.lifecycle.GetByRoom(r.Context(), actor, roomID)
	if err != nil {
		writeLifecycleError(w, err)
		return
	}
	if iv.Status.Terminal() {
		writeError(w, http.StatusConflict, "room_closed", "interview is no longer joinable")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	client := signal.NewClient(conn, claims.UserID, claims.UserName)
	defer h.registry.Leave(client)

	joined := false
	for {
		var frame models.WSFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}

		switch frame.Type {
		case "join-room":
			var join models.JoinRoom
			unmarshal(frame.Data, &join)
			if join.RoomID != "" && join.RoomID != roomID {
				client.Send(errFrame("room_mismatch"))
				continue
			}
			// Identity comes from the token; join fields are advisory only.
			users := h.registry.Join(roomID, client)
			client.Send(models.WSFrame{Type: "room-users", Data: users})
			h.registry.Announce(client)
			joined = true
			log.Info().Str("roomId", roomID).Str("userId", client.UserID).
				Str("connectionId", client.ID).Msg("participant joined room")

		case "offer", "answer", "ice-candidate":
			if !joined {
				client.Send(errFrame("not_joined"))
				continue
			}
			var sig models.Signal
			unmarshal(frame.Data, &sig)
			if sig.Target == "" {
				client.Send(errFrame("missing_target"))
				continue
			}
			// Target gone is not an error: the sender renegotiates.
			h.registry.Relay(roomID, sig.Target, frame.Type, client, sig.Payload)

		case "chat-message":
			if !joined {
				client.Send(errFrame("not_joined"))
				continue
			}
			var chat models.ChatMessage
			unmarshal(frame.Data, &chat)
			if chat.Message == "" {
				continue
			}
			h.registry.Chat(roomID, client, chat.Message)

		default:
			client.Send(errFrame("unknown_type"))
		}
	}
}

func unmarshal(in any, out any) { b, _ := json.Marshal(in); _ = json.Unmarshal(b, out) }

func errFrame(msg string) models.WSFrame { return models.WSFrame{Type: "error", Data: msg} }
