package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"storyreel/internal/render"
)

const defaultEventPollInterval = 2 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Events streams poll results over a websocket until every tracked job is
// terminal or the client disconnects. Each frame is one PollResult.
func (a *App) Events(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, _, err := a.Sessions.Get(r.Context(), id); err != nil {
		a.serviceError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.Logger.Warn().Err(err).Str("session_id", id).Msg("http: websocket upgrade failed")
		return
	}
	defer conn.Close()

	// The read pump only exists to notice the client going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	interval := a.EventPollInterval
	if interval <= 0 {
		interval = defaultEventPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		result, err := a.Sessions.Status(r.Context(), id)
		if err != nil {
			_ = conn.WriteJSON(map[string]string{"error": err.Error()})
			return
		}
		if err := conn.WriteJSON(result); err != nil {
			return
		}
		if allTerminal(result) {
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "all jobs terminal"))
			return
		}
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func allTerminal(result render.PollResult) bool {
	if len(result.Items) == 0 {
		return false
	}
	for _, item := range result.Items {
		if !item.Status.Terminal() {
			return false
		}
	}
	return true
}
