package handlers

import (
	"context"
	"net/http"
	"time"

	"price-monitor/internal/utils"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// Health reports 200 while the database answers, 503 otherwise.
func Health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			_ = utils.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "down", "error": err.Error()})
			return
		}
		_ = utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
