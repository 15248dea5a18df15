package controllers

import (
	"net/http"

	"github.com/angelmondragon/parcelhub-backend/api/responses"
	"github.com/angelmondragon/parcelhub-backend/internal/orders"
	"github.com/angelmondragon/parcelhub-backend/pkg/logger"
)

type realtimeServer interface {
	Serve(w http.ResponseWriter, r *http.Request, actor orders.Actor) error
}

// RealtimeSocket hands an authenticated request to the websocket server. A failed upgrade
// has already been answered by the upgrader.
func RealtimeSocket(server realtimeServer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if server == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("realtime"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := server.Serve(w, r, actor); err != nil && logg != nil {
			logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "realtime.upgrade_failed")
		}
	}
}
