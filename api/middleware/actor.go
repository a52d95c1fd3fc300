package middleware

import (
	"net/http"

	"github.com/outre-records/inventory-core/api/validators"
	"github.com/outre-records/inventory-core/pkg/logger"
	"github.com/outre-records/inventory-core/pkg/outbox"
)

const (
	actorHeader    = "X-Actor-Id"
	actorSourceAPI = "api"
	maxActorLength = 128
)

// Actor trusts the X-Actor-Id header set by the gateway in front of the API and
// stamps it on the request context so ledger rows and emitted events record
// who issued the command.
func Actor(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actorID := validators.SanitizeString(r.Header.Get(actorHeader), maxActorLength)
			if actorID == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := outbox.WithActor(r.Context(), actorID, actorSourceAPI)
			if logg != nil {
				ctx = logg.WithActorID(ctx, actorID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
