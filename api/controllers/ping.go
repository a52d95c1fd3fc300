package controllers

import (
	"net/http"

	"github.com/outre-records/inventory-core/api/responses"
	"github.com/outre-records/inventory-core/pkg/outbox"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": "public", "status": "ok"}
		if actor := outbox.ActorID(r.Context()); actor != "" {
			payload["actor_id"] = actor
		}
		responses.WriteSuccess(w, payload)
	}
}
