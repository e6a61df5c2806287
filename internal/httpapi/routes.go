package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/BananaLabs/oss-companion/internal/party"
	"github.com/BananaLabs/oss-companion/internal/resolve"
	"github.com/BananaLabs/oss-companion/internal/scanner"
	"github.com/BananaLabs/oss-companion/internal/transport"
	"github.com/BananaLabs/oss-companion/internal/ws"
)

// SetupRoutes builds the local control API the UI talks to.
func SetupRoutes(svc *party.Service, sc *scanner.Scanner, resolver *resolve.Engine, chat transport.Chat, log *zap.SugaredLogger) http.Handler {
	api := &api{svc: svc, scanner: sc, resolver: resolver, chat: chat, log: log}

	r := chi.NewRouter()
	r.Get("/healthz", api.healthz)
	r.Get("/friends", api.listFriends)

	r.Route("/party", func(r chi.Router) {
		r.Get("/", api.getParty)
		r.Post("/request", api.submitRequest)
		r.Post("/accept", api.accept)
		r.Post("/reject", api.reject)
		r.Post("/rescan", api.rescan)
	})

	r.Route("/selections", func(r chi.Router) {
		r.Get("/", api.listSelections)
		r.Put("/", api.setSelection)
		r.Delete("/{championID}", api.clearSelection)
	})

	r.Post("/inject/{championID}", api.injectChampion)
	r.Get("/ws", ws.Handler(svc, log))
	return r
}
