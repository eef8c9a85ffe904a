package routes

import (
	"net/http"

	"github.com/Dosada05/game-orchestrator/handlers"
	"github.com/Dosada05/game-orchestrator/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func SetupRoutes(
	router *chi.Mux,
	auth *middleware.ServiceAuth,
	gameHandler *handlers.GameHandler,
	tournamentHandler *handlers.TournamentHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Mutating routes are called by sibling services and carry the shared
	// service token.
	router.Group(func(r chi.Router) {
		r.Use(auth.Authenticate)

		r.Post("/games", gameHandler.CreateGame)
		r.Post("/games/{gameID}/abort", gameHandler.AbortGame)

		r.Post("/tournaments", tournamentHandler.CreateTournament)
		r.Delete("/tournaments/{tournamentID}", tournamentHandler.DeleteTournament)
		r.Post("/tournaments/{tournamentID}/abort", tournamentHandler.AbortTournament)
		r.Post("/tournaments/{tournamentID}/special", tournamentHandler.SpecialConnection)
	})

	router.Get("/games/{gameID}", gameHandler.GetGame)
	router.Get("/tournaments/{tournamentID}", tournamentHandler.GetTournament)

	// Websocket joins are authenticated upstream by the gateway.
	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeRoom)
	router.Get("/ws/tournaments/{tournamentID}/admin/{adminID}", webSocketHandler.ServeAdmin)
}
