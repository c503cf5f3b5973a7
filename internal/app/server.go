package app

import (
	"net/http"

	"github.com/gorilla/mux"

	"message-gateway/internal/handlers"
	"message-gateway/internal/server"
)

// Handler builds the status router
func (app *App) Handler() http.Handler {
	h := handlers.New(app, app.Logger, Version)

	router := mux.NewRouter()
	SetupRoutes(router, h, app.Gatherer, app.Logger)
	return router
}

// NewServer creates the status server on the configured port
func (app *App) NewServer() *server.Server {
	return server.New(app.Handler(), app.Config.Port, "", "", app.Logger)
}
