package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"socratic-tutor/internal/app"
	"socratic-tutor/internal/logger"
)

// NewRouter wires health, websocket and REST routes.
func NewRouter(service *app.TutorService, log *logger.Logger) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/ws", NewWSHandler(service, log).ServeWS)
	NewRESTHandler(service, log).Register(r)
	return r
}
