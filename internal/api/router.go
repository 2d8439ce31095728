// Package api composes the chi routers the way the teacher's
// SetupDataRouter/SetupUIRouter split does: one router for the
// ingestion+query surface, one for the websocket alert-sink listener.
// No dashboard or static-asset route is served — see DESIGN.md.
package api

import (
	gwebsocket "github.com/gorilla/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"net/http"

	"github.com/manufacturing-platform/telemetry-gateway/internal/ingest"
	"github.com/manufacturing-platform/telemetry-gateway/internal/query"
	"github.com/manufacturing-platform/telemetry-gateway/internal/runtime"
	"github.com/manufacturing-platform/telemetry-gateway/internal/websocket"
)

var upgrader = gwebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// SetupDataRouter composes the ingestion and query HTTP surface of
// spec.md §6.
func SetupDataRouter(rt *runtime.Runtime) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	ingestHandler := ingest.NewHandler(rt)
	queryHandler := query.NewHandler(rt)

	r.Post("/data", ingestHandler.HandleIngest)
	r.Post("/webhook/events", ingestHandler.HandleIngest)

	r.Get("/equipment", queryHandler.HandleEquipmentList)
	r.Get("/equipment/{id}", queryHandler.HandleEquipmentStatus)
	r.Get("/equipment/{id}/metrics", queryHandler.HandleHistoricalKeys)
	r.Get("/equipment/{id}/recent", queryHandler.HandleRecentReadings)

	return r
}

// SetupAlertSinkRouter composes the websocket notification-sink
// listener, repurposed from the teacher's SetupUIRouter (which served
// the dashboard and its static assets — dropped per spec.md's
// interactive-dashboards non-goal).
func SetupAlertSinkRouter(rt *runtime.Runtime) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/ws", func(w http.ResponseWriter, req *http.Request) {
		handleWebsocket(rt, w, req)
	})

	return r
}

func handleWebsocket(rt *runtime.Runtime, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		rt.Logger.Warn("websocket upgrade failed", "error", err.Error())
		return
	}

	client := websocket.NewClient(rt.Hub, conn, rt.Logger)
	rt.Hub.RegisterClient(client)

	go client.WritePump()
	go client.ReadPump()
}
