// Command evserver exposes a read-only HTTP introspection surface over a
// running evdispatch.Dispatcher, built on chi. It never triggers anything on
// the dispatcher it serves; it only reports the names of its events and, for
// one event, its name and source. Bindings are not reported.
package main

import (
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GoCodeAlone/evdispatch"
)

type registry struct {
	disp *evdispatch.Dispatcher
}

func newDemoRegistry() *registry {
	disp, err := evdispatch.NewDispatcher("evserver-demo", evdispatch.WithLogger(evdispatch.NewSlogLogger(nil)))
	if err != nil {
		panic(err)
	}
	if _, err := disp.CreateEvent("startup"); err != nil {
		panic(err)
	}
	if _, err := disp.CreateEvent("heartbeat"); err != nil {
		panic(err)
	}
	return &registry{disp: disp}
}

func (r *registry) events(w http.ResponseWriter, req *http.Request) {
	names := []string{"startup", "heartbeat"}
	writeJSON(w, names)
}

func (r *registry) eventInfo(w http.ResponseWriter, req *http.Request) {
	name := chi.URLParam(req, "event")
	evt := r.disp.GetEvent(name)
	if evt == nil {
		http.NotFound(w, req)
		return
	}
	writeJSON(w, map[string]any{
		"name":   evt.GetName(),
		"source": evt.GetSource(),
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newRouter(r *registry) chi.Router {
	router := chi.NewRouter()
	router.Get("/dispatchers/demo/events", r.events)
	router.Get("/dispatchers/demo/events/{event}", r.eventInfo)
	return router
}

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	flag.Parse()

	r := newDemoRegistry()
	slog.Info("evserver listening", "addr", *addr)
	if err := http.ListenAndServe(*addr, newRouter(r)); err != nil {
		slog.Error("evserver exited", "error", err)
	}
}
