package httpapi

import "net/http"

func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	// Pipeline
	ph := PipelineHandler{Orchestrator: d.Orchestrator, Cursor: d.Cursor}
	mux.HandleFunc("/pipeline/run", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: ph.Run,
	}))
	mux.HandleFunc("/pipeline/status", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ph.Status,
	}))
	mux.HandleFunc("/pipeline/cursor", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ph.Watermark,
	}))

	// Config
	ch := ConfigHandler{
		CfgVal:      d.CfgVal,
		UserCfgPath: d.UserCfgPath,
		LoadCfg:     d.LoadCfg,
	}
	mux.HandleFunc("/config", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Get,
		http.MethodPut: ch.Put,
	}))
	mux.HandleFunc("/config/path", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Path,
	}))

	// SSE events
	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	// Health
	hh := HealthHandler{}
	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: hh.Health,
	}))

	return mux
}
