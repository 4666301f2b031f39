package httpapi

import (
	"errors"
	"net/http"

	"gradtrack-engine/internal/cursor"
	"gradtrack-engine/internal/pipeline"
)

type PipelineHandler struct {
	Orchestrator *pipeline.Orchestrator
	Cursor       cursor.Cursor
}

// Run triggers one synchronous pipeline run. A run already in flight gets
// 409 busy; failures come back with the stage they happened in.
func (h PipelineHandler) Run(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Orchestrator.Run(r.Context())
	if err != nil {
		if errors.Is(err, pipeline.ErrBusy) {
			WriteError(w, r, http.StatusConflict, "busy", "a pipeline run is already in progress")
			return
		}
		stage := "run"
		var re *pipeline.RunError
		if errors.As(err, &re) {
			stage = re.Stage
		}
		WriteError(w, r, http.StatusInternalServerError, stage, err.Error())
		return
	}
	writeJSON(w, summary)
}

func (h PipelineHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Orchestrator.Status())
}

func (h PipelineHandler) Watermark(w http.ResponseWriter, r *http.Request) {
	mark, ok, err := h.Cursor.Read()
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "cursor", err.Error())
		return
	}
	if !ok {
		writeJSON(w, map[string]any{"watermark": nil})
		return
	}
	writeJSON(w, map[string]any{"watermark": mark.Format("2006-01-02")})
}
