package httpapi

import (
	"sync/atomic"

	"gradtrack-engine/internal/config"
	"gradtrack-engine/internal/cursor"
	"gradtrack-engine/internal/events"
	"gradtrack-engine/internal/pipeline"
)

type Deps struct {
	Orchestrator *pipeline.Orchestrator
	Cursor       cursor.Cursor

	Hub *events.Hub

	// Atomic store holding config.Config
	CfgVal *atomic.Value

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)
}
