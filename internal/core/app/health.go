package app

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components"`
}

type HealthService struct {
	app *App
}

func NewHealthService(app *App) *HealthService {
	return &HealthService{app: app}
}

func (s *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]string),
	}

	if s.app.Parser != nil {
		langs := s.app.Parser.Loader().Languages()
		status.Components["parser"] = fmt.Sprintf("ok (%s)", strings.Join(langs, ", "))
	} else {
		status.Status = "degraded"
		status.Components["parser"] = "missing"
	}

	switch {
	case s.app.store != nil:
		if err := s.app.store.Ping(ctx); err != nil {
			status.Status = "degraded"
			status.Components["history"] = "unreachable: " + err.Error()
		} else {
			status.Components["history"] = "ok"
		}
	case s.app.Config.DB.IsEnabled():
		status.Status = "degraded"
		status.Components["history"] = "missing but enabled in config"
	default:
		status.Components["history"] = "disabled"
	}

	res, err := s.app.Last()
	switch {
	case res == nil && err == nil:
		status.Components["last_run"] = "pending"
	case res == nil:
		status.Status = "degraded"
		status.Components["last_run"] = "failed: " + err.Error()
	case res.Partial:
		status.Components["last_run"] = fmt.Sprintf("partial (%d modules, %d cycles)", len(res.Scores), res.Cycles.Stats.TotalCycles)
	default:
		status.Components["last_run"] = fmt.Sprintf("ok (%d modules, %d cycles)", len(res.Scores), res.Cycles.Stats.TotalCycles)
	}

	return status
}
