package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"
)

// Health reports ok when every configured dependency check passes.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(a.Checks))
	for name := range a.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	failed := map[string]string{}
	for _, name := range names {
		if err := a.Checks[name](ctx); err != nil {
			a.Logger.Warn().Err(err).Str("check", name).Msg("health check failed")
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		a.json(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "failed": failed})
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}
