package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"golang.org/x/sync/errgroup"
)

const healthTimeout = 3 * time.Second

// healthHandler reports the history store, host stats and gateway settings.
// Only a history store that fails its ping turns the response into a 503.
func (s *Server) healthHandler(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
	defer cancel()

	var (
		mu     sync.Mutex
		report = map[string]interface{}{
			"status": "online",
			"uptime": time.Since(s.startTime).Round(time.Second).String(),
			"gateway": map[string]interface{}{
				"model":        s.cfg.GeminiModel,
				"backend":      s.cfg.GeminiBackend,
				"timeout":      s.cfg.GeminiTimeout.String(),
				"prompt_style": string(s.cfg.PromptStyle),
				"configured":   s.cfg.GeminiAPIKey != "",
			},
		}
		historyDown bool
	)
	set := func(key string, v interface{}) {
		mu.Lock()
		report[key] = v
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)

	// 1. History store
	g.Go(func() error {
		stats := map[string]string{"driver": s.cfg.HistoryDriver, "status": "up"}
		if s.history == nil {
			stats["status"] = "disabled"
		} else if err := s.history.Ping(gctx); err != nil {
			stats["status"] = "down"
			stats["error"] = err.Error()
			mu.Lock()
			historyDown = true
			mu.Unlock()
		} else if h, ok := s.history.(interface{ Health() map[string]string }); ok {
			for k, v := range h.Health() {
				stats[k] = v
			}
		}
		set("history", stats)
		return nil
	})

	// 2. Host stats
	g.Go(func() error {
		stats, err := s.systemStats()
		if err != nil {
			set("system", map[string]string{"error": err.Error()})
			return nil
		}
		set("system", stats)
		return nil
	})

	// 3. Sessions
	g.Go(func() error {
		if s.sessions != nil {
			set("sessions", s.sessions.Registry().Len())
		}
		return nil
	})

	_ = g.Wait()

	if historyDown {
		report["status"] = "degraded"
		return c.JSON(http.StatusServiceUnavailable, report)
	}
	return c.JSON(http.StatusOK, report)
}

var errNoCPUSamples = errors.New("cpu stats: no samples")

// sampleCPU is swapped out in tests.
var sampleCPU = cpu.Percent

func collectSystemStats() (map[string]interface{}, error) {
	v, err := mem.VirtualMemory()
	if err != nil {
		return nil, fmt.Errorf("memory stats: %w", err)
	}
	// Sampling window kept short so /health stays fast.
	cpuPercent, err := sampleCPU(200*time.Millisecond, false)
	if err != nil {
		return nil, fmt.Errorf("cpu stats: %w", err)
	}
	if len(cpuPercent) == 0 {
		return nil, errNoCPUSamples
	}
	hInfo, err := host.Info()
	if err != nil {
		return nil, fmt.Errorf("host info: %w", err)
	}

	return map[string]interface{}{
		"os":                  hInfo.OS,
		"platform":            hInfo.Platform,
		"hostname":            hInfo.Hostname,
		"cpu_usage_percent":   fmt.Sprintf("%.2f%%", cpuPercent[0]),
		"memory_used_gb":      fmt.Sprintf("%.2f GB", float64(v.Used)/1024/1024/1024),
		"memory_used_percent": fmt.Sprintf("%.2f%%", v.UsedPercent),
	}, nil
}
