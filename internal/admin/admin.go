/*
Package admin serves the operational dashboard: host metrics, database
pool health, provider credential state and generation statistics.
*/
package admin

import (
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"golang.org/x/sync/errgroup"

	"fitforge/internal/database"
	"fitforge/internal/llmservice"
)

var (
	queries   *database.Queries
	dbService database.Service
	getenv    = os.Getenv
	StartTime = time.Now()
)

// InitAdminPackage is called by the server package before routing starts.
func InitAdminPackage(db database.Service) {
	dbService = db
	queries = db.Queries()
	log.Info().Msg("Admin package initialized.")
}

type systemMetrics struct {
	cpuPercent float64
	cpuCores   uint64
	memory     *mem.VirtualMemoryStat
	diskRoot   *disk.UsageStat
	hostInfo   *host.InfoStat
}

// gatherSystemMetrics collects host stats concurrently. The CPU sample
// alone takes a full second, so the other probes run alongside it.
func gatherSystemMetrics() systemMetrics {
	var (
		mu sync.Mutex
		m  systemMetrics
		g  errgroup.Group
	)

	g.Go(func() error {
		percents, err := cpu.Percent(time.Second, false)
		if err != nil || len(percents) == 0 {
			return nil
		}
		mu.Lock()
		m.cpuPercent = percents[0]
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		v, err := mem.VirtualMemory()
		if err != nil {
			return nil
		}
		mu.Lock()
		m.memory = v
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		d, err := disk.Usage("/")
		if err != nil {
			return nil
		}
		mu.Lock()
		m.diskRoot = d
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		h, err := host.Info()
		if err != nil {
			return nil
		}
		mu.Lock()
		m.hostInfo = h
		mu.Unlock()
		return nil
	})

	g.Wait()
	if m.hostInfo != nil {
		m.cpuCores = m.hostInfo.Procs
	}
	return m
}

// providerStatus reports which fallback providers hold a credential. The
// key itself is never exposed.
func providerStatus() []map[string]interface{} {
	providers := llmservice.DefaultProviders()
	status := make([]map[string]interface{}, 0, len(providers))
	for _, p := range providers {
		status = append(status, map[string]interface{}{
			"provider":   p.Provider,
			"model":      p.Model,
			"label":      p.Label,
			"configured": getenv(p.CredentialEnv) != "",
		})
	}
	return status
}

// GetSystemStatusHandler handles GET /admin/system.
func GetSystemStatusHandler(c echo.Context) error {
	ctx := c.Request().Context()

	m := gatherSystemMetrics()

	planStats, err := queries.GetPlanStats(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load plan stats for dashboard")
	}

	payload := map[string]interface{}{
		"status": "online",
		"runtime": map[string]interface{}{
			"uptime":     time.Since(StartTime).String(),
			"start_time": StartTime.Format(time.RFC3339),
		},
		"database":  dbService.Health(),
		"providers": providerStatus(),
		"plans":     planStats,
	}

	if m.hostInfo != nil {
		payload["host"] = map[string]interface{}{
			"os":       m.hostInfo.OS,
			"platform": m.hostInfo.Platform,
			"arch":     m.hostInfo.KernelArch,
			"hostname": m.hostInfo.Hostname,
		}
	}
	payload["cpu"] = map[string]interface{}{
		"usage_percent": fmt.Sprintf("%.2f%%", m.cpuPercent),
		"cores":         m.cpuCores,
	}
	if m.memory != nil {
		payload["memory"] = map[string]interface{}{
			"total_gb":     fmt.Sprintf("%.2f GB", float64(m.memory.Total)/1024/1024/1024),
			"used_gb":      fmt.Sprintf("%.2f GB", float64(m.memory.Used)/1024/1024/1024),
			"used_percent": fmt.Sprintf("%.2f%%", m.memory.UsedPercent),
			"free_gb":      fmt.Sprintf("%.2f GB", float64(m.memory.Free)/1024/1024/1024),
		}
	}
	if m.diskRoot != nil {
		payload["disk"] = map[string]interface{}{
			"total_gb":     fmt.Sprintf("%.2f GB", float64(m.diskRoot.Total)/1024/1024/1024),
			"used_gb":      fmt.Sprintf("%.2f GB", float64(m.diskRoot.Used)/1024/1024/1024),
			"used_percent": fmt.Sprintf("%.2f%%", m.diskRoot.UsedPercent),
		}
	}

	return c.JSON(http.StatusOK, payload)
}
