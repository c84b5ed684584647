package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/lutivix/financeiro/internal/database"
	"github.com/lutivix/financeiro/internal/pipeline"
	"github.com/lutivix/financeiro/internal/store"
)

// Handlers serves the read-only API endpoints.
type Handlers struct {
	log      zerolog.Logger
	db       *database.DB
	txRepo   *store.TransactionRepository
	pipeline *pipeline.Pipeline
}

func NewHandlers(log zerolog.Logger, db *database.DB, txRepo *store.TransactionRepository, p *pipeline.Pipeline) *Handlers {
	return &Handlers{
		log:      log.With().Str("component", "handlers").Logger(),
		db:       db,
		txRepo:   txRepo,
		pipeline: p,
	}
}

// HandleHealth responds to liveness probes.
// GET /health
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if err := h.db.HealthCheck(r.Context()); err != nil {
		h.log.Error().Err(err).Msg("Database health check failed")
		status = "degraded"
	}
	h.writeJSON(w, map[string]string{"status": status})
}

// HandleSystemStatus reports process and store health.
// GET /api/system
func (h *Handlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuAvg, ramPercent := h.getSystemStats()

	resp := map[string]interface{}{
		"cpu_percent":  cpuAvg,
		"ram_percent":  ramPercent,
		"transactions": h.txRepo.Count(),
	}
	if stats, err := h.db.GetStats(); err == nil {
		resp["database"] = stats
	} else {
		h.log.Warn().Err(err).Msg("Failed to read database stats")
	}
	if h.pipeline != nil {
		resp["pipeline_state"] = string(h.pipeline.State())
	}
	h.writeJSON(w, resp)
}

// HandleTransactions lists transactions in a date range.
// GET /api/transactions?start=2025-10-01&end=2025-10-31
func (h *Handlers) HandleTransactions(w http.ResponseWriter, r *http.Request) {
	start, err := parseDateParam(r, "start")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	end, err := parseDateParam(r, "end")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if end.Before(start) {
		http.Error(w, "end before start", http.StatusBadRequest)
		return
	}

	txs := h.txRepo.QueryRange(start, end)
	h.writeJSON(w, map[string]interface{}{
		"count":        len(txs),
		"transactions": txs,
	})
}

// HandleSummary returns per-category totals for one billing month.
// GET /api/summary?month=Outubro+2025
func (h *Handlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	if month == "" {
		http.Error(w, "missing month parameter", http.StatusBadRequest)
		return
	}

	h.writeJSON(w, map[string]interface{}{
		"month":  month,
		"totals": h.txRepo.CategoryTotals(month),
	})
}

// HandleMonths lists the billing months present in the store.
// GET /api/months
func (h *Handlers) HandleMonths(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]interface{}{
		"months": h.txRepo.MonthRefs(),
	})
}

func parseDateParam(r *http.Request, name string) (time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return time.Time{}, &paramError{name: name, reason: "missing"}
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, &paramError{name: name, reason: "expected YYYY-MM-DD"}
	}
	return t, nil
}

type paramError struct {
	name   string
	reason string
}

func (e *paramError) Error() string {
	return "parameter " + e.name + ": " + e.reason
}

// getSystemStats calculates CPU and RAM usage percentages. A short sample
// interval keeps the endpoint responsive.
func (h *Handlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}
	return cpuAvg, memStat.UsedPercent
}

func (h *Handlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
