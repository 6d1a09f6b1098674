package apihttp

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"alphadesk/internal/logger"
	"alphadesk/internal/portfolio"
	"alphadesk/internal/runner"
	"alphadesk/internal/store/decisionlog"
	"alphadesk/internal/store/gormstore"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Router exposes the desk query and control endpoints.
type Router struct {
	decisions *decisionlog.Store
	state     *portfolio.State
	backtests *gormstore.Store
	cycles    *runner.Runner
}

func NewRouter(decisions *decisionlog.Store, state *portfolio.State, backtests *gormstore.Store, cycles *runner.Runner) *Router {
	return &Router{decisions: decisions, state: state, backtests: backtests, cycles: cycles}
}

func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/decisions", r.handleDecisions)
	group.GET("/positions", r.handlePositions)
	group.GET("/results", r.handleResults)
	group.GET("/backtest/runs", r.handleBacktestRuns)
	group.GET("/backtest/runs/:id", r.handleBacktestRunDetail)
	group.POST("/cycle", r.handleCycleTrigger)
}

func (r *Router) handleDecisions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	q := decisionlog.Query{
		Ticker: strings.TrimSpace(c.Query("ticker")),
		Action: strings.ToLower(strings.TrimSpace(c.Query("action"))),
		Limit:  limit,
		Offset: offset,
	}
	entries, err := r.decisions.List(c.Request.Context(), q)
	if err != nil {
		logger.Errorf("[api] decisions list failed ip=%s err=%v", c.ClientIP(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"decisions": entries,
		"limit":     limit,
		"offset":    offset,
	})
}

func (r *Router) handlePositions(c *gin.Context) {
	snapshot := r.state.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"cash":           snapshot.Cash,
		"positions":      snapshot.Positions,
		"cost_basis":     snapshot.CostBasis,
		"realized_gains": snapshot.RealizedGains,
		"total_value":    snapshot.TotalValue(),
	})
}

// handleResults returns recent decisions that actually reached the broker,
// i.e. the ones carrying an execution result.
func (r *Router) handleResults(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}
	entries, err := r.decisions.List(c.Request.Context(), decisionlog.Query{
		Ticker: strings.TrimSpace(c.Query("ticker")),
		Limit:  limit,
	})
	if err != nil {
		logger.Errorf("[api] results list failed ip=%s err=%v", c.ClientIP(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	results := make([]decisionlog.Entry, 0, len(entries))
	for _, entry := range entries {
		if entry.Execution != nil {
			results = append(results, entry)
		}
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (r *Router) handleBacktestRuns(c *gin.Context) {
	if r.backtests == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "backtest store not enabled"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 {
		limit = 20
	}
	runs, err := r.backtests.ListRuns(c.Request.Context(), limit)
	if err != nil {
		logger.Errorf("[api] backtest runs list failed ip=%s err=%v", c.ClientIP(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (r *Router) handleBacktestRunDetail(c *gin.Context) {
	if r.backtests == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "backtest store not enabled"})
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "run id is required"})
		return
	}
	ctx := c.Request.Context()
	run, err := r.backtests.GetRun(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
			return
		}
		logger.Errorf("[api] backtest run detail failed ip=%s id=%s err=%v", c.ClientIP(), id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	records, err := r.backtests.ListRecords(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	signals, err := r.backtests.ListSignals(ctx, id, strings.TrimSpace(c.Query("ticker")))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"run":     run,
		"records": records,
		"signals": signals,
	})
}

func (r *Router) handleCycleTrigger(c *gin.Context) {
	if r.cycles == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "cycle runner not enabled"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Minute)
	defer cancel()
	result, err := r.cycles.RunCycle(ctx)
	if err != nil {
		logger.Errorf("[api] manual cycle failed ip=%s err=%v", c.ClientIP(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	logger.Infof("[api] manual cycle ip=%s decisions=%d", c.ClientIP(), len(result.Decisions))
	c.JSON(http.StatusOK, result)
}
