package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quickfind/go-fuzzy-engine/config"
	"github.com/quickfind/go-fuzzy-engine/internal/engine"
	internalerrors "github.com/quickfind/go-fuzzy-engine/internal/errors"
	"github.com/quickfind/go-fuzzy-engine/model"
	"github.com/quickfind/go-fuzzy-engine/services"
)

// API holds dependencies for API handlers, primarily the worktree manager.
type API struct {
	engine services.Manager
}

// NewAPI creates a new API handler structure.
func NewAPI(engine services.Manager) *API {
	return &API{engine: engine}
}

// SetupRoutes defines all the API routes for the fuzzy finder service.
func SetupRoutes(router *gin.Engine, engine services.Manager) {
	apiHandler := NewAPI(engine)

	// Health check route
	router.GET("/health", apiHandler.HealthCheckHandler)

	// Usage statistics route
	router.GET("/stats", apiHandler.GetStatsHandler)

	// Job management routes
	jobRoutes := router.Group("/jobs")
	{
		jobRoutes.GET("/:jobId", apiHandler.GetJobHandler)         // Get job status by ID
		jobRoutes.GET("/metrics", apiHandler.GetJobMetricsHandler) // Get job performance metrics
	}

	// Worktree management routes
	worktreeRoutes := router.Group("/worktrees")
	{
		worktreeRoutes.POST("", apiHandler.AddWorktreeHandler)                            // Register a directory tree and start scanning it
		worktreeRoutes.GET("", apiHandler.ListWorktreesHandler)                           // List all worktrees
		worktreeRoutes.GET("/:worktreeName", apiHandler.GetWorktreeHandler)               // Get worktree settings
		worktreeRoutes.GET("/:worktreeName/stats", apiHandler.GetWorktreeStatsHandler)    // Get worktree index counts
		worktreeRoutes.DELETE("/:worktreeName", apiHandler.DeleteWorktreeHandler)         // Delete a worktree
		worktreeRoutes.PATCH("/:worktreeName/settings", apiHandler.UpdateSettingsHandler) // Update worktree settings
		worktreeRoutes.POST("/:worktreeName/rescan", apiHandler.RescanWorktreeHandler)    // Force a rescan
		worktreeRoutes.GET("/:worktreeName/jobs", apiHandler.ListJobsHandler)             // List jobs for a worktree
		worktreeRoutes.POST("/:worktreeName/opened", apiHandler.RecordOpenedHandler)      // Mark a path as recently opened
	}

	// Search across worktrees
	router.POST("/search", apiHandler.SearchHandler)
}

// AddWorktreeHandler handles the request to register a new worktree.
// Request Body: config.WorktreeSettings
func (api *API) AddWorktreeHandler(c *gin.Context) {
	var settings config.WorktreeSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		SendInvalidJSONError(c, err)
		return
	}

	settings.ApplyDefaults()
	if problems := settings.Validate(); len(problems) > 0 {
		SendValidationError(c, problems)
		return
	}

	jobID, err := api.engine.AddWorktree(settings)
	if err != nil {
		if errors.Is(err, internalerrors.ErrWorktreeAlreadyExists) {
			SendWorktreeExistsError(c, settings.Name)
			return
		}
		if errors.Is(err, internalerrors.ErrInvalidInput) {
			SendError(c, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
			return
		}
		SendInternalError(c, "worktree creation", err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":  "accepted",
		"message": "Scan started for worktree '" + settings.Name + "'",
		"job_id":  jobID,
	})
}

// ListWorktreesHandler lists the names of all registered worktrees.
func (api *API) ListWorktreesHandler(c *gin.Context) {
	names := api.engine.ListWorktrees()
	c.JSON(http.StatusOK, gin.H{"worktrees": names, "count": len(names)})
}

// GetWorktreeHandler retrieves the settings of a specific worktree.
func (api *API) GetWorktreeHandler(c *gin.Context) {
	worktreeName := c.Param("worktreeName")
	settings, err := api.engine.GetWorktreeSettings(worktreeName)
	if err != nil {
		SendWorktreeNotFoundError(c, worktreeName)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// GetWorktreeStatsHandler returns index counts for a specific worktree
func (api *API) GetWorktreeStatsHandler(c *gin.Context) {
	worktreeName := c.Param("worktreeName")

	if concreteEngine, ok := api.engine.(*engine.Engine); ok {
		stats, err := concreteEngine.GetWorktreeStats(worktreeName)
		if err != nil {
			SendWorktreeNotFoundError(c, worktreeName)
			return
		}
		c.JSON(http.StatusOK, stats)
	} else {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "Worktree stats not supported by this engine"})
	}
}

// DeleteWorktreeHandler handles deleting a worktree and its persisted data.
func (api *API) DeleteWorktreeHandler(c *gin.Context) {
	worktreeName := c.Param("worktreeName")

	jobID, err := api.engine.DeleteWorktree(worktreeName)
	if err != nil {
		if errors.Is(err, internalerrors.ErrWorktreeNotFound) {
			SendWorktreeNotFoundError(c, worktreeName)
			return
		}
		SendJobExecutionError(c, "worktree deletion", err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":  "accepted",
		"message": "Deletion started for worktree '" + worktreeName + "'",
		"job_id":  jobID,
	})
}

// UpdateSettingsHandler handles updating worktree settings. Any accepted
// change triggers a rescan so the indexed paths reflect the new configuration.
func (api *API) UpdateSettingsHandler(c *gin.Context) {
	worktreeName := c.Param("worktreeName")

	settings, err := api.engine.GetWorktreeSettings(worktreeName)
	if err != nil {
		SendWorktreeNotFoundError(c, worktreeName)
		return
	}

	// Read raw request first to check for key presence, so absent keys keep
	// their current values instead of being zeroed.
	rawRequest := make(map[string]interface{})
	if err := c.ShouldBindJSON(&rawRequest); err != nil {
		SendInvalidJSONError(c, err)
		return
	}

	if _, keyExists := rawRequest["name"]; keyExists {
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidRequest,
			"Worktree name cannot be changed; delete and re-add instead")
		return
	}
	if _, keyExists := rawRequest["root_path"]; keyExists {
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidRequest,
			"Worktree root path cannot be changed; delete and re-add instead")
		return
	}

	updated := false

	if value, keyExists := rawRequest["include_hidden"]; keyExists {
		if b, isBool := value.(bool); isBool {
			settings.IncludeHidden = b
			updated = true
		}
	}

	if value, keyExists := rawRequest["watch_changes"]; keyExists {
		if b, isBool := value.(bool); isBool {
			settings.WatchChanges = b
			updated = true
		}
	}

	if value, keyExists := rawRequest["exclude_dirs"]; keyExists {
		if value == nil {
			settings.ExcludeDirs = []string{}
			updated = true
		} else if valueSlice, isSlice := value.([]interface{}); isSlice {
			stringSlice := make([]string, 0, len(valueSlice))
			for _, v := range valueSlice {
				if str, isStr := v.(string); isStr {
					stringSlice = append(stringSlice, str)
				}
			}
			settings.ExcludeDirs = stringSlice
			updated = true
		}
	}

	if value, keyExists := rawRequest["max_recents"]; keyExists {
		if num, isNum := value.(float64); isNum {
			settings.MaxRecents = int(num)
			updated = true
		}
	}

	if !updated {
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidRequest,
			"No updatable settings provided")
		return
	}

	if problems := settings.Validate(); len(problems) > 0 {
		SendValidationError(c, problems)
		return
	}

	jobID, err := api.engine.UpdateWorktreeSettings(worktreeName, settings)
	if err != nil {
		if errors.Is(err, internalerrors.ErrWorktreeNotFound) {
			SendWorktreeNotFoundError(c, worktreeName)
			return
		}
		if errors.Is(err, internalerrors.ErrInvalidInput) {
			SendError(c, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
			return
		}
		SendInternalError(c, "settings update", err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":   "accepted",
		"message":  "Settings updated for worktree '" + worktreeName + "', rescan started",
		"job_id":   jobID,
		"settings": settings,
	})
}

// RescanWorktreeHandler forces a rescan of a worktree's directory tree.
func (api *API) RescanWorktreeHandler(c *gin.Context) {
	worktreeName := c.Param("worktreeName")

	jobID, err := api.engine.RescanWorktree(worktreeName)
	if err != nil {
		if errors.Is(err, internalerrors.ErrWorktreeNotFound) {
			SendWorktreeNotFoundError(c, worktreeName)
			return
		}
		SendJobExecutionError(c, "rescan", err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":  "accepted",
		"message": "Rescan started for worktree '" + worktreeName + "'",
		"job_id":  jobID,
	})
}

// ListJobsHandler handles requests to list jobs for a worktree
func (api *API) ListJobsHandler(c *gin.Context) {
	worktreeName := c.Param("worktreeName")
	statusParam := c.Query("status")

	var statusFilter *model.JobStatus
	if statusParam != "" {
		status := model.JobStatus(statusParam)
		statusFilter = &status
	}

	jobs := api.engine.ListJobs(worktreeName, statusFilter)
	c.JSON(http.StatusOK, gin.H{
		"jobs":          jobs,
		"worktree_name": worktreeName,
		"total":         len(jobs),
	})
}

// GetJobHandler handles requests to get job status by ID
func (api *API) GetJobHandler(c *gin.Context) {
	jobID := c.Param("jobId")

	job, err := api.engine.GetJob(jobID)
	if err != nil {
		SendJobNotFoundError(c, jobID)
		return
	}

	c.JSON(http.StatusOK, job)
}

// GetJobMetricsHandler handles requests to get job performance metrics
func (api *API) GetJobMetricsHandler(c *gin.Context) {
	if engineWithMetrics, ok := api.engine.(*engine.Engine); ok {
		metrics := engineWithMetrics.GetJobMetrics()

		response := gin.H{
			"metrics":          metrics,
			"success_rate":     engineWithMetrics.GetJobSuccessRate(),
			"current_workload": engineWithMetrics.GetCurrentWorkload(),
		}

		c.JSON(http.StatusOK, response)
	} else {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "Job metrics not supported by this engine"})
	}
}

// GetStatsHandler returns aggregate usage statistics for the engine.
func (api *API) GetStatsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, api.engine.Stats())
}

// HealthCheckHandler handles health check requests
func (api *API) HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "go-fuzzy-engine",
		"timestamp": fmt.Sprintf("%d", time.Now().Unix()),
	})
}
