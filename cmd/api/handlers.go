package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/therealutkarshpriyadarshi/shortforge/internal/cache"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/database"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/logging"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/middleware"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/provider"
	"github.com/therealutkarshpriyadarshi/shortforge/pkg/models"
)

const (
	maxTopicLength = 500
	maxListLimit   = 200
)

// Records is the read side of the record store
type Records interface {
	List(ctx context.Context, limit int) ([]models.PipelineRecord, error)
	Get(ctx context.Context, id string) (*models.PipelineRecord, error)
	GetByRunID(ctx context.Context, runID string) (*models.PipelineRecord, error)
	Health(ctx context.Context) error
}

// Publisher enqueues run requests
type Publisher interface {
	Publish(ctx context.Context, req models.RunRequest) error
}

// StatusStore tracks the state of queued runs
type StatusStore interface {
	SetRunStatus(ctx context.Context, status cache.RunStatus, ttl time.Duration) error
	GetRunStatus(ctx context.Context, runID string) (*cache.RunStatus, error)
	Ping(ctx context.Context) error
}

type API struct {
	records   Records
	queue     Publisher
	status    StatusStore // optional
	registry  *provider.Registry
	statusTTL time.Duration
	logger    *logging.Logger
}

func setupRouter(api *API, auth *middleware.Authenticator, limiter *middleware.RateLimiter, logger *logging.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.Logger(logger))

	router.GET("/health", api.healthCheck)

	v1 := router.Group("/api")
	{
		v1.POST("/runs", auth.JWTAuth(), middleware.RateLimit(limiter), api.createRun)
		v1.GET("/runs", api.listRuns)
		v1.GET("/runs/:id", api.getRun)
		v1.GET("/providers", api.listProviders)
	}

	return router
}

// Health check endpoint
func (api *API) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := api.records.Health(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	resp := gin.H{"status": "healthy"}
	if api.status != nil {
		if err := api.status.Ping(ctx); err != nil {
			resp["redis"] = err.Error()
		} else {
			resp["redis"] = "ok"
		}
	}
	c.JSON(http.StatusOK, resp)
}

type createRunRequest struct {
	Category string `json:"category"`
	Topic    string `json:"topic"`
}

// Create run endpoint
func (api *API) createRun(c *gin.Context) {
	var req createRunRequest
	// An empty body asks for a run with all defaults
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	req.Topic = strings.TrimSpace(req.Topic)
	if len(req.Topic) > maxTopicLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "topic is too long"})
		return
	}

	run := models.RunRequest{
		ID:          uuid.New().String(),
		Category:    strings.TrimSpace(req.Category),
		Topic:       req.Topic,
		RequestedAt: time.Now().UTC(),
	}

	if err := api.queue.Publish(c.Request.Context(), run); err != nil {
		api.logger.WithRunID(run.ID).WithError(err).Error("Failed to queue run")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to queue run"})
		return
	}

	if api.status != nil {
		status := cache.RunStatus{RunID: run.ID, State: cache.RunQueued}
		if err := api.status.SetRunStatus(c.Request.Context(), status, api.statusTTL); err != nil {
			api.logger.WithRunID(run.ID).WithError(err).Warn("Failed to record queued status")
		}
	}

	if subject, ok := middleware.GetSubject(c); ok {
		api.logger.WithRunID(run.ID).WithField("subject", subject).Info("Run queued")
	}

	c.JSON(http.StatusAccepted, run)
}

// List runs endpoint
func (api *API) listRuns(c *gin.Context) {
	limit := database.DefaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		if n > maxListLimit {
			n = maxListLimit
		}
		limit = n
	}

	records, err := api.records.List(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if records == nil {
		records = []models.PipelineRecord{}
	}

	c.JSON(http.StatusOK, gin.H{
		"records": records,
		"limit":   limit,
	})
}

// Get run endpoint. The id is either a queued run id or a record id.
func (api *API) getRun(c *gin.Context) {
	id := c.Param("id")

	var status *cache.RunStatus
	if api.status != nil {
		s, err := api.status.GetRunStatus(c.Request.Context(), id)
		if err != nil {
			api.logger.WithRunID(id).WithError(err).Warn("Failed to read run status")
		}
		status = s
	}

	recordID := id
	if status != nil && status.RecordID != "" {
		recordID = status.RecordID
	}

	record, err := api.records.Get(c.Request.Context(), recordID)
	if errors.Is(err, database.ErrNotFound) {
		// id may be a run id whose redis status expired or was never written
		record, err = api.records.GetByRunID(c.Request.Context(), id)
	}
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": status, "record": record})
	case errors.Is(err, database.ErrNotFound):
		if status == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": status})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// List providers endpoint
func (api *API) listProviders(c *gin.Context) {
	out := make(map[string][]string, len(provider.Categories))
	for _, category := range provider.Categories {
		names := api.registry.Names(category)
		if names == nil {
			names = []string{}
		}
		out[string(category)] = names
	}
	c.JSON(http.StatusOK, gin.H{"providers": out})
}
