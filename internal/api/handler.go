package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/hazard-monitor/internal/alerting"
	"github.com/mr1hm/hazard-monitor/internal/engine"
	"github.com/mr1hm/hazard-monitor/internal/ingestion"
	"github.com/mr1hm/hazard-monitor/internal/models"
	"github.com/mr1hm/hazard-monitor/internal/repository"
	"github.com/mr1hm/hazard-monitor/internal/stream"
)

type Engine interface {
	RunContinuousSignalCycle(ctx context.Context) (engine.CycleReport, error)
	RunPointEventCycle(ctx context.Context) (engine.CycleReport, error)
	EvaluateLocation(ctx context.Context, loc models.Location, weather *models.WeatherReading, quake *models.Quake) (alerting.Report, error)
	SimulateQuake(ctx context.Context, lat, lon, magnitude float64, place string) (models.Quake, []engine.SimulationResult, error)
	Feed() *engine.FeedSnapshot
}

type Store interface {
	Ping(ctx context.Context) error
	GetLocation(ctx context.Context, id int64) (*models.Location, error)
	ActiveAlerts(ctx context.Context, locationID int64) ([]models.Alert, error)
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
}

type Handler struct {
	engine      Engine
	store       Store
	broadcaster *stream.Broadcaster
	logger      *slog.Logger
}

func NewHandler(eng Engine, store Store, broadcaster *stream.Broadcaster, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		engine:      eng,
		store:       store,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)
	r.GET("/ready", h.ready)

	api := r.Group("/api")
	api.POST("/cycles/:loop", h.runCycle)
	api.POST("/simulate/earthquake", h.simulateQuake)
	api.POST("/locations/:id/evaluate", h.evaluateLocation)
	api.GET("/locations/:id/alerts", h.activeAlerts)
	api.GET("/feed", h.feed)
	api.GET("/alerts/stream", h.streamAlerts)
	api.GET("/settings/:key", h.getSetting)
	api.PUT("/settings/:key", h.putSetting)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) ready(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func cycleStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ingestion.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) runCycle(c *gin.Context) {
	var (
		report engine.CycleReport
		err    error
	)
	switch loop := c.Param("loop"); loop {
	case engine.LoopWeather:
		report, err = h.engine.RunContinuousSignalCycle(c.Request.Context())
	case engine.LoopSeismic:
		report, err = h.engine.RunPointEventCycle(c.Request.Context())
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown loop " + loop})
		return
	}

	body := gin.H{"report": report}
	if err != nil {
		body["error"] = err.Error()
	}
	c.JSON(cycleStatus(err), body)
}

type simulateRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" binding:"required,gte=-180,lte=180"`
	Magnitude *float64 `json:"magnitude" binding:"required,gte=0,lte=10"`
	Place     string   `json:"place"`
}

type simulatedLocation struct {
	LocationID int64   `json:"location_id"`
	Name       string  `json:"name"`
	DistanceKm float64 `json:"distance_km"`
	Opened     int     `json:"alerts_opened"`
	Duplicates int     `json:"duplicates"`
}

func (h *Handler) simulateQuake(c *gin.Context) {
	var req simulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	place := req.Place
	if place == "" {
		place = "simulated event"
	}

	q, results, err := h.engine.SimulateQuake(c.Request.Context(), *req.Latitude, *req.Longitude, *req.Magnitude, place)

	locs := make([]simulatedLocation, 0, len(results))
	for _, r := range results {
		locs = append(locs, simulatedLocation{
			LocationID: r.Location.ID,
			Name:       r.Location.Name,
			DistanceKm: r.DistanceKm,
			Opened:     len(r.Report.Opened),
			Duplicates: r.Report.Duplicates,
		})
	}

	body := gin.H{"event_id": q.ID, "locations": locs}
	status := http.StatusOK
	if err != nil {
		h.logger.Error("simulation failed", "event_id", q.ID, "error", err)
		body["error"] = err.Error()
		status = http.StatusInternalServerError
	}
	c.JSON(status, body)
}

type evaluateRequest struct {
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
	RainSum     *float64 `json:"rain_sum"`
	WindSpeed   *float64 `json:"wind_speed"`
	AQI         *float64 `json:"aqi"`
}

// reading returns nil when no value was supplied, which leaves continuous
// alerts untouched.
func (r evaluateRequest) reading() *models.WeatherReading {
	if r.Temperature == nil && r.Humidity == nil && r.RainSum == nil && r.WindSpeed == nil && r.AQI == nil {
		return nil
	}
	return &models.WeatherReading{
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
		RainSum:     r.RainSum,
		WindSpeed:   r.WindSpeed,
		AQI:         r.AQI,
	}
}

func (h *Handler) location(c *gin.Context) (*models.Location, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid location id"})
		return nil, false
	}
	loc, err := h.store.GetLocation(c.Request.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "location not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load location"})
		return nil, false
	}
	return loc, true
}

func (h *Handler) evaluateLocation(c *gin.Context) {
	loc, ok := h.location(c)
	if !ok {
		return
	}

	var req evaluateRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	report, err := h.engine.EvaluateLocation(c.Request.Context(), *loc, req.reading(), nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	opened := make([]models.Alert, 0, len(report.Opened))
	for _, o := range report.Opened {
		opened = append(opened, o.Alert)
	}
	c.JSON(http.StatusOK, gin.H{
		"opened":  opened,
		"cleared": report.Cleared,
	})
}

func (h *Handler) activeAlerts(c *gin.Context) {
	loc, ok := h.location(c)
	if !ok {
		return
	}
	alerts, err := h.store.ActiveAlerts(c.Request.Context(), loc.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch alerts"})
		return
	}
	if alerts == nil {
		alerts = []models.Alert{}
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

func (h *Handler) feed(c *gin.Context) {
	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, toGeoJSON(h.engine.Feed()))
}

func (h *Handler) streamAlerts(c *gin.Context) {
	if h.broadcaster == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "alert stream disabled"})
		return
	}

	id, events := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(id)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.SSEvent(string(ev.Kind), ev)
			c.Writer.Flush()
		}
	}
}

func (h *Handler) getSetting(c *gin.Context) {
	key := c.Param("key")
	if !models.IsKnownSetting(key) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown setting " + key})
		return
	}
	val, ok, err := h.store.GetSetting(c.Request.Context(), key)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read setting"})
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"key": key, "value": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "value": val})
}

type settingRequest struct {
	Value string `json:"value" binding:"required"`
}

func (h *Handler) putSetting(c *gin.Context) {
	key := c.Param("key")
	if !models.IsKnownSetting(key) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown setting " + key})
		return
	}
	var req settingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	val, err := models.NormalizeSetting(key, req.Value)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.store.SetSetting(c.Request.Context(), key, val); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save setting"})
		return
	}
	h.logger.Info("setting updated", "key", key, "value", val)
	c.JSON(http.StatusOK, gin.H{"key": key, "value": val})
}
