// In file: cmd/planes-chat/consumption.go
package main

import (
	"context"
	"log"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/514-labs/planes/internal/aircraft"
	"github.com/514-labs/planes/internal/api"
	"github.com/514-labs/planes/internal/tools"
)

// QueryRunner executes a tool on the endpoint.
type QueryRunner interface {
	CallTool(ctx context.Context, name string, args map[string]any) (tools.Result, error)
}

// ConsumptionHandler serves the fixed read APIs next to the chat endpoint.
type ConsumptionHandler struct {
	queries   QueryRunner
	queryTool string
}

func NewConsumptionHandler(queries QueryRunner, queryTool string) *ConsumptionHandler {
	if queryTool == "" {
		queryTool = tools.DefaultQueryTool
	}
	return &ConsumptionHandler{queries: queries, queryTool: queryTool}
}

// HandleSpeedAltitudeByType serves per-category speed and altitude statistics.
func (h *ConsumptionHandler) HandleSpeedAltitudeByType(c *gin.Context) {
	var params aircraft.SpeedAltitudeParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid query parameters", Details: err.Error()})
		return
	}
	sql, err := aircraft.SpeedAltitudeQuery(params)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid query parameters", Details: err.Error()})
		return
	}

	res, err := h.queries.CallTool(c.Request.Context(), h.queryTool, map[string]any{"sql": sql})
	if err != nil {
		log.Printf("❌ aircraftSpeedAltitudeByType failed: %v", err)
		c.JSON(http.StatusBadGateway, api.ErrorResponse{Error: "Query failed", Details: err.Error()})
		return
	}
	rows := res.Rows
	if rows == nil {
		rows = []tools.Row{}
	}
	c.JSON(http.StatusOK, rows)
}

type zorderQuery struct {
	Lat *float64 `form:"lat" binding:"required"`
	Lon *float64 `form:"lon" binding:"required"`
}

// HandleZOrder returns the spatial key the ingest pipeline stores for a position.
func (h *ConsumptionHandler) HandleZOrder(c *gin.Context) {
	var q zorderQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid query parameters", Details: "lat and lon are required numbers"})
		return
	}
	if math.IsNaN(*q.Lat) || math.IsNaN(*q.Lon) || *q.Lat < -90 || *q.Lat > 90 || *q.Lon < -180 || *q.Lon > 180 {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid query parameters", Details: "lat must be within [-90, 90] and lon within [-180, 180]"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"lat":              *q.Lat,
		"lon":              *q.Lon,
		"zorderCoordinate": aircraft.ZOrder(*q.Lat, *q.Lon),
	})
}
