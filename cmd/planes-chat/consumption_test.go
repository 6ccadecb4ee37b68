package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/514-labs/planes/internal/aircraft"
	"github.com/514-labs/planes/internal/mock"
	"github.com/514-labs/planes/internal/tools"
)

func TestHandleSpeedAltitudeByType(t *testing.T) {
	t.Parallel()

	t.Run("runs the built query", func(t *testing.T) {
		t.Parallel()
		var gotSQL string
		queries := &mock.ToolGateway{CallToolFn: func(ctx context.Context, name string, args map[string]any) (tools.Result, error) {
			assert.Equal(t, tools.DefaultQueryTool, name)
			gotSQL, _ = args["sql"].(string)
			return tools.Result{Rows: []tools.Row{{"aircraft_category": "A3", "total_records": 120.0}}}, nil
		}}
		w := do(t, newTestRouter(neverRun(t), nil, nil, queries), http.MethodGet,
			"/consumption/aircraftSpeedAltitudeByType?category=A3&min_altitude=1000", "")
		require.Equal(t, http.StatusOK, w.Code)

		want, err := aircraft.SpeedAltitudeQuery(aircraft.SpeedAltitudeParams{Category: "A3", MinAltitude: f(1000)})
		require.NoError(t, err)
		assert.Equal(t, want, gotSQL)
		assert.JSONEq(t, `[{"aircraft_category":"A3","total_records":120}]`, w.Body.String())
	})

	t.Run("returns an empty list for text results", func(t *testing.T) {
		t.Parallel()
		queries := &mock.ToolGateway{CallToolFn: func(ctx context.Context, name string, args map[string]any) (tools.Result, error) {
			return tools.Result{Text: "no rows"}, nil
		}}
		w := do(t, newTestRouter(neverRun(t), nil, nil, queries), http.MethodGet, "/consumption/aircraftSpeedAltitudeByType", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
	})

	t.Run("rejects bad parameters", func(t *testing.T) {
		t.Parallel()
		for _, query := range []string{"category=A3'--", "min_altitude=high", "min_speed=500&max_speed=100"} {
			w := do(t, newTestRouter(neverRun(t), nil, nil, nil), http.MethodGet, "/consumption/aircraftSpeedAltitudeByType?"+query, "")
			assert.Equal(t, http.StatusBadRequest, w.Code, query)
		}
	})

	t.Run("maps gateway failures to 502", func(t *testing.T) {
		t.Parallel()
		queries := &mock.ToolGateway{CallToolFn: func(ctx context.Context, name string, args map[string]any) (tools.Result, error) {
			return tools.Result{}, &tools.InvocationError{Tool: name, Err: errors.New("connection refused")}
		}}
		w := do(t, newTestRouter(neverRun(t), nil, nil, queries), http.MethodGet, "/consumption/aircraftSpeedAltitudeByType", "")
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Contains(t, w.Body.String(), "connection refused")
	})
}

func TestHandleZOrder(t *testing.T) {
	t.Parallel()

	w := do(t, newTestRouter(neverRun(t), nil, nil, nil), http.MethodGet, "/consumption/zorder?lat=0&lon=0", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Lat   float64 `json:"lat"`
		Lon   float64 `json:"lon"`
		Coord uint64  `json:"zorderCoordinate"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, aircraft.ZOrder(0, 0), body.Coord)

	for _, query := range []string{"", "lat=1", "lat=x&lon=1", "lat=91&lon=0", "lat=0&lon=-181", "lat=NaN&lon=0"} {
		w := do(t, newTestRouter(neverRun(t), nil, nil, nil), http.MethodGet, "/consumption/zorder?"+query, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}
}

func f(v float64) *float64 { return &v }
