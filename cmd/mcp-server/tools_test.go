package main

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilby125/cs509-reservation-client/reservation"
	"github.com/gilby125/cs509-reservation-client/timezone"
)

type stubFlights map[string][]reservation.Flight

func (s stubFlights) Flights(_ context.Context, _ reservation.Direction, _ string, day string) ([]reservation.Flight, error) {
	return s[day], nil
}

func newTestToolset(t *testing.T) *toolset {
	t.Helper()
	zones := timezone.NewOffsetCache("")
	require.NoError(t, zones.Put(timezone.ZoneEntry{Code: "BOS", GMTOffset: -14400, Abbreviation: "EDT"}))
	return &toolset{
		conv: timezone.NewConverter(zones),
		flights: stubFlights{
			"2016_05_09": {{
				Number:    "2848",
				Departure: reservation.Leg{Code: "BOS", Time: "2016 May 09 12:00 GMT"},
				Arrival:   reservation.Leg{Code: "DEN", Time: "2016 May 09 15:00 GMT"},
			}},
		},
	}
}

func call(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	content, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return content.Text
}

func TestToLocalAndToGMT(t *testing.T) {
	ts := newTestToolset(t)
	ctx := context.Background()

	result, err := ts.toLocal(ctx, call(map[string]interface{}{"time": "2016 May 10 00:36 GMT", "airport": "BOS"}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "2016 May 09 20:36 EDT", text(t, result))

	result, err = ts.toGMT(ctx, call(map[string]interface{}{"time": "2016 May 09 20:36", "airport": "BOS"}))
	require.NoError(t, err)
	assert.Equal(t, "2016 May 10 00:36 GMT", text(t, result))
}

func TestToolErrors(t *testing.T) {
	ts := newTestToolset(t)
	ctx := context.Background()

	result, err := ts.toLocal(ctx, call(map[string]interface{}{"airport": "BOS"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = ts.toGMT(ctx, call(map[string]interface{}{"time": "2016 May 09 20:36", "airport": "XXX"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, text(t, result), "unknown airport")

	var bad mcp.CallToolRequest
	bad.Params.Arguments = "not a map"
	result, err = ts.dayWindow(ctx, bad)
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = ts.flightsOnLocalDay(ctx, call(map[string]interface{}{"date": "2016_05_09", "airport": "BOS", "direction": "up"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestDayWindowTool(t *testing.T) {
	ts := newTestToolset(t)

	result, err := ts.dayWindow(context.Background(), call(map[string]interface{}{"date": "2016_05_09", "airport": "BOS"}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text(t, result)), &got))
	assert.Equal(t, "2016 May 09 04:00 GMT", got["start_gmt"])
	assert.Equal(t, "2016 May 10 03:59 GMT", got["end_gmt"])
}

func TestFlightsOnLocalDayTool(t *testing.T) {
	ts := newTestToolset(t)

	result, err := ts.flightsOnLocalDay(context.Background(), call(map[string]interface{}{"date": "2016_05_09", "airport": "BOS"}))
	require.NoError(t, err)
	require.False(t, result.IsError, text(t, result))

	var got struct {
		Count   int `json:"count"`
		Flights []struct {
			Number    string `json:"number"`
			Departure struct {
				Local string `json:"local"`
			} `json:"departure"`
		} `json:"flights"`
	}
	require.NoError(t, json.Unmarshal([]byte(text(t, result)), &got))
	require.Equal(t, 1, got.Count)
	assert.Equal(t, "2848", got.Flights[0].Number)
	assert.Equal(t, "2016 May 09 08:00 EDT", got.Flights[0].Departure.Local)
}

func TestRegister(t *testing.T) {
	s := server.NewMCPServer("test", "0.0.0")
	assert.NotPanics(t, func() { newTestToolset(t).register(s) })
}
