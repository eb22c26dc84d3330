package main

import (
	"context"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/gilby125/cs509-reservation-client/reservation"
	"github.com/gilby125/cs509-reservation-client/timezone"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type toolset struct {
	conv    *timezone.Converter
	flights reservation.FlightLister
}

func (ts *toolset) register(s *server.MCPServer) {
	s.AddTool(mcp.NewTool("to_local",
		mcp.WithDescription("Convert a GMT time to an airport's local time"),
		mcp.WithString("time", mcp.Required(),
			mcp.Description("GMT time as 'yyyy MMM dd HH:mm', optionally followed by GMT (e.g., 2016 May 10 00:36 GMT)"),
		),
		mcp.WithString("airport", mcp.Required(), mcp.Description("Airport code (e.g., BOS)")),
	), ts.toLocal)

	s.AddTool(mcp.NewTool("to_gmt",
		mcp.WithDescription("Convert an airport's local time to GMT"),
		mcp.WithString("time", mcp.Required(),
			mcp.Description("Local time as 'yyyy MMM dd HH:mm' (e.g., 2016 May 09 20:36)"),
		),
		mcp.WithString("airport", mcp.Required(), mcp.Description("Airport code (e.g., BOS)")),
	), ts.toGMT)

	s.AddTool(mcp.NewTool("day_window",
		mcp.WithDescription("Show the GMT start and end of an airport's local calendar day"),
		mcp.WithString("date", mcp.Required(), mcp.Description("Local date as yyyy_MM_dd (e.g., 2016_05_09)")),
		mcp.WithString("airport", mcp.Required(), mcp.Description("Airport code (e.g., BOS)")),
	), ts.dayWindow)

	s.AddTool(mcp.NewTool("flights_on_local_day",
		mcp.WithDescription("List flights departing or arriving at an airport during its local calendar day"),
		mcp.WithString("date", mcp.Required(), mcp.Description("Local date as yyyy_MM_dd")),
		mcp.WithString("airport", mcp.Required(), mcp.Description("Airport code")),
		mcp.WithString("direction", mcp.Description("'departing' (default) or 'arriving'")),
	), ts.flightsOnLocalDay)
}

func stringArgs(request mcp.CallToolRequest, names ...string) (map[string]string, *mcp.CallToolResult) {
	argsMap, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, mcp.NewToolResultError("Invalid arguments format")
	}
	values := make(map[string]string, len(names))
	for _, name := range names {
		v, _ := argsMap[name].(string)
		values[name] = strings.TrimSpace(v)
	}
	return values, nil
}

func requireArgs(args map[string]string, names ...string) *mcp.CallToolResult {
	for _, name := range names {
		if args[name] == "" {
			return mcp.NewToolResultError(fmt.Sprintf("%s is required", name))
		}
	}
	return nil
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error marshaling response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (ts *toolset) toLocal(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, errResult := stringArgs(request, "time", "airport")
	if errResult != nil {
		return errResult, nil
	}
	if errResult := requireArgs(args, "time", "airport"); errResult != nil {
		return errResult, nil
	}
	local, err := ts.conv.ToLocal(args["time"], args["airport"])
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error converting time: %v", err)), nil
	}
	return mcp.NewToolResultText(local), nil
}

func (ts *toolset) toGMT(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, errResult := stringArgs(request, "time", "airport")
	if errResult != nil {
		return errResult, nil
	}
	if errResult := requireArgs(args, "time", "airport"); errResult != nil {
		return errResult, nil
	}
	gmt, err := ts.conv.ToGMT(args["time"], args["airport"])
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error converting time: %v", err)), nil
	}
	return mcp.NewToolResultText(gmt), nil
}

func (ts *toolset) dayWindow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, errResult := stringArgs(request, "date", "airport")
	if errResult != nil {
		return errResult, nil
	}
	if errResult := requireArgs(args, "date", "airport"); errResult != nil {
		return errResult, nil
	}

	start, end, err := ts.conv.Window(args["date"], args["airport"])
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error computing day window: %v", err)), nil
	}
	dates, err := ts.conv.WindowDates(args["date"], args["airport"])
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error computing day window: %v", err)), nil
	}

	return jsonResult(map[string]interface{}{
		"airport":   args["airport"],
		"date":      args["date"],
		"start_gmt": timezone.FromTime(start).WithZone(timezone.GMT).Format(timezone.LayoutZoned),
		"end_gmt":   timezone.FromTime(end).WithZone(timezone.GMT).Format(timezone.LayoutZoned),
		"gmt_dates": dates,
	})
}

func (ts *toolset) flightsOnLocalDay(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, errResult := stringArgs(request, "date", "airport", "direction")
	if errResult != nil {
		return errResult, nil
	}
	if errResult := requireArgs(args, "date", "airport"); errResult != nil {
		return errResult, nil
	}
	dir, ok := reservation.ParseDirection(strings.ToLower(args["direction"]))
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid direction: %s", args["direction"])), nil
	}

	flights, err := reservation.FlightsOnLocalDay(ctx, ts.flights, ts.conv, dir, args["airport"], args["date"])
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error listing flights: %v", err)), nil
	}

	type leg struct {
		Code  string `json:"code"`
		GMT   string `json:"gmt"`
		Local string `json:"local,omitempty"`
	}
	type flightInfo struct {
		Number     string  `json:"number"`
		Airplane   string  `json:"airplane"`
		Minutes    int     `json:"flight_time_minutes"`
		Departure  leg     `json:"departure"`
		Arrival    leg     `json:"arrival"`
		FirstClass float64 `json:"first_class_price"`
		Coach      float64 `json:"coach_price"`
	}
	toLeg := func(l reservation.Leg) leg {
		local, _ := ts.conv.ToLocal(l.Time, l.Code)
		return leg{Code: l.Code, GMT: l.Time, Local: local}
	}

	out := make([]flightInfo, 0, len(flights))
	for _, f := range flights {
		out = append(out, flightInfo{
			Number:     f.Number,
			Airplane:   f.Airplane,
			Minutes:    f.FlightTime,
			Departure:  toLeg(f.Departure),
			Arrival:    toLeg(f.Arrival),
			FirstClass: f.FirstClass.Price,
			Coach:      f.Coach.Price,
		})
	}
	return jsonResult(map[string]interface{}{
		"airport":   args["airport"],
		"date":      args["date"],
		"direction": dir,
		"count":     len(out),
		"flights":   out,
	})
}
