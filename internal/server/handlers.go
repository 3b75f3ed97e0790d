package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ironsheep/image-stats-mcp/internal/imaging"
	"github.com/ironsheep/image-stats-mcp/internal/metrics"
	"github.com/ironsheep/image-stats-mcp/internal/statistics"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_statistics").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Errors caused by the arguments (bad names, regions, control values) return
// code -32602; any other failure returns -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)

	metrics.ObserveToolCall(toolLabel(params.Name), err)
	metrics.SetCacheEntries(s.cache.Stats().Entries)

	if err != nil {
		s.debugf("tool %s failed: %v", params.Name, err)
		if isInvalidArguments(err) {
			return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
		}
		return s.errorResponse(req.ID, codeToolFailed, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "image_load":
		return s.handleImageLoad(args)
	case "image_statistics":
		return s.handleImageStatistics(ctx, args)
	case "image_region_statistics":
		return s.handleImageRegionStatistics(ctx, args)
	case "image_compare_statistics":
		return s.handleImageCompareStatistics(ctx, args)
	case "statistics_properties":
		return s.handleStatisticsProperties()
	default:
		return nil, fmt.Errorf("%w: unknown tool: %s", errInvalidArguments, name)
	}
}

// toolLabel bounds the metric label set to the known tools.
func toolLabel(name string) string {
	for _, t := range GetToolDefinitions() {
		if t.Name == name {
			return name
		}
	}
	return "unknown"
}

func isInvalidArguments(err error) bool {
	return errors.Is(err, errInvalidArguments) ||
		errors.Is(err, statistics.ErrInvalidRequest) ||
		errors.Is(err, statistics.ErrInvalidParameter)
}

// decodeArgs unmarshals tool arguments; missing arguments decode as {}.
func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("%w: %w", errInvalidArguments, err)
	}
	return nil
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	e := &MCPError{
		Code:    code,
		Message: message,
	}
	if data != "" {
		e.Data = data
	}
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   e,
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, fmt.Errorf("%w: path is required", errInvalidArguments)
	}
	return s.Info(a.Path)
}

func (s *Server) handleImageStatistics(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a StatisticsRequest
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	// Whole-image tool: region arguments belong to image_region_statistics.
	a.Region = nil
	a.Quadrant = ""
	return s.Statistics(ctx, a)
}

func (s *Server) handleImageRegionStatistics(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a StatisticsRequest
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Region == nil && a.Quadrant == "" {
		return nil, fmt.Errorf("%w: region or quadrant is required", errInvalidArguments)
	}
	return s.Statistics(ctx, a)
}

func (s *Server) handleImageCompareStatistics(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a CompareRequest
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if (a.Region1 == nil && a.Quadrant1 == "") || (a.Region2 == nil && a.Quadrant2 == "") {
		return nil, fmt.Errorf("%w: region1/quadrant1 and region2/quadrant2 are required", errInvalidArguments)
	}
	return s.Compare(ctx, a)
}

// PropertyInfo describes one statistic name.
type PropertyInfo struct {
	Name     string `json:"name"`
	HasError bool   `json:"has_error"`
	Modifier bool   `json:"modifier,omitempty"`
	Default  bool   `json:"default,omitempty"`
}

// PropertiesResponse lists everything a statistics request can name.
type PropertiesResponse struct {
	Properties     []PropertyInfo `json:"properties"`
	MaskPlanes     []string       `json:"mask_planes"`
	Channels       []string       `json:"channels"`
	Quadrants      []string       `json:"quadrants"`
	DefaultChannel string         `json:"default_channel"`
	DefaultControl ControlSummary `json:"default_control"`
}

func (s *Server) handleStatisticsProperties() (interface{}, error) {
	var props []PropertyInfo
	for _, name := range statistics.PropertyNames() {
		p, err := statistics.ParseProperty(name)
		if err != nil {
			return nil, err
		}
		props = append(props, PropertyInfo{
			Name:     name,
			HasError: statistics.HasAnalyticError(p),
			Modifier: p == statistics.Errors,
			Default:  s.props.Has(p),
		})
	}

	return &PropertiesResponse{
		Properties:     props,
		MaskPlanes:     statistics.MaskPlaneNames(),
		Channels:       imaging.ChannelNames(),
		Quadrants:      imaging.QuadrantNames,
		DefaultChannel: s.cfg.Defaults.Channel,
		DefaultControl: summarizeControl(s.control),
	}, nil
}
