package server

import (
	"github.com/ironsheep/image-stats-mcp/internal/imaging"
	"github.com/ironsheep/image-stats-mcp/internal/statistics"
)

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
}

func regionProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"description": description,
		"properties": map[string]interface{}{
			"x1": map[string]interface{}{"type": "integer", "description": "Left edge X coordinate (0-based)"},
			"y1": map[string]interface{}{"type": "integer", "description": "Top edge Y coordinate (0-based)"},
			"x2": map[string]interface{}{"type": "integer", "description": "Right edge X coordinate (exclusive)"},
			"y2": map[string]interface{}{"type": "integer", "description": "Bottom edge Y coordinate (exclusive)"},
		},
		"required": []string{"x1", "y1", "x2", "y2"},
	}
}

func quadrantProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
		"enum":        imaging.QuadrantNames,
	}
}

func maskProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"description": description + " Either an integer bit mask, a string such as \"BAD|SAT\", or a list of plane names.",
		"oneOf": []interface{}{
			map[string]interface{}{"type": "integer", "minimum": 0},
			map[string]interface{}{"type": "string"},
			map[string]interface{}{
				"type":  "array",
				"items": map[string]interface{}{"type": "string", "enum": statistics.MaskPlaneNames()},
			},
		},
	}
}

// statisticsProperties returns the schema properties shared by every
// statistics tool.
func statisticsProperties() map[string]interface{} {
	return map[string]interface{}{
		"path": pathProperty(),
		"properties": map[string]interface{}{
			"type":        "array",
			"description": "Statistics to compute. ERRORS adds an error to each statistic that has one. Defaults to the server configuration (NPOINT, MEAN, STDEV, MEDIAN, MIN, MAX unless configured otherwise).",
			"items": map[string]interface{}{
				"type": "string",
				"enum": statistics.PropertyNames(),
			},
		},
		"channel": map[string]interface{}{
			"type":        "string",
			"description": "Pixel quantity to measure. luminance, red, green, blue and alpha are 0-255; lightness is CIE L* 0-100.",
			"enum":        imaging.ChannelNames(),
		},
		"num_sigma_clip": map[string]interface{}{
			"type":        "number",
			"description": "Clipping threshold in standard deviations for MEANCLIP/STDEVCLIP/VARIANCECLIP. Must be > 0. Default 3.",
		},
		"num_iter": map[string]interface{}{
			"type":        "integer",
			"description": "Maximum clipping passes. 0 or 1 disables clipping. Default 3.",
			"minimum":     0,
		},
		"clip_from_median": map[string]interface{}{
			"type":        "boolean",
			"description": "Centre the first clipping pass on the median with sigma 0.741*IQR instead of the mean and standard deviation. Default false.",
		},
		"and_mask":            maskProperty("Mask planes whose pixels are excluded."),
		"no_good_pixels_mask": maskProperty("Flags reported when no pixel survives."),
		"weighted": map[string]interface{}{
			"type":        "boolean",
			"description": "Weight pixels by inverse variance. Defaults to true when a variance image or gain is given.",
		},
		"nan_safe": map[string]interface{}{
			"type":        "boolean",
			"description": "Drop NaN and infinite values. Default true.",
		},
		"require_good_pixels": map[string]interface{}{
			"type":        "boolean",
			"description": "Fail instead of returning NaN statistics when every pixel is excluded.",
		},
		"mask_path": map[string]interface{}{
			"type":        "string",
			"description": "Image of the same size whose non-zero pixels are flagged BAD",
		},
		"variance_path": map[string]interface{}{
			"type":        "string",
			"description": "Image of the same size whose luminance is the per-pixel variance",
		},
		"gain": map[string]interface{}{
			"type":        "number",
			"description": "Detector gain; with no variance image the variance is value/gain + read_noise^2",
			"minimum":     0,
		},
		"read_noise": map[string]interface{}{
			"type":        "number",
			"description": "Read noise in the units of the pixel values",
		},
		"edge": map[string]interface{}{
			"type":        "integer",
			"description": "Flag pixels within this distance of the region border as EDGE",
			"minimum":     0,
		},
		"bin": map[string]interface{}{
			"type":        "integer",
			"description": "Average bin x bin pixel blocks before measuring",
			"minimum":     1,
		},
	}
}

func withProperties(base map[string]interface{}, extra map[string]interface{}) map[string]interface{} {
	for k, v := range extra {
		base[k] = v
	}
	return base
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions, format, pixel count and the channels statistics can be computed on.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_statistics",
			Description: "Compute robust statistics (mean, median, sigma-clipped mean, interquartile range, ...) over every pixel of an image, with optional masks, inverse-variance weighting and error estimates.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": statisticsProperties(),
				"required":   []string{"path"},
			},
		},
		{
			Name:        "image_region_statistics",
			Description: "Compute robust statistics over a rectangular region or a named quadrant of an image. Accepts the same options as image_statistics.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(statisticsProperties(), map[string]interface{}{
					"region":   regionProperty("Region to measure"),
					"quadrant": quadrantProperty("Named region to measure, instead of region"),
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_compare_statistics",
			Description: "Compute statistics on two regions of the same image and the difference of their means with its combined error and significance.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(statisticsProperties(), map[string]interface{}{
					"region1":   regionProperty("First region"),
					"region2":   regionProperty("Second region"),
					"quadrant1": quadrantProperty("Named first region, instead of region1"),
					"quadrant2": quadrantProperty("Named second region, instead of region2"),
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "statistics_properties",
			Description: "List the statistic names, which of them carry errors, the mask planes, channels and quadrant names, and the server's default settings.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
