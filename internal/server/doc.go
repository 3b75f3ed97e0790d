// Package server implements the MCP (Model Context Protocol) server for image
// statistics.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - image_load: image metadata
//   - image_statistics: statistics over the whole image
//   - image_region_statistics: statistics over a region or named quadrant
//   - image_compare_statistics: statistics on two regions and the
//     difference of their means
//   - statistics_properties: statistic names, mask planes, channels and
//     defaults
//
// Every statistics tool accepts the options of a statistics.Control
// (num_sigma_clip, num_iter, and_mask, ...) and of an imaging.SourceOptions
// (channel, mask_path, variance_path, gain, bin, ...). Options left out take
// the values of the server's config.Config.
//
// The same pipeline backs the CLI through Server.Statistics.
//
// # Image Caching
//
// Images, masks and variance images are cached by path. The cache keeps the
// cache.max_entries most recently used images (IMAGE_STATS_CACHE_MAX_ENTRIES,
// default 32) and drops the least recently used one beyond that.
//
// # Error Handling
//
// Tool failures are returned as JSON-RPC errors:
//   - -32602 when the arguments are at fault (unknown statistic, mask plane,
//     channel or tool, out-of-bounds region, invalid clip settings)
//   - -32000 for anything else, such as unreadable files
//
// A request whose pixels are all excluded is not an error unless
// require_good_pixels is set: the result reports no_good_pixels and the
// statistics are null.
package server
