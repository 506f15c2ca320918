// Package media provides the content-producing tools of the system:
// stock media lookup, placeholder image and audio generation, and
// model-backed narration drafting. Every tool is a FunctionTool with a
// reflected schema; tools that materialize or locate content record an
// artifact descriptor through their ToolContext.
package media

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/voxelbird/scenesmith/core"
	"github.com/voxelbird/scenesmith/tool"
)

type stockSearchArgs struct {
	Query string `json:"query" jsonschema:"required" jsonschema_description:"Search phrase describing the footage to find"`
}

// StockSearchResult is the payload returned by the stock search tool.
type StockSearchResult struct {
	Query  string `json:"query"`
	URL    string `json:"url"`
	Poster string `json:"poster"`
}

// NewStockSearchTool returns the search_stock_media tool. Lookups are
// deterministic: the same query always resolves to the same asset ID, so
// repeated runs reference identical media.
func NewStockSearchTool() *tool.FunctionTool {
	return tool.NewFunctionTool(
		"search_stock_media",
		"Search stock media for footage matching a query and return its URL.",
		tool.MustSchema[stockSearchArgs](),
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			var in stockSearchArgs
			if err := mapstructure.Decode(args, &in); err != nil {
				return nil, fmt.Errorf("decode arguments: %w", err)
			}

			id := assetID(in.Query)
			slug := querySlug(in.Query)
			result := StockSearchResult{
				Query:  in.Query,
				URL:    fmt.Sprintf("https://media.gettyimages.com/id/%d/video/%s.mp4", id, slug),
				Poster: fmt.Sprintf("https://media.gettyimages.com/id/%d/video/%s.jpg", id, slug),
			}

			if err := toolCtx.RecordArtifact(core.Artifact{
				Keyword:  in.Query,
				URL:      result.URL,
				MimeType: "video/mp4",
				Tool:     "search_stock_media",
			}); err != nil {
				return nil, fmt.Errorf("record artifact: %w", err)
			}
			return result, nil
		},
	)
}

// assetID derives a stable numeric asset identifier from the query.
func assetID(query string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(query))))
	return h.Sum32()
}

// querySlug folds the query into a URL path segment.
func querySlug(query string) string {
	fields := strings.Fields(strings.ToLower(query))
	if len(fields) == 0 {
		return "untitled"
	}
	return strings.Join(fields, "-")
}
