package tools

import (
	"strings"

	"github.com/moolen/bonvoyage/internal/search"
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"
)

// SearchWebName is the tool name the research and guide stages declare.
const SearchWebName = "search_web"

// SearchWebArgs is the input of the search_web tool.
type SearchWebArgs struct {
	// Query is the search query.
	Query string `json:"query"`
}

// SearchWebResult is returned to the model. Result always carries text: hits,
// or a fallback telling the model to rely on its own knowledge.
type SearchWebResult struct {
	Result string `json:"result"`
}

// NewSearchWebTool creates the search_web tool.
func NewSearchWebTool(s *search.Tool) (tool.Tool, error) {
	return functiontool.New(functiontool.Config{
		Name: SearchWebName,
		Description: `Search the web for current information about a destination.

Use it for visas, weather, transport, prices, attractions, restaurants and events.
Returns up to a few numbered results with a title and a short snippet.`,
	}, func(ctx tool.Context, args SearchWebArgs) (SearchWebResult, error) {
		query := strings.TrimSpace(args.Query)
		return SearchWebResult{Result: truncateResult(s.Run(ctx, query), MaxToolResponseBytes)}, nil
	})
}
