package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/scambier/omnisearch/search"
)

type searcher interface {
	Search(ctx context.Context, query string) []search.ResultNote
}

type historyStore interface {
	AddToHistory(query string) error
	History() ([]string, error)
}

type keywordSource interface {
	RelatedKeywords(ctx context.Context, query string) ([]string, error)
}

// NewSearchServer builds the MCP server exposing the search index. The
// keywords source is optional.
func NewSearchServer(eng searcher, history historyStore, keywords keywordSource, log *slog.Logger) *server.MCPServer {
	srv := server.NewMCPServer("Omnisearch", "1.0.0", server.WithToolCapabilities(false))

	searchTool := mcp.NewTool("search",
		mcp.WithDescription("Full-text search over the indexed documents. Supports quoted phrases, -exclusions, .ext filters and #tags."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query"),
		))
	srv.AddTool(searchTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		q, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		if err := history.AddToHistory(q); err != nil {
			log.Warn("failed to record search history", "error", err)
		}

		notes := eng.Search(ctx, q)
		var response strings.Builder
		for _, note := range notes {
			raw, err := json.Marshal(note)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			response.WriteString(string(raw))
			response.WriteByte('\n')
		}
		return mcp.NewToolResultText(response.String()), nil
	})

	historyTool := mcp.NewTool("search-history",
		mcp.WithDescription("Returns the most recent search queries, newest first."))
	srv.AddTool(historyTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		queries, err := history.History()
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(strings.Join(queries, "\n")), nil
	})

	if keywords != nil {
		keywordsTool := mcp.NewTool("related-keywords",
			mcp.WithDescription("Suggests search terms related to a query, for when a search returns nothing useful."),
			mcp.WithString("query",
				mcp.Required(),
				mcp.Description("The original search query"),
			))
		srv.AddTool(keywordsTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			q, err := request.RequireString("query")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			kws, err := keywords.RelatedKeywords(ctx, q)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("failed to get related keywords: %s", err)), nil
			}
			return mcp.NewToolResultText(strings.Join(kws, ", ")), nil
		})
	}

	return srv
}
