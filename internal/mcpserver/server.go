// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the note engine's read and search operations via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/laguz/internal/noteservice"
)

// Server wraps the MCP server with Laguz tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *noteservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Laguz",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through note content and titles. "+
			"Supports double-quoted phrases; all terms are prefix-matched and ANDed."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note's metadata, content, and tags by id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Numeric note id")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes ordered by last update, newest first. "+
			"Notes in the trash or archive are excluded."),
		mcp.WithString("page", mcp.Description("1-based page number (default 1)")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("category_tree",
		mcp.WithDescription("Project the tag hierarchy into a 3-level category tree."),
	), s.categoryTree)

	s.mcp.AddTool(mcp.NewTool("top_tags",
		mcp.WithDescription("Tags used on notes touched in the last 90 days, most used first."),
	), s.topTags)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.SearchText(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid note id: %s", raw)), nil
	}
	detail, err := s.svc.LoadNote(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", raw)), nil
	}
	out, _ := json.MarshalIndent(detail, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page := 1
	if raw, err := req.RequireString("page"); err == nil {
		if p, convErr := strconv.Atoi(raw); convErr == nil && p > 0 {
			page = p
		}
	}
	notes, total, err := s.svc.NotesPage(ctx, page, 50)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(map[string]any{"notes": notes, "total": total}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) categoryTree(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tree, err := s.svc.Hierarchy(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(tree, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) topTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags, err := s.svc.TopTags(ctx, 10)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(tags, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}
