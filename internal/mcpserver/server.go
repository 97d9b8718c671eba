// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the retitle pipeline for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/retitle/internal/models"
	"github.com/starford/retitle/internal/pipeline"
	"github.com/starford/retitle/internal/sanitize"
)

// Pipeline runs retitle on a single document.
type Pipeline interface {
	Document(ctx context.Context, path string, dryRun bool) (models.Outcome, error)
}

// Server wraps the MCP server with retitle tools.
type Server struct {
	mcp      *server.MCPServer
	pipeline Pipeline
	logger   *slog.Logger
}

// New creates a new MCP server with all retitle tools registered.
func New(p Pipeline, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{pipeline: p, logger: logger}

	s.mcp = server.NewMCPServer(
		"Retitle",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("suggest_filename",
		mcp.WithDescription("Derive a filename for a PDF from its first page without renaming it. "+
			"Returns the outcome as JSON; kind is planned, skipped_exists, skipped_no_title or skipped_no_text."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to the PDF")),
	), s.suggestFilename)

	s.mcp.AddTool(mcp.NewTool("rename_document",
		mcp.WithDescription("Rename a PDF after a title derived from its first page. "+
			"Existing files are never overwritten. Returns the outcome as JSON."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to the PDF")),
		mcp.WithBoolean("dry_run", mcp.Description("Report the new name without renaming")),
	), s.renameDocument)

	s.mcp.AddTool(mcp.NewTool("sanitize_filename",
		mcp.WithDescription("Turn an arbitrary title into the filename retitle would use."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Candidate title")),
	), s.sanitizeFilename)

	s.mcp.AddTool(mcp.NewTool("get_naming_rules",
		mcp.WithDescription("Returns the title conventions and sanitization rules retitle applies."),
	), s.getNamingRules)

	s.mcp.AddResource(
		mcp.NewResource(NamingRulesURI, "Naming Rules",
			mcp.WithResourceDescription("Title conventions and filename sanitization rules."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNamingRulesResource,
	)

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

func (s *Server) suggestFilename(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.run(ctx, path, true)
}

func (s *Server) renameDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.run(ctx, path, req.GetBool("dry_run", false))
}

func (s *Server) run(ctx context.Context, path string, dryRun bool) (*mcp.CallToolResult, error) {
	out, err := s.pipeline.Document(ctx, path, dryRun)
	if err != nil {
		s.logger.Warn("mcp: document rejected", slog.String("path", path), slog.String("error", err.Error()))
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, _ := json.MarshalIndent(out, "", "  ")
	if out.Kind == models.KindFailed {
		return mcp.NewToolResultError(string(data)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) sanitizeFilename(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(sanitize.Filename(title) + pipeline.Extension), nil
}

func (s *Server) getNamingRules(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NamingRules), nil
}

func (s *Server) readNamingRulesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      NamingRulesURI,
			MIMEType: "text/markdown",
			Text:     NamingRules,
		},
	}, nil
}
