// Package mcp exposes the review queue to automation agents over the Model
// Context Protocol. Tools act as a configured service account, which must
// hold reviewer rights like any other user; the engine enforces all
// workflow and authorization rules unchanged.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"knowledgehub/backend/internal/repository"
	"knowledgehub/backend/internal/workflow"
	"knowledgehub/backend/pkg/models"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type Server struct {
	mcpServer      *server.MCPServer
	engine         *workflow.Engine
	store          repository.Store
	serviceAccount string // email of the acting reviewer account
}

func NewServer(engine *workflow.Engine, store repository.Store, serviceAccount string) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"KnowledgeHub Review",
			"1.0.0",
			server.WithToolCapabilities(true),
		),
		engine:         engine,
		store:          store,
		serviceAccount: serviceAccount,
	}

	s.registerTools()
	return s
}

func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_pending_requests",
			mcp.WithDescription("List publication requests awaiting review"),
			mcp.WithString("document_id", mcp.Description("Only requests for this document")),
		),
		s.handleListPending,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"approve_request",
			mcp.WithDescription("Approve a pending publication request, publishing the document into its target container"),
			mcp.WithString("id", mcp.Required(), mcp.Description("The ID of the publication request")),
			mcp.WithString("comment", mcp.Description("Optional review comment")),
		),
		s.handleApprove,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"reject_request",
			mcp.WithDescription("Reject a pending publication request, returning the document to draft"),
			mcp.WithString("id", mcp.Required(), mcp.Description("The ID of the publication request")),
			mcp.WithString("comment", mcp.Required(), mcp.Description("Rationale for the rejection")),
		),
		s.handleReject,
	)
}

func (s *Server) actor(ctx context.Context) (*models.User, error) {
	if s.serviceAccount == "" {
		return nil, fmt.Errorf("no MCP service account configured")
	}
	return s.store.GetUserByEmail(ctx, s.serviceAccount)
}

func (s *Server) handleListPending(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	documentID, _ := args["document_id"].(string)

	requests, err := s.engine.ListRequests(ctx, repository.RequestFilter{
		DocumentID: documentID,
		Status:     models.RequestPending,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list requests: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(requests)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleApprove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	id, ok := args["id"].(string)
	if !ok || id == "" {
		return mcp.NewToolResultError("Missing required parameter: id"), nil
	}
	comment, _ := args["comment"].(string)

	actor, err := s.actor(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Service account unavailable: %v", err)), nil
	}

	req, err := s.engine.Approve(ctx, actor, id, comment)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to approve: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(req)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleReject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	id, ok := args["id"].(string)
	if !ok || id == "" {
		return mcp.NewToolResultError("Missing required parameter: id"), nil
	}
	comment, ok := args["comment"].(string)
	if !ok || comment == "" {
		return mcp.NewToolResultError("Missing required parameter: comment"), nil
	}

	actor, err := s.actor(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Service account unavailable: %v", err)), nil
	}

	req, err := s.engine.Reject(ctx, actor, id, comment)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to reject: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(req)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func MountHTTPHandlers(mux *http.ServeMux, mcpServer *server.MCPServer) {
	// Use SSE server for /mcp/sse and /mcp/message endpoints
	sseServer := server.NewSSEServer(mcpServer, server.WithStaticBasePath("/mcp"))

	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		// Direct POST for tool calls
		if r.Method == http.MethodPost {
			sseServer.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	// SSE endpoints
	mux.HandleFunc("/mcp/sse", sseServer.ServeHTTP)
	mux.HandleFunc("/mcp/message", sseServer.ServeHTTP)
}
