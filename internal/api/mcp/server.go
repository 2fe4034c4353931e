package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/scrypster/engram/internal/engine"
)

// DefaultImportance is assigned when a store_memory call omits the
// importance field.
const DefaultImportance = 0.7

// memoryService is the subset of engine.Service used by the MCP server.
// Using an interface keeps the MCP package loosely coupled and testable.
type memoryService interface {
	Store(ctx context.Context, owner string, req engine.StoreRequest) (string, error)
	Search(ctx context.Context, owner string, req engine.SearchRequest) ([]engine.SearchResult, error)
	DeleteAll(ctx context.Context, owner string) error
}

// Server implements the Model Context Protocol (MCP) for Engram.
// It provides JSON-RPC 2.0 based tools for AI assistants to store and
// retrieve long-term memories.
type Server struct {
	service      memoryService
	defaultOwner string // owner used when a tool call carries no owner_id
	sessionID    string // unique ID generated once per MCP server lifetime
}

// ServerOption is a functional option for configuring a Server.
type ServerOption func(*Server)

// WithDefaultOwner sets the owner used when a tool call does not include
// an explicit owner_id. When empty, the per-process session ID scopes
// the memories instead.
func WithDefaultOwner(owner string) ServerOption {
	return func(s *Server) {
		s.defaultOwner = owner
	}
}

// NewServer creates a new MCP server instance.
func NewServer(service memoryService, opts ...ServerOption) *Server {
	s := &Server{
		service:   service,
		sessionID: uuid.New().String(),
	}
	for _, opt := range opts {
		opt(s)
	}
	log.Printf("engram-mcp: session ID: %s", s.sessionID)
	return s
}

// resolveOwner picks the owner key for a tool call. Priority:
//  1. explicit owner_id argument
//  2. server-level default owner
//  3. this process's session ID
func (s *Server) resolveOwner(ownerID string) string {
	if ownerID != "" {
		return ownerID
	}
	if s.defaultOwner != "" {
		return s.defaultOwner
	}
	return s.sessionID
}

// HandleRequest processes a JSON-RPC 2.0 request and returns a response.
// This is the main entry point for MCP protocol handling.
func (s *Server) HandleRequest(ctx context.Context, requestJSON []byte) ([]byte, error) {
	var req JSONRPCRequest
	if err := json.Unmarshal(requestJSON, &req); err != nil {
		return s.errorResponse(nil, ErrCodeParseError, "Parse error", err)
	}

	// Validate JSON-RPC version
	if req.JSONRPC != "2.0" {
		return s.errorResponse(req.ID, ErrCodeInvalidRequest, "Invalid JSON-RPC version", nil)
	}

	// Route to appropriate handler
	var result interface{}
	var err error

	switch req.Method {
	// Standard MCP protocol methods
	case "initialize":
		result, err = s.handleInitialize(ctx, req.Params)
	case "initialized":
		// Notification; no response body required, return empty object.
		result = map[string]interface{}{}
	case "tools/list":
		result, err = s.handleToolsList(ctx, req.Params)
	case "tools/call":
		result, err = s.handleToolsCall(ctx, req.Params)

	// Native JSON-RPC methods (kept for direct callers)
	case "store_memory":
		result, err = s.handleStoreMemory(ctx, req.Params)
	case "search_memory":
		result, err = s.handleSearchMemory(ctx, req.Params)
	case "delete_all_memories":
		result, err = s.handleDeleteAllMemories(ctx, req.Params)
	default:
		return s.errorResponse(req.ID, ErrCodeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method), nil)
	}

	if err != nil {
		return s.errorResponse(req.ID, ErrCodeServerError, err.Error(), nil)
	}

	return s.successResponse(req.ID, result)
}

// StoreMemory embeds and stores a new memory for the resolved owner.
func (s *Server) StoreMemory(ctx context.Context, args StoreMemoryArgs) (*StoreMemoryResult, error) {
	if strings.TrimSpace(args.Content) == "" {
		return nil, errors.New("content is required")
	}

	importance := DefaultImportance
	if args.Importance != nil {
		importance = *args.Importance
	}

	owner := s.resolveOwner(args.OwnerID)
	id, err := s.service.Store(ctx, owner, engine.StoreRequest{
		Content:    args.Content,
		Importance: importance,
		Category:   args.Category,
		Topics:     args.Topics,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store memory: %w", err)
	}

	return &StoreMemoryResult{
		ID:      id,
		Message: "Memory stored successfully.",
	}, nil
}

// SearchMemory returns the owner's memories most similar to the query.
func (s *Server) SearchMemory(ctx context.Context, args SearchMemoryArgs) (*SearchMemoryResult, error) {
	if strings.TrimSpace(args.Query) == "" {
		return nil, errors.New("query is required")
	}

	owner := s.resolveOwner(args.OwnerID)
	results, err := s.service.Search(ctx, owner, engine.SearchRequest{
		Query:         args.Query,
		TopK:          args.TopK,
		MinImportance: args.MinImportance,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search memories: %w", err)
	}

	if results == nil {
		results = []engine.SearchResult{}
	}
	return &SearchMemoryResult{
		Memories: results,
		Total:    len(results),
	}, nil
}

// DeleteAllMemories wipes the resolved owner's entire collection. The
// wipe is irreversible, so it refuses to run unless confirm is true.
func (s *Server) DeleteAllMemories(ctx context.Context, args DeleteAllMemoriesArgs) (*DeleteAllMemoriesResult, error) {
	if !args.Confirm {
		return &DeleteAllMemoriesResult{
			Deleted: false,
			Message: "Refusing to delete: pass confirm=true to wipe all memories. This cannot be undone.",
		}, nil
	}

	owner := s.resolveOwner(args.OwnerID)
	if err := s.service.DeleteAll(ctx, owner); err != nil {
		return nil, fmt.Errorf("failed to delete memories: %w", err)
	}

	return &DeleteAllMemoriesResult{
		Deleted: true,
		Message: "All memories deleted.",
	}, nil
}

func (s *Server) handleInitialize(_ context.Context, params interface{}) (interface{}, error) {
	// Decode leniently: a client that sends malformed initialize params
	// still gets a usable session.
	var p MCPInitializeParams
	if err := s.unmarshalParams(params, &p); err == nil && p.ClientInfo.Name != "" {
		log.Printf("engram-mcp: client connected: %s %s (protocol %s)",
			p.ClientInfo.Name, p.ClientInfo.Version, p.ProtocolVersion)
	}

	return MCPInitializeResult{
		ProtocolVersion: "2024-11-05",
		Capabilities: MCPServerCapabilities{
			Tools: &MCPToolsCapability{},
		},
		ServerInfo: MCPServerInfo{
			Name:    "engram",
			Version: "1.0.0",
		},
	}, nil
}

// handleToolsList returns the list of all tools this server exposes.
func (s *Server) handleToolsList(_ context.Context, _ interface{}) (interface{}, error) {
	return MCPToolsListResult{Tools: s.buildToolsList()}, nil
}

// handleToolsCall dispatches a tools/call request to the appropriate handler
// and wraps the result in the MCP content envelope.
func (s *Server) handleToolsCall(ctx context.Context, params interface{}) (interface{}, error) {
	var p MCPToolCallParams
	if err := s.unmarshalParams(params, &p); err != nil {
		return nil, err
	}

	// Re-marshal arguments so they can be passed to the existing handlers
	// which expect an interface{} produced by JSON unmarshal.
	argsJSON, err := json.Marshal(p.Arguments)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal arguments: %w", err)
	}
	var rawParams interface{}
	if err := json.Unmarshal(argsJSON, &rawParams); err != nil {
		return nil, fmt.Errorf("failed to unmarshal arguments: %w", err)
	}

	var result interface{}
	var handlerErr error

	switch p.Name {
	case "store_memory":
		result, handlerErr = s.handleStoreMemory(ctx, rawParams)
	case "search_memory":
		result, handlerErr = s.handleSearchMemory(ctx, rawParams)
	case "delete_all_memories":
		result, handlerErr = s.handleDeleteAllMemories(ctx, rawParams)
	default:
		return &MCPToolCallResult{
			Content: []MCPToolCallContent{{Type: "text", Text: fmt.Sprintf("unknown tool: %s", p.Name)}},
			IsError: true,
		}, nil
	}

	if handlerErr != nil {
		return &MCPToolCallResult{
			Content: []MCPToolCallContent{{Type: "text", Text: handlerErr.Error()}},
			IsError: true,
		}, nil
	}

	text, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	return &MCPToolCallResult{
		Content: []MCPToolCallContent{{Type: "text", Text: string(text)}},
	}, nil
}

// buildToolsList returns the canonical list of MCP tool definitions.
func (s *Server) buildToolsList() []MCPTool {
	return []MCPTool{
		{
			Name:        "store_memory",
			Description: "Store a fact about the user in long-term memory. Near-duplicate memories are collapsed automatically over time, keeping the more important phrasing.",
			InputSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"content"},
				"properties": map[string]interface{}{
					"content":    map[string]interface{}{"type": "string", "description": "The fact to remember (required)"},
					"importance": map[string]interface{}{"type": "number", "description": "How important this memory is, 0.0-1.0 (default 0.7)"},
					"category":   map[string]interface{}{"type": "string", "description": "Classification category, e.g. preference, biography"},
					"topics":     map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}, "description": "Optional topic labels"},
					"owner_id":   map[string]interface{}{"type": "string", "description": "Owner to store for. Omit to use the server default."},
				},
			},
		},
		{
			Name:        "search_memory",
			Description: "Retrieve the memories most relevant to a query, ranked by semantic similarity. Returns at most top_k results.",
			InputSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"query"},
				"properties": map[string]interface{}{
					"query":          map[string]interface{}{"type": "string", "description": "Natural-language search query (required)"},
					"top_k":          map[string]interface{}{"type": "integer", "description": "Max results, 1-10 (default 3)"},
					"min_importance": map[string]interface{}{"type": "number", "description": "Only return memories at least this important, 0.0-1.0"},
					"owner_id":       map[string]interface{}{"type": "string", "description": "Owner to search. Omit to use the server default."},
				},
			},
		},
		{
			Name:        "delete_all_memories",
			Description: "Permanently delete every memory for an owner. Irreversible; requires confirm=true. Always ask the user before calling this.",
			InputSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"confirm"},
				"properties": map[string]interface{}{
					"confirm":  map[string]interface{}{"type": "boolean", "description": "Must be true to actually delete"},
					"owner_id": map[string]interface{}{"type": "string", "description": "Owner to wipe. Omit to use the server default."},
				},
			},
		},
	}
}

func (s *Server) handleStoreMemory(ctx context.Context, params interface{}) (interface{}, error) {
	var args StoreMemoryArgs
	if err := s.unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	return s.StoreMemory(ctx, args)
}

func (s *Server) handleSearchMemory(ctx context.Context, params interface{}) (interface{}, error) {
	var args SearchMemoryArgs
	if err := s.unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	return s.SearchMemory(ctx, args)
}

func (s *Server) handleDeleteAllMemories(ctx context.Context, params interface{}) (interface{}, error) {
	var args DeleteAllMemoriesArgs
	if err := s.unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	return s.DeleteAllMemories(ctx, args)
}

// unmarshalParams unmarshals JSON-RPC parameters into a typed struct.
func (s *Server) unmarshalParams(params interface{}, dest interface{}) error {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal params: %w", err)
	}

	return nil
}

// successResponse creates a JSON-RPC success response.
func (s *Server) successResponse(id interface{}, result interface{}) ([]byte, error) {
	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		Result:  result,
		ID:      id,
	}
	return json.Marshal(resp)
}

// errorResponse creates a JSON-RPC error response.
func (s *Server) errorResponse(id interface{}, code int, message string, data interface{}) ([]byte, error) {
	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		Error: &JSONRPCError{
			Code:    code,
			Message: message,
			Data:    data,
		},
		ID: id,
	}
	return json.Marshal(resp)
}
