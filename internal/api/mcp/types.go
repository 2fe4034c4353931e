// Package mcp implements the Model Context Protocol (MCP) server for Engram.
// It provides JSON-RPC 2.0 based tools for storing, searching, and wiping
// memories.
package mcp

import (
	"encoding/json"
	"strings"

	"github.com/scrypster/engram/internal/engine"
)

// StoreMemoryArgs contains arguments for the store_memory tool.
type StoreMemoryArgs struct {
	Content    string   `json:"content"`              // Memory content (required)
	Importance *float64 `json:"importance,omitempty"` // Importance in [0,1] (default 0.7)
	Category   string   `json:"category,omitempty"`   // Classification category
	Topics     []string `json:"topics,omitempty"`     // Topic labels
	OwnerID    string   `json:"owner_id,omitempty"`   // Owner override; server default when omitted
}

// UnmarshalJSON handles the case where some MCP clients (e.g. Claude Code) send
// array fields like "topics" as a JSON-encoded string ("[\"a\",\"b\"]") rather
// than a proper JSON array. Both forms are accepted.
func (a *StoreMemoryArgs) UnmarshalJSON(data []byte) error {
	type Alias StoreMemoryArgs
	aux := &struct {
		Topics json.RawMessage `json:"topics,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(a),
	}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	if aux.Topics == nil {
		return nil
	}
	// Try direct array unmarshal first.
	var topics []string
	if err := json.Unmarshal(aux.Topics, &topics); err == nil {
		a.Topics = topics
		return nil
	}
	// Fall back: client sent the array as a JSON-encoded string.
	var s string
	if err := json.Unmarshal(aux.Topics, &s); err != nil {
		return nil // ignore unrecognised topic formats rather than failing
	}
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		_ = json.Unmarshal([]byte(s), &topics)
		a.Topics = topics
	} else if s != "" {
		// Comma-separated fallback.
		for _, t := range strings.Split(s, ",") {
			if t = strings.TrimSpace(t); t != "" {
				a.Topics = append(a.Topics, t)
			}
		}
	}
	return nil
}

// StoreMemoryResult contains the result of storing a memory.
type StoreMemoryResult struct {
	ID      string `json:"id"`      // Memory ID
	Message string `json:"message"` // Status message
}

// SearchMemoryArgs contains arguments for the search_memory tool.
type SearchMemoryArgs struct {
	Query         string   `json:"query"`                    // Search query (required)
	TopK          int      `json:"top_k,omitempty"`          // Max results, 1-10 (default 3)
	MinImportance *float64 `json:"min_importance,omitempty"` // Minimum importance filter
	OwnerID       string   `json:"owner_id,omitempty"`       // Owner override
}

// SearchMemoryResult contains the result of searching memories.
type SearchMemoryResult struct {
	Memories []engine.SearchResult `json:"memories"` // Ranked matches, best first
	Total    int                   `json:"total"`    // Number of matches returned
}

// DeleteAllMemoriesArgs contains arguments for the delete_all_memories tool.
type DeleteAllMemoriesArgs struct {
	Confirm bool   `json:"confirm"`            // Must be true; the wipe is irreversible
	OwnerID string `json:"owner_id,omitempty"` // Owner override
}

// DeleteAllMemoriesResult contains the result of wiping an owner's memories.
type DeleteAllMemoriesResult struct {
	Deleted bool   `json:"deleted"` // Whether the wipe ran
	Message string `json:"message"` // Status message
}

// JSONRPCRequest represents a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPC string      `json:"jsonrpc"` // Must be "2.0"
	Method  string      `json:"method"`  // Method name
	Params  interface{} `json:"params"`  // Method parameters
	ID      interface{} `json:"id"`      // Request ID (string, number, or null)
}

// JSONRPCResponse represents a JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`          // Must be "2.0"
	Result  interface{}   `json:"result,omitempty"` // Result (if successful)
	Error   *JSONRPCError `json:"error,omitempty"`  // Error (if failed)
	ID      interface{}   `json:"id"`               // Request ID
}

// JSONRPCError represents a JSON-RPC 2.0 error.
type JSONRPCError struct {
	Code    int         `json:"code"`           // Error code
	Message string      `json:"message"`        // Error message
	Data    interface{} `json:"data,omitempty"` // Additional error data
}

// JSON-RPC error codes
const (
	ErrCodeParseError     = -32700 // Invalid JSON
	ErrCodeInvalidRequest = -32600 // Invalid request object
	ErrCodeMethodNotFound = -32601 // Method not found
	ErrCodeInvalidParams  = -32602 // Invalid method parameters
	ErrCodeInternalError  = -32603 // Internal JSON-RPC error
	ErrCodeServerError    = -32000 // Server error
)

// ---------------------------------------------------------------------------
// Standard MCP protocol types (initialize / tools/list / tools/call)
// ---------------------------------------------------------------------------

// MCPInitializeParams holds the parameters sent by an MCP client in the
// initialize request.
type MCPInitializeParams struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    map[string]interface{} `json:"capabilities,omitempty"`
	ClientInfo      MCPClientInfo          `json:"clientInfo"`
}

// MCPClientInfo identifies the connecting MCP client.
type MCPClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// MCPServerInfo identifies this MCP server.
type MCPServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// MCPServerCapabilities describes what this server supports.
type MCPServerCapabilities struct {
	Tools *MCPToolsCapability `json:"tools,omitempty"`
}

// MCPToolsCapability signals that the server exposes tools.
type MCPToolsCapability struct{}

// MCPInitializeResult is the response to the initialize request.
type MCPInitializeResult struct {
	ProtocolVersion string                `json:"protocolVersion"`
	Capabilities    MCPServerCapabilities `json:"capabilities"`
	ServerInfo      MCPServerInfo         `json:"serverInfo"`
}

// MCPTool describes a single tool exposed via the MCP tools/list endpoint.
type MCPTool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// MCPToolsListResult is the response to the tools/list request.
type MCPToolsListResult struct {
	Tools []MCPTool `json:"tools"`
}

// MCPToolCallParams holds the parameters sent in a tools/call request.
type MCPToolCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// MCPToolCallContent is a single content block in a tool call response.
type MCPToolCallContent struct {
	Type string `json:"type"` // always "text" for now
	Text string `json:"text"`
}

// MCPToolCallResult is the response to a tools/call request.
type MCPToolCallResult struct {
	Content []MCPToolCallContent `json:"content"`
	IsError bool                 `json:"isError,omitempty"`
}
