// Package mcp implements a Model Context Protocol (MCP) server exposing
// template export and page operations as tools and resources.
//
// The server reads newline delimited JSON-RPC 2.0 messages and implements
// the tools and resources parts of MCP 2024-11-05. Messages without an id
// are notifications and never answered.
package mcp

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

const (
	protocolVersion = "2024-11-05"
	serverName      = "pdfexport"
	serverVersion   = "1.0.0"
)

// JSON-RPC error codes.
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

// Server dispatches MCP requests to registered tools and resources.
type Server struct {
	tools     map[string]Tool
	resources map[string]Resource
	methods   map[string]method

	input  io.Reader
	output io.Writer
	log    zerolog.Logger
	mu     sync.Mutex // serialises writes to output
}

// method answers one request kind. A nil *rpcError means success.
type method func(params json.RawMessage) (any, *rpcError)

// Tool is a callable operation advertised by tools/list.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
	Handler     ToolHandler    `json:"-"`
}

// ToolHandler runs a tool. A returned error becomes a result with IsError
// set, not a protocol error.
type ToolHandler func(args map[string]any) (ToolResult, error)

// ToolResult is what tools/call returns.
type ToolResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

// ContentBlock is one part of a tool result: "text", or "resource" with
// base64 Data.
type ContentBlock struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	MIMEType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

func textResult(format string, args ...any) ToolResult {
	return ToolResult{Content: []ContentBlock{{Type: "text", Text: fmt.Sprintf(format, args...)}}}
}

// Resource is readable content addressed by URI. Registered URIs carry no
// query; readers append one, as in pdf://text?path=/tmp/a.pdf.
type Resource struct {
	URI         string          `json:"uri"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	MIMEType    string          `json:"mimeType,omitempty"`
	Handler     ResourceHandler `json:"-"`
}

// ResourceHandler reads the resource at the full requested URI.
type ResourceHandler func(uri string) ([]ResourceContent, error)

// ResourceContent is one item of a resources/read result.
type ResourceContent struct {
	URI      string `json:"uri"`
	MIMEType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
	Blob     string `json:"blob,omitempty"`
}

type rpcMessage struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id,omitempty"`
	Method  string           `json:"method,omitempty"`
	Params  json.RawMessage  `json:"params,omitempty"`
	Result  any              `json:"result,omitempty"`
	Error   *rpcError        `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func invalidParams(err error) *rpcError {
	return &rpcError{Code: codeInvalidParams, Message: "Invalid params", Data: err.Error()}
}

// NewServer returns a server on stdin and stdout.
func NewServer(log zerolog.Logger) *Server {
	return NewServerWithIO(os.Stdin, os.Stdout, log)
}

// NewServerWithIO returns a server reading requests from in and writing
// responses to out.
func NewServerWithIO(in io.Reader, out io.Writer, log zerolog.Logger) *Server {
	s := &Server{
		tools:     map[string]Tool{},
		resources: map[string]Resource{},
		input:     in,
		output:    out,
		log:       log,
	}
	s.methods = map[string]method{
		"initialize":     s.initialize,
		"ping":           func(json.RawMessage) (any, *rpcError) { return struct{}{}, nil },
		"tools/list":     s.listTools,
		"tools/call":     s.callTool,
		"resources/list": s.listResources,
		"resources/read": s.readResource,
	}
	return s
}

// AddTool registers t, replacing any tool of the same name.
func (s *Server) AddTool(t Tool) { s.tools[t.Name] = t }

// AddResource registers r under its URI.
func (s *Server) AddResource(r Resource) { s.resources[r.URI] = r }

// Run serves messages until the input ends.
func (s *Server) Run() error {
	sc := bufio.NewScanner(s.input)
	sc.Buffer(make([]byte, 0, 1<<20), 64<<20)
	for sc.Scan() {
		if line := sc.Bytes(); len(line) > 0 {
			s.handle(line)
		}
	}
	return sc.Err()
}

func (s *Server) handle(line []byte) {
	var req rpcMessage
	if err := json.Unmarshal(line, &req); err != nil {
		s.log.Warn().Err(err).Msg("malformed message")
		s.reply(nil, nil, &rpcError{Code: codeParseError, Message: "Parse error", Data: err.Error()})
		return
	}
	s.log.Debug().Str("method", req.Method).Bool("notification", req.ID == nil).Msg("message")
	if req.ID == nil {
		return
	}

	m, ok := s.methods[req.Method]
	if !ok {
		s.reply(req.ID, nil, &rpcError{Code: codeMethodNotFound, Message: "Method not found", Data: req.Method})
		return
	}
	result, rerr := m(req.Params)
	s.reply(req.ID, result, rerr)
}

func (s *Server) initialize(json.RawMessage) (any, *rpcError) {
	return map[string]any{
		"protocolVersion": protocolVersion,
		"capabilities":    map[string]any{"tools": map[string]any{}, "resources": map[string]any{}},
		"serverInfo":      map[string]any{"name": serverName, "version": serverVersion},
	}, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}

func (s *Server) listTools(json.RawMessage) (any, *rpcError) {
	tools := lo.Map(sortedKeys(s.tools), func(name string, _ int) Tool { return s.tools[name] })
	return map[string]any{"tools": tools}, nil
}

func (s *Server) callTool(params json.RawMessage) (any, *rpcError) {
	var p struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, invalidParams(err)
	}
	tool, ok := s.tools[p.Name]
	if !ok {
		return nil, &rpcError{Code: codeInvalidParams, Message: "Unknown tool", Data: p.Name}
	}
	if p.Arguments == nil {
		p.Arguments = map[string]any{}
	}

	res, err := tool.Handler(p.Arguments)
	if err != nil {
		s.log.Warn().Err(err).Str("tool", p.Name).Msg("tool failed")
		res = textResult("Error: %v", err)
		res.IsError = true
	}
	return res, nil
}

func (s *Server) listResources(json.RawMessage) (any, *rpcError) {
	resources := lo.Map(sortedKeys(s.resources), func(uri string, _ int) Resource { return s.resources[uri] })
	return map[string]any{"resources": resources}, nil
}

func (s *Server) readResource(params json.RawMessage) (any, *rpcError) {
	var p struct {
		URI string `json:"uri"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, invalidParams(err)
	}
	r, ok := s.resources[resourceBase(p.URI)]
	if !ok {
		return nil, &rpcError{Code: codeInvalidParams, Message: "Unknown resource", Data: p.URI}
	}
	contents, err := r.Handler(p.URI)
	if err != nil {
		return nil, &rpcError{Code: codeInternalError, Message: "Resource error", Data: err.Error()}
	}
	return map[string]any{"contents": contents}, nil
}

func (s *Server) reply(id *json.RawMessage, result any, rerr *rpcError) {
	msg := rpcMessage{JSONRPC: "2.0", ID: id, Result: result, Error: rerr}
	data, err := json.Marshal(msg)
	if err != nil {
		s.log.Error().Err(err).Msg("encoding response")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.output.Write(append(data, '\n')); err != nil {
		s.log.Error().Err(err).Msg("writing response")
	}
}
