package main

import (
	"encoding/json"
	"io"
	"net/http"

	"golang.org/x/net/websocket"

	"github.com/ferg-cod3s/docsyncer/internal/mcp"
	"github.com/ferg-cod3s/docsyncer/internal/observability"
	"github.com/ferg-cod3s/docsyncer/internal/protocol"
)

// mcpHTTPHandler exposes mcp.Server.Handle over a single POST endpoint:
// one JSON-RPC request body in, one JSON-RPC response body out. server
// already implements protocol.Handler, so this is a thin transport
// adapter rather than a second copy of the tool dispatch switch.
func mcpHTTPHandler(server *mcp.Server, logger *observability.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		defer r.Body.Close()
		if err != nil {
			writeRPCError(w, nil, protocol.ParseError, "failed to read request body")
			return
		}

		var req protocol.Request
		if err := json.Unmarshal(body, &req); err != nil {
			writeRPCError(w, nil, protocol.ParseError, "invalid JSON")
			return
		}
		if req.JSONRPC != protocol.JSONRPCVersion || req.Method == "" {
			writeRPCError(w, req.ID, protocol.InvalidRequest, "invalid JSON-RPC request")
			return
		}

		result, err := server.Handle(req.Method, req.Params)
		if err != nil {
			logger.Error("mcp request failed", "method", req.Method, "error", err)
			if protoErr, ok := err.(*protocol.Error); ok {
				writeRPCError(w, req.ID, protoErr.Code, protoErr.Message)
				return
			}
			writeRPCError(w, req.ID, protocol.InternalError, err.Error())
			return
		}

		writeRPCResult(w, req.ID, result)
	}
}

// mcpWebSocketHandler exposes the same Handle dispatch over a persistent
// WebSocket connection: one JSON-RPC message per frame, replies written
// back on the same connection as they're produced. golang.org/x/net is
// already part of the module's dependency graph (go-git pulls it in
// transitively); this is the one place it's used directly.
func mcpWebSocketHandler(server *mcp.Server) http.Handler {
	return websocket.Handler(func(ws *websocket.Conn) {
		defer ws.Close()
		for {
			var req protocol.Request
			if err := websocket.JSON.Receive(ws, &req); err != nil {
				return
			}
			if req.JSONRPC != protocol.JSONRPCVersion || req.Method == "" {
				sendWSError(ws, req.ID, protocol.InvalidRequest, "invalid JSON-RPC request")
				continue
			}

			result, err := server.Handle(req.Method, req.Params)
			if err != nil {
				if protoErr, ok := err.(*protocol.Error); ok {
					sendWSError(ws, req.ID, protoErr.Code, protoErr.Message)
				} else {
					sendWSError(ws, req.ID, protocol.InternalError, err.Error())
				}
				continue
			}

			resultJSON, err := json.Marshal(result)
			if err != nil {
				sendWSError(ws, req.ID, protocol.InternalError, "failed to marshal result")
				continue
			}
			websocket.JSON.Send(ws, protocol.Response{
				JSONRPC: protocol.JSONRPCVersion,
				ID:      req.ID,
				Result:  resultJSON,
			})
		}
	})
}

func sendWSError(ws *websocket.Conn, id interface{}, code int, message string) {
	websocket.JSON.Send(ws, protocol.Response{
		JSONRPC: protocol.JSONRPCVersion,
		ID:      id,
		Error:   &protocol.Error{Code: code, Message: message},
	})
}

func writeRPCError(w http.ResponseWriter, id interface{}, code int, message string) {
	writeJSONResponse(w, http.StatusOK, protocol.Response{
		JSONRPC: protocol.JSONRPCVersion,
		ID:      id,
		Error:   &protocol.Error{Code: code, Message: message},
	})
}

func writeRPCResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		writeRPCError(w, id, protocol.InternalError, "failed to marshal result")
		return
	}
	writeJSONResponse(w, http.StatusOK, protocol.Response{
		JSONRPC: protocol.JSONRPCVersion,
		ID:      id,
		Result:  resultJSON,
	})
}

func writeJSONResponse(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
