// Package rpcserver implements a hand-rolled, line-delimited JSON-RPC 2.0
// server over stdio exposing the five cortex_* memory tools to any MCP-aware
// agent. No framework sits between the wire and the dispatch table: the
// methods and error codes are the contract, so they are implemented
// directly against encoding/json and bufio.
package rpcserver

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/thrashr888/cortex/internal/consolidator"
	"github.com/thrashr888/cortex/internal/contextfmt"
	"github.com/thrashr888/cortex/internal/cortexcfg"
	"github.com/thrashr888/cortex/internal/cortexerr"
	"github.com/thrashr888/cortex/internal/llm"
	"github.com/thrashr888/cortex/internal/retrieval"
	"github.com/thrashr888/cortex/internal/store"
)

const protocolVersion = "2024-11-05"

// Server is a single-threaded, strictly-serial JSON-RPC stdio server. One
// request is processed to completion before the next is read.
type Server struct {
	Store           *store.Store
	Config          cortexcfg.Config
	LLM             llm.Client
	ProjectSkillDir string
	GlobalSkillDir  string
	Logger          *zap.Logger
}

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Serve reads one JSON-RPC request per line from r and writes one response
// per line to w until r is exhausted. Notifications (requests whose id is
// absent) produce no response body.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	enc := json.NewEncoder(w)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			if werr := enc.Encode(response{JSONRPC: "2.0", Error: &rpcError{Code: cortexerr.RPCParseError, Message: "parse error"}}); werr != nil {
				return werr
			}
			continue
		}

		resp := s.dispatch(ctx, req)
		if resp == nil {
			continue // notification: no response body
		}
		if err := enc.Encode(resp); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (s *Server) dispatch(ctx context.Context, req request) *response {
	switch req.Method {
	case "initialize":
		return s.reply(req, map[string]any{
			"protocolVersion": protocolVersion,
			"serverInfo":      map[string]any{"name": "cortex", "version": "0.1.0"},
			"capabilities":    map[string]any{"tools": map[string]any{}},
		}, nil)
	case "notifications/initialized":
		return nil
	case "tools/list":
		return s.reply(req, map[string]any{"tools": toolDescriptors}, nil)
	case "tools/call":
		return s.handleToolCall(ctx, req)
	default:
		if len(req.ID) == 0 {
			return nil
		}
		return &response{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: cortexerr.RPCMethodNotFound, Message: fmt.Sprintf("method not found: %s", req.Method)}}
	}
}

var toolDescriptors = []map[string]any{
	{"name": "cortex_save", "description": "Save a raw episodic observation to memory."},
	{"name": "cortex_recall", "description": "Search project and global memory for relevant entries."},
	{"name": "cortex_context", "description": "Render the markdown session-start context document."},
	{"name": "cortex_sleep", "description": "Run a consolidation pass over unconsolidated memory."},
	{"name": "cortex_stats", "description": "Report memory store statistics."},
}

type toolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

func (s *Server) handleToolCall(ctx context.Context, req request) *response {
	var params toolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.reply(req, nil, fmt.Errorf("%w: malformed tools/call params", cortexerr.ErrValidation))
	}

	switch params.Name {
	case "cortex_save":
		return s.callSave(req, params.Arguments)
	case "cortex_recall":
		return s.callRecall(req, params.Arguments)
	case "cortex_context":
		return s.callContext(req, params.Arguments)
	case "cortex_sleep":
		return s.callSleep(ctx, req, params.Arguments)
	case "cortex_stats":
		return s.callStats(req, params.Arguments)
	default:
		return s.reply(req, nil, fmt.Errorf("%w: unknown tool %q", cortexerr.ErrValidation, params.Name))
	}
}

func (s *Server) callSave(req request, raw json.RawMessage) *response {
	var args struct {
		Content string `json:"content"`
		Type    string `json:"type"`
		Global  bool   `json:"global"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return s.reply(req, nil, fmt.Errorf("%w: malformed cortex_save arguments", cortexerr.ErrValidation))
	}
	if args.Type == "" {
		args.Type = string(store.KindObservation)
	}

	if args.Global {
		g, err := s.Store.Global()
		if err != nil {
			return s.reply(req, nil, err)
		}
		id, err := g.InsertConsolidated(args.Content, args.Type, 0.5, nil)
		if err != nil {
			return s.reply(req, nil, err)
		}
		return s.reply(req, map[string]any{"id": -id}, nil)
	}

	id, err := s.Store.Raw.InsertRaw(args.Content, args.Type, "")
	if err != nil {
		return s.reply(req, nil, err)
	}
	return s.reply(req, map[string]any{"id": id}, nil)
}

func (s *Server) callRecall(req request, raw json.RawMessage) *response {
	var args struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return s.reply(req, nil, fmt.Errorf("%w: malformed cortex_recall arguments", cortexerr.ErrValidation))
	}

	env, err := retrieval.Recall(s.Store, args.Query, args.Limit)
	if err != nil {
		return s.reply(req, nil, err)
	}

	type hit struct {
		ID      int64   `json:"id"`
		Content string  `json:"content"`
		Kind    string  `json:"kind"`
		Score   float64 `json:"score"`
		Source  string  `json:"source"`
	}
	results := make([]hit, 0, len(env.Results))
	for _, r := range env.Results {
		results = append(results, hit{ID: r.ID, Content: r.Content, Kind: r.Kind, Score: r.Score, Source: string(r.Source)})
	}
	return s.reply(req, map[string]any{"results": results}, nil)
}

func (s *Server) callContext(req request, raw json.RawMessage) *response {
	var args struct {
		Query   string `json:"query"`
		Limit   int    `json:"limit"`
		Compact bool   `json:"compact"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return s.reply(req, nil, fmt.Errorf("%w: malformed cortex_context arguments", cortexerr.ErrValidation))
	}

	doc, err := contextfmt.Context(s.Store, contextfmt.Options{
		Query:           args.Query,
		Limit:           args.Limit,
		Compact:         args.Compact,
		ProjectSkillDir: s.ProjectSkillDir,
		GlobalSkillDir:  s.GlobalSkillDir,
	})
	if err != nil {
		return s.reply(req, nil, err)
	}
	return s.reply(req, map[string]any{"markdown": doc}, nil)
}

func (s *Server) callSleep(ctx context.Context, req request, raw json.RawMessage) *response {
	var args struct {
		Micro bool `json:"micro"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return s.reply(req, nil, fmt.Errorf("%w: malformed cortex_sleep arguments", cortexerr.ErrValidation))
	}

	if args.Micro {
		res, err := consolidator.Micro(s.Store, s.Config)
		if err != nil {
			return s.reply(req, nil, err)
		}
		return s.reply(req, map[string]any{
			"consolidated":   res.ExactMatched,
			"promoted":       0,
			"deleted":        res.ConsolidatedDecayed + res.StaleRawDeleted,
			"skills_written": 0,
		}, nil)
	}

	res, err := consolidator.QuickSleep(ctx, s.Store, s.Config, s.LLM, s.ProjectSkillDir, s.Logger)
	if err != nil {
		return s.reply(req, nil, err)
	}
	return s.reply(req, map[string]any{
		"consolidated":   res.Consolidated,
		"promoted":       res.Promoted,
		"deleted":        res.Deleted,
		"skills_written": res.SkillsWritten,
	}, nil)
}

func (s *Server) callStats(req request, raw json.RawMessage) *response {
	var args struct {
		Global bool `json:"global"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return s.reply(req, nil, fmt.Errorf("%w: malformed cortex_stats arguments", cortexerr.ErrValidation))
	}

	st, err := s.Store.Stats(args.Global)
	if err != nil {
		return s.reply(req, nil, err)
	}
	return s.reply(req, map[string]any{
		"raw_count":            st.RawCount,
		"unconsolidated_count": st.UnconsolidatedCount,
		"consolidated_count":   st.ConsolidatedCount,
		"skill_count":          st.SkillCount,
	}, nil)
}

func (s *Server) reply(req request, result any, err error) *response {
	if len(req.ID) == 0 {
		return nil
	}
	if err != nil {
		return &response{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: cortexerr.RPCCode(err), Message: err.Error()}}
	}
	return &response{JSONRPC: "2.0", ID: req.ID, Result: result}
}
