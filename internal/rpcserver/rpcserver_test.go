package rpcserver

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thrashr888/cortex/internal/cortexcfg"
	"github.com/thrashr888/cortex/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(filepath.Join(dir, "project"), filepath.Join(dir, "global", "consolidated.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return &Server{
		Store:           s,
		Config:          cortexcfg.Default(),
		ProjectSkillDir: filepath.Join(dir, "project", "skills"),
		GlobalSkillDir:  filepath.Join(dir, "global", "skills"),
	}
}

func serveOne(t *testing.T, srv *Server, line string) map[string]any {
	t.Helper()
	var out bytes.Buffer
	err := srv.Serve(context.Background(), bytes.NewBufferString(line+"\n"), &out)
	require.NoError(t, err)

	if out.Len() == 0 {
		return nil
	}
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	return decoded
}

func TestInitializeReturnsServerInfo(t *testing.T) {
	srv := newTestServer(t)
	resp := serveOne(t, srv, `{"jsonrpc":"2.0","id":1,"method":"initialize"}`)
	require.NotNil(t, resp)
	result := resp["result"].(map[string]any)
	require.Equal(t, protocolVersion, result["protocolVersion"])
}

func TestNotificationsInitializedProducesNoResponse(t *testing.T) {
	srv := newTestServer(t)
	resp := serveOne(t, srv, `{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	require.Nil(t, resp)
}

func TestToolsListAdvertisesFiveCortexTools(t *testing.T) {
	srv := newTestServer(t)
	resp := serveOne(t, srv, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
	result := resp["result"].(map[string]any)
	tools := result["tools"].([]any)
	require.Len(t, tools, 5)
}

func TestUnknownMethodReturnsMethodNotFound(t *testing.T) {
	srv := newTestServer(t)
	resp := serveOne(t, srv, `{"jsonrpc":"2.0","id":3,"method":"bogus"}`)
	errObj := resp["error"].(map[string]any)
	require.Equal(t, float64(-32601), errObj["code"])
}

func TestToolsCallSaveThenRecallRoundTrips(t *testing.T) {
	srv := newTestServer(t)

	saveResp := serveOne(t, srv, `{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"cortex_save","arguments":{"content":"uses goimports on save","type":"preference"}}}`)
	require.NotNil(t, saveResp["result"])

	recallResp := serveOne(t, srv, `{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"cortex_recall","arguments":{"query":"goimports"}}}`)
	result := recallResp["result"].(map[string]any)
	results := result["results"].([]any)
	require.NotEmpty(t, results)
}

func TestToolsCallUnknownToolIsValidationError(t *testing.T) {
	srv := newTestServer(t)
	resp := serveOne(t, srv, `{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{"name":"cortex_bogus","arguments":{}}}`)
	errObj := resp["error"].(map[string]any)
	require.Equal(t, float64(-32000), errObj["code"])
}

func TestToolsCallStatsReportsCounts(t *testing.T) {
	srv := newTestServer(t)
	_, err := srv.Store.Raw.InsertRaw("observed something", string(store.KindObservation), "")
	require.NoError(t, err)

	resp := serveOne(t, srv, `{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"cortex_stats","arguments":{}}}`)
	result := resp["result"].(map[string]any)
	require.Equal(t, float64(1), result["raw_count"])
}
