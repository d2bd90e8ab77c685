package http_test

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ajayshanks/datagpt"
	httpadapter "github.com/ajayshanks/datagpt/pkg/adapters/http"
	"github.com/ajayshanks/datagpt/pkg/domain"
	"github.com/ajayshanks/datagpt/pkg/ports"
	"github.com/ajayshanks/datagpt/pkg/stages"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, opts ...httpadapter.Option) *httptest.Server {
	t.Helper()
	handler := ports.StageHandlerFunc(func(ctx context.Context, call ports.StageCall) (*ports.StageReply, error) {
		switch call.Stage {
		case stages.SubmitRequest:
			return &ports.StageReply{StatusCode: 200, Body: []byte(`{"message":"Request received"}`)}, nil
		default:
			return &ports.StageReply{StatusCode: 200, Body: []byte(`{"uniqueID":"tok"}`)}, nil
		}
	})
	eng, err := datagpt.New(datagpt.WithHandler(handler))
	require.NoError(t, err)

	srv := httptest.NewServer(httpadapter.NewHandler(eng, opts...))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

func decodeOutcome(t *testing.T, b []byte) datagpt.Outcome {
	t.Helper()
	var out datagpt.Outcome
	require.NoError(t, json.Unmarshal(b, &out))
	return out
}

func TestServer_RunLifecycle(t *testing.T) {
	srv := newServer(t)

	resp, body := do(t, http.MethodPost, srv.URL+"/runs", `{"run_id":"run-1"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	assert.Equal(t, "run-1", decodeOutcome(t, body).View.RunID)

	resp, _ = do(t, http.MethodPost, srv.URL+"/runs", `{"run_id":"run-1"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = do(t, http.MethodPost, srv.URL+"/runs/run-1/advance",
		`{"input":{"data_sources":["zip_territory"],"use_case":"Segmentation"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	out := decodeOutcome(t, body)
	assert.Equal(t, 2, out.View.CurrentStage)
	require.NotNil(t, out.Diff)
	assert.Equal(t, []int{1}, out.Diff.Committed)

	resp, body = do(t, http.MethodGet, srv.URL+"/runs/run-1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, decodeOutcome(t, body).View.CurrentStage)

	resp, body = do(t, http.MethodPost, srv.URL+"/runs/run-1/back", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, decodeOutcome(t, body).View.CurrentStage)

	resp, body = do(t, http.MethodPost, srv.URL+"/runs/run-1/reset", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, decodeOutcome(t, body).View.Stage(1).Output)

	resp, body = do(t, http.MethodGet, srv.URL+"/runs", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"runs":["run-1"]}`, string(body))

	resp, _ = do(t, http.MethodDelete, srv.URL+"/runs/run-1", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, srv.URL+"/runs/run-1", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_RejectedInput(t *testing.T) {
	srv := newServer(t)
	do(t, http.MethodPost, srv.URL+"/runs", `{"run_id":"run-1"}`)

	resp, body := do(t, http.MethodPost, srv.URL+"/runs/run-1/advance", `{"input":{"use_case":"Segmentation"}}`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var e struct {
		Error string       `json:"error"`
		View  *domain.View `json:"view"`
	}
	require.NoError(t, json.Unmarshal(body, &e))
	assert.Contains(t, e.Error, "select at least one data source")
	require.NotNil(t, e.View)
	assert.Equal(t, 1, e.View.CurrentStage)

	resp, _ = do(t, http.MethodPost, srv.URL+"/runs/run-1/advance", `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, http.MethodPost, srv.URL+"/runs/run-1/advance", `{"input":{"use_case":"`+strings.Repeat("x", 5000)+`"}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_StagesHealthAndRenderings(t *testing.T) {
	srv := newServer(t, httpadapter.WithMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "# metrics")
	})))

	resp, body := do(t, http.MethodGet, srv.URL+"/health", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	resp, body = do(t, http.MethodGet, srv.URL+"/stages", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var infos []map[string]any
	require.NoError(t, json.Unmarshal(body, &infos))
	require.Len(t, infos, 4)
	assert.Equal(t, stages.ProfileSources, infos[1]["name"])
	assert.Equal(t, "async", infos[1]["mode"])
	assert.Equal(t, "rows", infos[1]["kind"])

	do(t, http.MethodPost, srv.URL+"/runs", `{"run_id":"run-1"}`)

	resp, body = do(t, http.MethodGet, srv.URL+"/runs/run-1/report", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/markdown")
	assert.NotEmpty(t, body)

	resp, body = do(t, http.MethodGet, srv.URL+"/runs/run-1/graph", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(string(body), "graph LR"))

	resp, body = do(t, http.MethodGet, srv.URL+"/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "# metrics", string(body))
}

func TestServer_UnknownRun(t *testing.T) {
	srv := newServer(t)

	for _, path := range []string{"/runs/missing/back", "/runs/missing/advance", "/runs/missing/resubmit"} {
		resp, _ := do(t, http.MethodPost, srv.URL+path, "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
	resp, _ := do(t, http.MethodGet, srv.URL+"/runs/missing/report", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_SubscribeEvents(t *testing.T) {
	streams := httpadapter.NewStreamManager()
	srv := newServer(t, httpadapter.WithStreams(streams))
	do(t, http.MethodPost, srv.URL+"/runs", `{"run_id":"run-1"}`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events?run_id=run-1", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 16)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	waitFor := func(prefix string) string {
		t.Helper()
		deadline := time.After(2 * time.Second)
		for {
			select {
			case l, ok := <-lines:
				require.True(t, ok, "stream closed before %q", prefix)
				if strings.HasPrefix(l, prefix) {
					return l
				}
			case <-deadline:
				t.Fatalf("timed out waiting for %q", prefix)
			}
		}
	}
	waitFor("data: connected")

	do(t, http.MethodPost, srv.URL+"/runs/run-1/advance",
		`{"input":{"data_sources":["zip_territory"],"use_case":"Segmentation"}}`)

	line := waitFor("data: {")
	var diff domain.ContextDiff
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &diff))
	assert.Equal(t, "run-1", diff.RunID)
	assert.Equal(t, []int{1}, diff.Committed)
}

func TestServer_SubscribeEventsRequiresRun(t *testing.T) {
	srv := newServer(t)
	resp, _ := do(t, http.MethodGet, srv.URL+"/events", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStreamManager_DropsForSlowClients(t *testing.T) {
	sm := httpadapter.NewStreamManager()
	ch, cancel := sm.Subscribe("run-1")
	defer cancel()

	for i := 0; i < 10; i++ {
		assert.Equal(t, 1, sm.Broadcast("run-1", "m"))
	}
	assert.Equal(t, 0, sm.Broadcast("run-1", "overflow"))
	assert.Equal(t, 0, sm.Broadcast("other", "m"))
	assert.Equal(t, "m", <-ch)

	cancel()
	cancel()
	assert.Equal(t, 0, sm.Broadcast("run-1", "m"))
}
