package apiserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"fmrhost/internal/fmr"
)

// scriptedEndpoint is a minimal in-memory fmr.Endpoint: Push is a no-op
// sink, Pull drains a pre-loaded queue. Good enough to exercise the HTTP
// handlers without a real transport.
type scriptedEndpoint struct {
	pullQueue [][]byte
	pullIdx   int
}

func (s *scriptedEndpoint) Configure(hint string) error { return nil }
func (s *scriptedEndpoint) Push(p []byte) error         { return nil }
func (s *scriptedEndpoint) Destroy() error              { return nil }

func (s *scriptedEndpoint) Pull(p []byte) error {
	if s.pullIdx >= len(s.pullQueue) {
		return fmt.Errorf("scriptedEndpoint: queue exhausted")
	}
	data := s.pullQueue[s.pullIdx]
	s.pullIdx++
	if len(data) != len(p) {
		return fmt.Errorf("scriptedEndpoint: size mismatch want %d got %d", len(p), len(data))
	}
	copy(p, data)
	return nil
}

func (s *scriptedEndpoint) queueConfiguration(t *testing.T, cfg fmr.Configuration) {
	t.Helper()
	buf, err := fmr.EncodeConfiguration(cfg)
	require.NoError(t, err)
	s.pullQueue = append(s.pullQueue, buf)
}

func (s *scriptedEndpoint) queueResult(r fmr.Result) {
	s.pullQueue = append(s.pullQueue, fmr.EncodeResult(r))
}

func newTestServer(t *testing.T, ep *scriptedEndpoint) (*Server, *fmr.Context) {
	t.Helper()
	rt := fmr.NewContext()
	s := New(rt, func(kind, hint string) (fmr.Endpoint, error) {
		return ep, nil
	})
	return s, rt
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := newTestServer(t, &scriptedEndpoint{})
	rec := doJSON(t, s.Router(), http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "ok", body["status"])
}

func TestAttachThenConfiguration(t *testing.T) {
	ep := &scriptedEndpoint{}
	ep.queueConfiguration(t, fmr.Configuration{Name: "carbon", Identifier: fmr.Identifier("carbon")})
	ep.queueResult(fmr.Result{Error: fmr.KindOK})
	// GET /configuration re-runs the round trip, so it needs its own reply.
	ep.queueConfiguration(t, fmr.Configuration{Name: "carbon", Identifier: fmr.Identifier("carbon")})
	ep.queueResult(fmr.Result{Error: fmr.KindOK})

	s, _ := newTestServer(t, ep)
	router := s.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/v1/attach", attachRequest{Name: "carbon", Transport: "tcp"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/configuration?device=carbon", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "carbon", body["name"])
}

func TestConfigurationUnknownDeviceIs404(t *testing.T) {
	s, _ := newTestServer(t, &scriptedEndpoint{})
	rec := doJSON(t, s.Router(), http.MethodGet, "/api/v1/configuration?device=missing", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegisterModuleThenInvoke(t *testing.T) {
	ep := &scriptedEndpoint{}
	ep.queueConfiguration(t, fmr.Configuration{Name: "carbon", Identifier: fmr.Identifier("carbon")})
	ep.queueResult(fmr.Result{Error: fmr.KindOK}) // attach-time configuration ack
	ep.queueResult(fmr.Result{Value: 0})          // bind lookup -> index 0
	ep.queueResult(fmr.Result{Value: 42})         // invoke result

	s, _ := newTestServer(t, ep)
	router := s.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/v1/attach", attachRequest{Name: "carbon", Transport: "tcp"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/modules", registerModuleRequest{Name: "led"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/invoke", invokeRequest{
		Device: "carbon", Module: "led", Function: 0, Ret: "u32",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.EqualValues(t, 42, body["value"])
}

func TestInvokeUnknownModuleIs404(t *testing.T) {
	s, _ := newTestServer(t, &scriptedEndpoint{})
	rec := doJSON(t, s.Router(), http.MethodPost, "/api/v1/invoke", invokeRequest{Module: "ghost", Ret: "void"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLastErrorWithNoErrorsYet(t *testing.T) {
	s, _ := newTestServer(t, &scriptedEndpoint{})
	rec := doJSON(t, s.Router(), http.MethodGet, "/api/v1/last-error", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Nil(t, body["error"])
}
