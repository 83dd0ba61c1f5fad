package daemon

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"tbag/internal/api"
	"tbag/internal/components"
	"tbag/internal/lines"
	"tbag/internal/logging"
	"tbag/internal/projects"
	"tbag/internal/queue"
	"tbag/internal/testsupport"
	"tbag/internal/workflow"
)

func newTestDaemon(t *testing.T) (*Daemon, *queue.Store) {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	lineMgr := lines.NewManager(lines.NewMockDriver(), components.AllowedLines, logging.NewNop())
	t.Cleanup(lineMgr.Close)
	projStore, err := projects.NewStore(cfg.Paths.ProjectsDir)
	if err != nil {
		t.Fatalf("projects.NewStore: %v", err)
	}
	library, err := components.NewLibrary(cfg.Paths.ComponentsDir)
	if err != nil {
		t.Fatalf("components.NewLibrary: %v", err)
	}
	flow := workflow.NewManager(cfg, store, lineMgr, projStore, library, logging.NewNop())

	d, err := New(cfg, store, logging.NewNop(), flow, lineMgr)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	return d, store
}

func (d *Daemon) serve(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	d.apiSrv.server.Handler.ServeHTTP(w, req)
	return w
}

func TestClaimEndpointDistinguishesConflictFromMissing(t *testing.T) {
	d, store := newTestDaemon(t)
	run := testsupport.EnqueueRun(t, store, "proj", "stack-1", "alice", "")

	w := d.serve(t, http.MethodPost, "/api/claim", api.ClaimRequest{DeviceID: "kiosk-a", SessionID: run.SessionID})
	if w.Code != http.StatusOK {
		t.Fatalf("claim: expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var resp api.ClaimResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode claim response: %v", err)
	}
	if resp.Status != "claimed" || resp.Run == nil {
		t.Fatalf("unexpected claim response: %+v", resp)
	}

	w = d.serve(t, http.MethodPost, "/api/claim", api.ClaimRequest{DeviceID: "kiosk-b", SessionID: run.SessionID})
	if w.Code != http.StatusConflict {
		t.Fatalf("second claim: expected 409, got %d", w.Code)
	}

	w = d.serve(t, http.MethodPost, "/api/claim", api.ClaimRequest{DeviceID: "kiosk-b", SessionID: "nope1234"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown session: expected 404, got %d", w.Code)
	}
}

func TestClaimEndpointReportsNoneOnEmptyQueue(t *testing.T) {
	d, _ := newTestDaemon(t)

	w := d.serve(t, http.MethodPost, "/api/claim", api.ClaimRequest{DeviceID: "kiosk-a"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp api.ClaimResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "none" {
		t.Fatalf("status = %q, want none", resp.Status)
	}
}

func TestSessionLifecycleEndpoints(t *testing.T) {
	d, _ := newTestDaemon(t)

	w := d.serve(t, http.MethodPost, "/api/sessions", api.EnqueueRequest{
		Project: "proj", StackID: "stack-1", Operator: "alice",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("enqueue: expected 201, got %d (%s)", w.Code, w.Body.String())
	}
	var created api.Run
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created run: %v", err)
	}

	w = d.serve(t, http.MethodGet, "/api/pending?device=kiosk-a", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("pending: expected 200, got %d", w.Code)
	}
	var list api.RunListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode pending: %v", err)
	}
	if len(list.Items) != 1 {
		t.Fatalf("pending items = %d, want 1", len(list.Items))
	}

	w = d.serve(t, http.MethodGet, "/api/sessions/"+created.SessionID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("describe: expected 200, got %d", w.Code)
	}

	w = d.serve(t, http.MethodDelete, "/api/sessions/"+created.SessionID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", w.Code)
	}

	w = d.serve(t, http.MethodGet, "/api/sessions/"+created.SessionID, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("describe after delete: expected 404, got %d", w.Code)
	}
}

func TestDeleteActiveSessionConflicts(t *testing.T) {
	d, store := newTestDaemon(t)
	run := testsupport.EnqueueRun(t, store, "proj", "stack-1", "alice", "")

	w := d.serve(t, http.MethodPost, "/api/claim", api.ClaimRequest{DeviceID: "kiosk-a", SessionID: run.SessionID})
	if w.Code != http.StatusOK {
		t.Fatalf("claim: expected 200, got %d", w.Code)
	}

	w = d.serve(t, http.MethodDelete, "/api/sessions/"+run.SessionID, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("delete active: expected 409, got %d", w.Code)
	}
}

func TestProgressEndpointValidatesAction(t *testing.T) {
	d, _ := newTestDaemon(t)

	w := d.serve(t, http.MethodPost, "/api/progress", api.ProgressRequest{SessionID: "abc", Action: "dance"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestHeartbeatAndDevicesEndpoints(t *testing.T) {
	d, _ := newTestDaemon(t)

	w := d.serve(t, http.MethodPost, "/api/heartbeat", api.HeartbeatRequest{DeviceID: "kiosk-a"})
	if w.Code != http.StatusOK {
		t.Fatalf("heartbeat: expected 200, got %d", w.Code)
	}

	w = d.serve(t, http.MethodGet, "/api/devices", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("devices: expected 200, got %d", w.Code)
	}
	var devices api.DeviceListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &devices); err != nil {
		t.Fatalf("decode devices: %v", err)
	}
	found := false
	for _, dev := range devices.Devices {
		if dev.DeviceID == "kiosk-a" && dev.Live {
			found = true
		}
	}
	if !found {
		t.Fatalf("kiosk-a should be live, got %+v", devices.Devices)
	}

	w = d.serve(t, http.MethodDelete, "/api/heartbeat/kiosk-a", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("heartbeat delete: expected 200, got %d", w.Code)
	}
}

func TestEventsEndpoint(t *testing.T) {
	d, store := newTestDaemon(t)
	run := testsupport.EnqueueRun(t, store, "proj", "stack-1", "alice", "")

	d.serve(t, http.MethodPost, "/api/claim", api.ClaimRequest{DeviceID: "kiosk-a", SessionID: run.SessionID})
	d.serve(t, http.MethodPost, "/api/progress", api.ProgressRequest{SessionID: run.SessionID, Action: api.ActionNext})

	w := d.serve(t, http.MethodGet, "/api/events?session="+run.SessionID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("events: expected 200, got %d", w.Code)
	}
	var events api.EventListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &events); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(events.Events) != 1 || events.Events[0].Kind != queue.EventNextPressed {
		t.Fatalf("events = %+v, want one next_pressed", events.Events)
	}
}

func TestStatusAndHealthEndpoints(t *testing.T) {
	d, _ := newTestDaemon(t)

	w := d.serve(t, http.MethodGet, "/api/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: expected 200, got %d", w.Code)
	}
	var status api.DaemonStatus
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.DBPath == "" {
		t.Error("status should report the database path")
	}

	w = d.serve(t, http.MethodGet, "/api/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", w.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	handler := authMiddleware("secret", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: expected 401, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token: expected 401, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("valid token: expected 200, got %d", w.Code)
	}
}
