package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"colonyserver/internal/config"
	"colonyserver/internal/db"
	"colonyserver/internal/engine"
	"colonyserver/internal/eventlog"
	"colonyserver/internal/migrate"
)

const testSecret = "test-secret"

type testServer struct {
	URL    string
	Engine engine.Engine
	client *http.Client
	close  func()
}

func (s *testServer) Close() { s.close() }

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, config.Default())
	handler, err := New(Config{
		Engine:   e,
		BasePath: "/v0",
		Auth:     AuthConfig{JWTSecret: testSecret, AllowLegacyAddressHeader: true},
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	ts := &testServer{
		URL:    "http://" + ln.Addr().String(),
		Engine: e,
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	t.Cleanup(ts.Close)
	return ts
}

func (s *testServer) get(t *testing.T, path string, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	return s.do(t, http.MethodGet, path, headers)
}

func (s *testServer) post(t *testing.T, path string, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	return s.do(t, http.MethodPost, path, headers)
}

func (s *testServer) do(t *testing.T, method, path string, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, s.URL+path, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	return resp, body
}

func asAddress(address string) map[string]string {
	return map[string]string{"X-Address": address}
}

func signToken(t *testing.T, address string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   address,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func (s *testServer) seedNotification(t *testing.T, recipient string) eventlog.Event {
	t.Helper()
	ctx := context.Background()
	tx, err := s.Engine.DB.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	defer tx.Rollback()
	ev, err := s.Engine.Events.Append(ctx, tx, "0xf00", "task-1", "task",
		eventlog.SetTaskTitleEvent{TaskID: "task-1", Title: "hello"}, []string{recipient})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	return ev
}

// Wire shape of a notification; the event context decodes as a free-form
// object on the client side.
type notificationDTO struct {
	ID    string `json:"id"`
	Read  bool   `json:"read"`
	Event struct {
		ID      string         `json:"id"`
		Type    string         `json:"type"`
		Context map[string]any `json:"context"`
	} `json:"event"`
}

func TestHealthNeedsNoAuth(t *testing.T) {
	s := newTestServer(t)
	resp, _ := s.get(t, "/v0/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health: %d", resp.StatusCode)
	}
}

func TestUnauthenticatedRejected(t *testing.T) {
	s := newTestServer(t)
	resp, body := s.get(t, "/v0/notifications", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("want 401, got %d: %s", resp.StatusCode, body)
	}
}

func TestBearerTokenIdentity(t *testing.T) {
	s := newTestServer(t)
	s.seedNotification(t, "0xa11ce")

	resp, body := s.get(t, "/v0/notifications", map[string]string{
		"Authorization": "Bearer " + signToken(t, "0xa11ce"),
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", resp.StatusCode, body)
	}
	var ns []notificationDTO
	if err := json.Unmarshal(body, &ns); err != nil {
		t.Fatalf("decode: %v (%s)", err, body)
	}
	if len(ns) != 1 {
		t.Fatalf("want 1 notification, got %d", len(ns))
	}

	resp, _ = s.get(t, "/v0/notifications", map[string]string{"Authorization": "Bearer garbage"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad token: want 401, got %d", resp.StatusCode)
	}
}

func TestNotificationFlow(t *testing.T) {
	s := newTestServer(t)
	s.seedNotification(t, "0xa11ce")
	s.seedNotification(t, "0xa11ce")

	resp, body := s.get(t, "/v0/notifications", asAddress("0xa11ce"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: %d %s", resp.StatusCode, body)
	}
	var ns []notificationDTO
	if err := json.Unmarshal(body, &ns); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(ns) != 2 {
		t.Fatalf("want 2 notifications, got %d", len(ns))
	}
	if ns[0].Event.Type != string(eventlog.TypeSetTaskTitle) {
		t.Fatalf("hydrated event type: %s", ns[0].Event.Type)
	}

	// Mark the newest read; the unread filter then returns only the other.
	resp, body = s.post(t, "/v0/notifications/"+ns[0].ID+"/read", asAddress("0xa11ce"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("mark read: %d %s", resp.StatusCode, body)
	}
	resp, body = s.get(t, "/v0/notifications?read=false", asAddress("0xa11ce"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unread list: %d", resp.StatusCode)
	}
	var unread []notificationDTO
	if err := json.Unmarshal(body, &unread); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(unread) != 1 || unread[0].ID != ns[1].ID {
		t.Fatalf("unread filter wrong: %s", body)
	}

	resp, body = s.post(t, "/v0/notifications/read-all", asAddress("0xa11ce"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("read-all: %d %s", resp.StatusCode, body)
	}
	resp, body = s.get(t, "/v0/notifications?read=false", asAddress("0xa11ce"))
	if err := json.Unmarshal(body, &unread); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.StatusCode != http.StatusOK || len(unread) != 0 {
		t.Fatalf("after read-all: %d, %d unread", resp.StatusCode, len(unread))
	}
}

func TestMarkForeignNotificationForbidden(t *testing.T) {
	s := newTestServer(t)
	s.seedNotification(t, "0xa11ce")

	resp, body := s.get(t, "/v0/notifications", asAddress("0xa11ce"))
	var ns []notificationDTO
	if err := json.Unmarshal(body, &ns); err != nil || len(ns) != 1 {
		t.Fatalf("setup: %d %s", resp.StatusCode, body)
	}

	resp, body = s.post(t, "/v0/notifications/"+ns[0].ID+"/read", asAddress("0xb0b"))
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("want 403, got %d: %s", resp.StatusCode, body)
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.Error.Code != "forbidden" {
		t.Fatalf("envelope code: %q", envelope.Error.Code)
	}
}

func TestNotFoundEnvelope(t *testing.T) {
	s := newTestServer(t)
	resp, body := s.get(t, "/v0/programs/no-such-id", asAddress("0xa11ce"))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("want 404, got %d: %s", resp.StatusCode, body)
	}
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.Error.Code != "not_found" || envelope.Error.Message == "" {
		t.Fatalf("envelope: %+v", envelope)
	}
}

func TestSubmissibleLevelsEndpoint(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	mustExec := func(q string, args ...any) {
		t.Helper()
		if _, err := s.Engine.DB.ExecContext(ctx, q, args...); err != nil {
			t.Fatalf("exec: %v", err)
		}
	}
	mustExec(`INSERT INTO programs(id,colony_address,creator_address,level_ids,enrolled_user_addresses,status,created_at) VALUES (?,?,?,?,?,?,?)`,
		"prog-1", "0xc01", "0xf00", `["lvl-1","lvl-2"]`, `["0xa11ce"]`, "Active", "2024-01-01T00:00:00Z")
	mustExec(`INSERT INTO levels(id,program_id,creator_address,step_ids,completed_by,status,created_at) VALUES (?,?,?,?,?,?,?)`,
		"lvl-1", "prog-1", "0xf00", `[]`, `[]`, "Active", "2024-01-01T00:00:00Z")
	mustExec(`INSERT INTO levels(id,program_id,creator_address,step_ids,completed_by,status,created_at) VALUES (?,?,?,?,?,?,?)`,
		"lvl-2", "prog-1", "0xf00", `[]`, `[]`, "Active", "2024-01-01T00:00:00Z")

	resp, body := s.get(t, "/v0/programs/prog-1/submissible-levels", asAddress("0xa11ce"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", resp.StatusCode, body)
	}
	var ids []string
	if err := json.Unmarshal(body, &ids); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(ids) != 1 || ids[0] != "lvl-1" {
		t.Fatalf("want [lvl-1], got %v", ids)
	}

	// Unenrolled caller gets an empty list, not an error.
	resp, body = s.get(t, "/v0/programs/prog-1/submissible-levels", asAddress("0xb0b"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unenrolled: %d %s", resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, &ids); err != nil || len(ids) != 0 {
		t.Fatalf("unenrolled should get []: %s", body)
	}
}

func TestUserEndpointMinimalFallback(t *testing.T) {
	s := newTestServer(t)
	resp, body := s.get(t, "/v0/users/0xdeadbeef", asAddress("0xa11ce"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", resp.StatusCode, body)
	}
	var u struct {
		WalletAddress   string   `json:"wallet_address"`
		ColonyAddresses []string `json:"colony_addresses"`
	}
	if err := json.Unmarshal(body, &u); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if u.WalletAddress != "0xdeadbeef" || u.ColonyAddresses == nil {
		t.Fatalf("minimal user wrong: %s", body)
	}
}
