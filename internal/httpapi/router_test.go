package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nftforge/text2nft/internal/core/domain"
	"github.com/nftforge/text2nft/internal/core/service"
	"github.com/nftforge/text2nft/pkg/wallet"
	"github.com/rs/zerolog"
)

type stubGenerator struct {
	block chan struct{}
}

func (s *stubGenerator) Generate(ctx context.Context, description string) (domain.GeneratedArtifact, error) {
	if s.block != nil {
		<-s.block
	}
	return domain.GeneratedArtifact{ImageBase64: "QUJD", MimeType: "image/png"}, nil
}

type stubUploader struct{}

func (stubUploader) Upload(ctx context.Context, imageBase64, name string) (domain.HostedAsset, error) {
	return domain.HostedAsset{URL: "https://img.example/abc123"}, nil
}

type stubMinter struct{}

func (stubMinter) Mint(ctx context.Context, req domain.MintRequest) (*domain.MintReceipt, error) {
	return &domain.MintReceipt{TxHash: "0xfeed"}, nil
}

type stubWallet struct{}

func (stubWallet) Info() wallet.Info {
	return wallet.Info{Account: "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", ChainID: "31337"}
}

type testServer struct {
	srv    *httptest.Server
	form   *service.FormController
	cookie *http.Cookie
}

func newTestServer(t *testing.T, gen *stubGenerator) *testServer {
	t.Helper()

	form := service.NewFormController(gen, stubUploader{}, stubMinter{}, nil, zerolog.Nop())
	sessions, err := NewSessions("test-secret", time.Hour, false)
	if err != nil {
		t.Fatalf("NewSessions() error = %v", err)
	}

	app := NewApp(Deps{
		Form:        form,
		Wallet:      stubWallet{},
		Sessions:    sessions,
		BaseContext: context.Background(),
		Logger:      zerolog.Nop(),
	})
	srv := httptest.NewServer(NewRouter(app, zerolog.Nop()))
	t.Cleanup(srv.Close)

	// The page issues the session cookie
	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("GET / error = %v", err)
	}
	resp.Body.Close()

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == sessionCookie {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("GET / did not set a session cookie")
	}

	return &testServer{srv: srv, form: form, cookie: cookie}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	req.AddCookie(ts.cookie)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s error = %v", method, path, err)
	}
	defer resp.Body.Close()

	var out map[string]any
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		json.NewDecoder(resp.Body).Decode(&out)
	}
	return resp, out
}

func TestRouter_Health(t *testing.T) {
	ts := newTestServer(t, &stubGenerator{})

	resp, err := http.Get(ts.srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestRouter_RequiresSession(t *testing.T) {
	ts := newTestServer(t, &stubGenerator{})

	for _, path := range []string{"/api/state", "/api/wallet", "/ws"} {
		resp, err := http.Get(ts.srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s error = %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("GET %s without session = %d, want 401", path, resp.StatusCode)
		}
	}
}

func TestRouter_SubmitValidation(t *testing.T) {
	ts := newTestServer(t, &stubGenerator{})

	resp, body := ts.do(t, http.MethodPost, "/api/submissions", map[string]string{"name": "Space Cat", "description": " "})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if body["kind"] != "validation" || body["error"] != "Please provide a name and description" {
		t.Errorf("body = %v", body)
	}
	if ts.form.Snapshot().State != domain.StateIdle {
		t.Errorf("state = %v, want idle", ts.form.Snapshot().State)
	}
}

func TestRouter_SubmitAndQR(t *testing.T) {
	ts := newTestServer(t, &stubGenerator{})

	resp, _ := ts.do(t, http.MethodGet, "/api/link/qr", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("QR before submit = %d, want 404", resp.StatusCode)
	}

	resp, _ = ts.do(t, http.MethodPost, "/api/submissions", map[string]string{"name": "Space Cat", "description": "a cat in space"})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	ts.form.Wait()

	_, state := ts.do(t, http.MethodGet, "/api/state", nil)
	if state["state"] != string(domain.StateIdle) || state["url"] != "https://img.example/abc123" || state["link_label"] != "abc123" {
		t.Errorf("state = %v", state)
	}
	if state["name"] != "" {
		t.Errorf("name = %v, want cleared", state["name"])
	}

	resp, _ = ts.do(t, http.MethodGet, "/api/link/qr", nil)
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Errorf("QR = %d %s, want 200 image/png", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
}

func TestRouter_BusyConflict(t *testing.T) {
	gen := &stubGenerator{block: make(chan struct{})}
	ts := newTestServer(t, gen)

	draft := map[string]string{"name": "n", "description": "d"}
	resp, _ := ts.do(t, http.MethodPost, "/api/submissions", draft)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("first submit = %d, want 202", resp.StatusCode)
	}

	resp, body := ts.do(t, http.MethodPost, "/api/submissions", nil)
	if resp.StatusCode != http.StatusConflict || body["kind"] != "busy" {
		t.Errorf("second submit = %d %v, want 409 busy", resp.StatusCode, body)
	}

	resp, _ = ts.do(t, http.MethodPut, "/api/draft", draft)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("draft edit while busy = %d, want 409", resp.StatusCode)
	}

	close(gen.block)
	ts.form.Wait()
}

func TestRouter_DraftAndRetry(t *testing.T) {
	ts := newTestServer(t, &stubGenerator{})

	resp, body := ts.do(t, http.MethodPut, "/api/draft", map[string]string{"name": "only name"})
	if resp.StatusCode != http.StatusOK || body["name"] != "only name" || body["description"] != "" {
		t.Errorf("PUT /api/draft = %d %v", resp.StatusCode, body)
	}

	resp, _ = ts.do(t, http.MethodPost, "/api/submissions/retry", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("retry without failure = %d, want 409", resp.StatusCode)
	}

	_, w := ts.do(t, http.MethodGet, "/api/wallet", nil)
	if w["chain_id"] != "31337" {
		t.Errorf("wallet = %v", w)
	}
}

func TestRouter_Stream(t *testing.T) {
	ts := newTestServer(t, &stubGenerator{})

	header := http.Header{}
	header.Add("Cookie", ts.cookie.String())
	wsURL := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first domain.Snapshot
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if first.State != domain.StateIdle {
		t.Errorf("first snapshot state = %v, want idle", first.State)
	}

	if err := ts.form.SetName("from ws test"); err != nil {
		t.Fatalf("SetName() error = %v", err)
	}

	var next domain.Snapshot
	if err := conn.ReadJSON(&next); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if next.Name != "from ws test" || next.Seq <= first.Seq {
		t.Errorf("next snapshot = %+v", next)
	}
}
