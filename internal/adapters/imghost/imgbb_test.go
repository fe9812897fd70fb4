package imghost

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nftforge/text2nft/internal/core/domain"
	"github.com/rs/zerolog"
)

func TestImgbb_Upload(t *testing.T) {
	var gotName, gotKey, gotImage string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotName = r.URL.Query().Get("name")
		gotKey = r.URL.Query().Get("key")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm() error = %v", err)
		}
		gotImage = r.FormValue("image")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": {"id": "abc123", "url": "https://i.ibb.co/abc123/Space-Cat.png"}, "success": true, "status": 200}`))
	}))
	defer srv.Close()

	uploader := NewImgbb(srv.URL, "imgbb-key", 5*time.Second, zerolog.Nop())
	asset, err := uploader.Upload(context.Background(), "aGVsbG8=", "Space Cat")
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if gotName != "Space Cat" {
		t.Errorf("name = %q, want %q", gotName, "Space Cat")
	}
	if gotKey != "imgbb-key" {
		t.Errorf("key = %q, want %q", gotKey, "imgbb-key")
	}
	if gotImage != "aGVsbG8=" {
		t.Errorf("image field = %q, want the base64 payload", gotImage)
	}
	if asset.URL != "https://i.ibb.co/abc123/Space-Cat.png" {
		t.Errorf("URL = %v", asset.URL)
	}
	if asset.LinkLabel() != "Space-Cat.png" {
		t.Errorf("LinkLabel() = %v", asset.LinkLabel())
	}
}

func TestImgbb_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"bad key", http.StatusBadRequest, `{"status_code": 400, "error": {"message": "Invalid API v1 key.", "code": 100}}`, "Invalid API v1 key."},
		{"missing url", http.StatusOK, `{"data": {}, "success": true}`, "no URL"},
		{"not json", http.StatusOK, `<html>oops</html>`, "failed to parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewImgbb(srv.URL, "k", time.Second, zerolog.Nop()).Upload(context.Background(), "aGVsbG8=", "n")
			if err == nil {
				t.Fatal("Upload() error = nil")
			}
			if domain.KindOf(err) != domain.KindRemote {
				t.Errorf("KindOf() = %v, want remote", domain.KindOf(err))
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantMsg)
			}
		})
	}
}
