package imagegen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nftforge/text2nft/internal/core/domain"
	"github.com/rs/zerolog"
)

func TestOpenAI_Generate(t *testing.T) {
	var req map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/generations" {
			t.Errorf("path = %s, want /images/generations", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"created": 1700000000, "data": [{"b64_json": "aGVsbG8="}]}`))
	}))
	defer srv.Close()

	gen := NewOpenAI("sk-test", srv.URL, "", zerolog.Nop())
	artifact, err := gen.Generate(context.Background(), "a cat in space")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if artifact.ImageBase64 != "aGVsbG8=" || artifact.MimeType != "image/png" {
		t.Errorf("artifact = %+v", artifact)
	}
	if req["prompt"] != "a cat in space" {
		t.Errorf("prompt = %v", req["prompt"])
	}
	if req["response_format"] != "b64_json" {
		t.Errorf("response_format = %v, want b64_json", req["response_format"])
	}
	if req["model"] != "dall-e-2" {
		t.Errorf("model = %v, want dall-e-2", req["model"])
	}
}

func TestOpenAI_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"message": "Your request was rejected by the safety system", "type": "invalid_request_error"}}`))
	}))
	defer srv.Close()

	_, err := NewOpenAI("sk-test", srv.URL, "", zerolog.Nop()).Generate(context.Background(), "x")
	if kind := domain.KindOf(err); kind != domain.KindRemote {
		t.Errorf("KindOf() = %v, want remote (err = %v)", kind, err)
	}
}

func TestOpenAI_EmptyData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"created": 1700000000, "data": []}`))
	}))
	defer srv.Close()

	if _, err := NewOpenAI("sk-test", srv.URL, "", zerolog.Nop()).Generate(context.Background(), "x"); err == nil {
		t.Error("Generate() should fail when no image is returned")
	}
}
