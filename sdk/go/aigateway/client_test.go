package aigateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGenerateTextDecodesEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate_text" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		var req GenerateTextRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("unexpected body: %v", err)
		}
		if req.Prompt != "Write a short sentence." {
			t.Fatalf("unexpected prompt: %q", req.Prompt)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"text": "This is some generated text."})
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	text, err := client.GenerateText(context.Background(), GenerateTextRequest{
		Prompt: "Write a short sentence.",
	})
	if err != nil {
		t.Fatalf("generate text: %v", err)
	}
	if text != "This is some generated text." {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestTranslateTextSendsTargetLanguage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/translate_text" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		var req TranslateTextRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("unexpected body: %v", err)
		}
		if req.TargetLanguage != "fr" {
			t.Fatalf("unexpected target_language: %q", req.TargetLanguage)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"translation": "Ceci est une traduction."})
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	translation, err := client.TranslateText(context.Background(), TranslateTextRequest{
		Text:           "This is a translation.",
		TargetLanguage: "fr",
	})
	if err != nil {
		t.Fatalf("translate text: %v", err)
	}
	if translation != "Ceci est une traduction." {
		t.Fatalf("unexpected translation: %q", translation)
	}
}

func TestCompleteCodeDecodesEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/complete_code" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"code": "return a + b"})
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	code, err := client.CompleteCode(context.Background(), CompleteCodeRequest{Prompt: "def add(a, b):"})
	if err != nil {
		t.Fatalf("complete code: %v", err)
	}
	if code != "return a + b" {
		t.Fatalf("unexpected code: %q", code)
	}
}

func TestDetailEnvelopeBecomesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "OpenAI API Error: quota exceeded"})
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.GenerateText(context.Background(), GenerateTextRequest{Prompt: "p"})
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("unexpected status: %d", apiErr.StatusCode)
	}
	if apiErr.Detail != "OpenAI API Error: quota exceeded" {
		t.Fatalf("unexpected detail: %q", apiErr.Detail)
	}
}

func TestNonJSONErrorBodyKeptAsDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "仅支持 POST", http.StatusMethodNotAllowed)
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.GenerateText(context.Background(), GenerateTextRequest{Prompt: "p"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Detail != "仅支持 POST" {
		t.Fatalf("unexpected detail: %q", apiErr.Detail)
	}
}
