package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"OpenAI-Gateway/sdk/go/aigateway"
)

func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/generate_text", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"text": "This is some generated text."})
	})
	mux.HandleFunc("/api/translate_text", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"translation": "Ceci est une traduction."})
	})
	mux.HandleFunc("/api/complete_code", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"code": "return a + b"})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, err := aigateway.NewClient(srv.URL, srv.Client())
	if err != nil {
		panic(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	text, err := client.GenerateText(ctx, aigateway.GenerateTextRequest{Prompt: "Write a short sentence."})
	if err != nil {
		panic(err)
	}
	fmt.Printf("generated: %s\n", text)

	translation, err := client.TranslateText(ctx, aigateway.TranslateTextRequest{
		Text:           "This is a translation.",
		TargetLanguage: "fr",
	})
	if err != nil {
		panic(err)
	}
	fmt.Printf("translated: %s\n", translation)

	code, err := client.CompleteCode(ctx, aigateway.CompleteCodeRequest{Prompt: "def add(a, b):"})
	if err != nil {
		panic(err)
	}
	fmt.Printf("completed: %s\n", code)
}
