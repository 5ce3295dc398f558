package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/efebarandurmaz/pramaanx/internal/llm"
)

func TestClient_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Model != "phi3" || req.Stream {
			t.Errorf("unexpected request %+v", req)
		}
		if req.Options["num_predict"] != float64(8) {
			t.Errorf("expected num_predict=8, got %v", req.Options["num_predict"])
		}
		json.NewEncoder(w).Encode(chatResponse{
			Model:           "phi3",
			Message:         chatMessage{Role: "assistant", Content: "SAFE"},
			DoneReason:      "stop",
			PromptEvalCount: 40,
			EvalCount:       2,
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "", "", 0)
	resp, err := c.Complete(context.Background(), llm.UserPrompt("hello"), &llm.RequestOptions{MaxTokens: llm.Int(8)})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "SAFE" || resp.InputTokens != 40 || resp.OutputTokens != 2 {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestClient_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req embedRequest
		json.NewDecoder(r.Body).Decode(&req)
		out := embedResponse{}
		for range req.Input {
			out.Embeddings = append(out.Embeddings, []float32{0.5, 0.5})
		}
		json.NewEncoder(w).Encode(out)
	}))
	defer srv.Close()

	c := New(srv.URL, "", "", 0)
	vecs, err := c.Embed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vecs))
	}
}

func TestClient_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model 'phi3' not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, "", "", 0)
	_, err := c.Complete(context.Background(), llm.UserPrompt("x"), nil)
	var se *llm.StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound {
		t.Fatalf("expected 404 StatusError, got %v", err)
	}
	if llm.IsRetryable(err) {
		t.Error("404 should not be retryable")
	}
}

func TestClient_EmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"model":"phi3","message":{"role":"assistant","content":""}}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "", "", 0).Complete(context.Background(), llm.UserPrompt("x"), nil)
	if !errors.Is(err, llm.ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}
