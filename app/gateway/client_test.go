package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSubmit(t *testing.T) {
	var received Submission
	var authHeader string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &received); err != nil {
			t.Errorf("Invalid submission body: %v", err)
		}
		w.Write([]byte(`{"review_id": "r1"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "tok")

	response, err := client.Submit(context.Background(), Submission{
		ClipID:    "clip_01_0.85",
		VideoPath: "/clips/clip_01_0.85.mp4",
		Caption:   "Wait for it",
		Metadata:  Metadata{CreatorName: "Acme Gaming", PaymentLink: "https://pay.example/acme"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if received.ClipID != "clip_01_0.85" {
		t.Errorf("Unexpected clip ID %q", received.ClipID)
	}
	if received.Metadata.PaymentLink != "https://pay.example/acme" {
		t.Errorf("Unexpected payment link %q", received.Metadata.PaymentLink)
	}
	if authHeader != "Bearer tok" {
		t.Errorf("Unexpected auth header %q", authHeader)
	}
	if string(response) != `{"review_id": "r1"}` {
		t.Errorf("Expected verbatim response, got %s", response)
	}
}

func TestSubmitErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, "")

	_, err := client.Submit(context.Background(), Submission{ClipID: "clip_01_0.85"})
	if !errors.Is(err, ErrGateway) {
		t.Errorf("Expected ErrGateway, got %v", err)
	}
}

func TestSubmitUnreachable(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", "")

	_, err := client.Submit(context.Background(), Submission{ClipID: "clip_01_0.85"})
	if !errors.Is(err, ErrGateway) {
		t.Errorf("Expected ErrGateway, got %v", err)
	}
}
