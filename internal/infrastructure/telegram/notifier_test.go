package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"AuctionHarvester/internal/infrastructure/httpclient"
)

func TestPublishDigestPostsForm(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/botTOKEN/sendMessage" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("chat_id") != "42" || r.PostForm.Get("parse_mode") != "Markdown" {
			t.Errorf("unexpected form %v", r.PostForm)
		}
		if !strings.Contains(r.PostForm.Get("text"), "Created: 1") {
			t.Errorf("digest not forwarded: %q", r.PostForm.Get("text"))
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	n := NewNotifier(httpclient.New(httpclient.Options{MaxAttempts: 1}), server.URL, "TOKEN", "42")
	if err := n.PublishDigest(context.Background(), "Created: 1"); err != nil {
		t.Fatalf("PublishDigest: %v", err)
	}
}

func TestPublishDigestMisconfigured(t *testing.T) {
	t.Parallel()

	n := NewNotifier(httpclient.New(httpclient.Options{MaxAttempts: 1}), "", "", "")
	if err := n.PublishDigest(context.Background(), "x"); err == nil {
		t.Fatalf("expected error without token")
	}
}

func TestPublishDigestSurfacesStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	n := NewNotifier(httpclient.New(httpclient.Options{MaxAttempts: 1}), server.URL, "TOKEN", "42")
	err := n.PublishDigest(context.Background(), "x")
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected status error, got %v", err)
	}
}
