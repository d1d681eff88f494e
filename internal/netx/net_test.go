package netx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestPostFormJSON(t *testing.T) {
	t.Run("success decodes body", func(t *testing.T) {
		var gotCT, gotMethod, gotSecret string

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotCT = r.Header.Get("Content-Type")
			_ = r.ParseForm()
			gotSecret = r.PostForm.Get("secret")
			_, _ = w.Write([]byte(`{"success":true}`))
		}))
		defer ts.Close()

		var out struct {
			Success bool `json:"success"`
		}
		err := PostFormJSON(context.Background(), ts.Client(), ts.URL, url.Values{"secret": {"s3"}}, &out)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gotMethod != http.MethodPost {
			t.Fatalf("method = %q, want POST", gotMethod)
		}
		if gotCT != "application/x-www-form-urlencoded" {
			t.Fatalf("Content-Type = %q", gotCT)
		}
		if gotSecret != "s3" {
			t.Fatalf("secret = %q, want s3", gotSecret)
		}
		if !out.Success {
			t.Fatal("expected success=true")
		}
	})

	t.Run("non-2xx -> error", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer ts.Close()

		err := PostFormJSON(context.Background(), ts.Client(), ts.URL, url.Values{}, nil)
		if err == nil || !strings.Contains(err.Error(), "post failed: 403") {
			t.Fatalf("error = %v, want 403", err)
		}
	})

	t.Run("bad json", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{`))
		}))
		defer ts.Close()

		var out map[string]any
		err := PostFormJSON(context.Background(), nil, ts.URL, url.Values{}, &out)
		if err == nil || !strings.Contains(err.Error(), "decode response") {
			t.Fatalf("error = %v, want decode error", err)
		}
	})

	t.Run("network error", func(t *testing.T) {
		ts := httptest.NewServer(http.NotFoundHandler())
		ts.Close()

		if err := PostFormJSON(context.Background(), nil, ts.URL, url.Values{}, nil); err == nil {
			t.Fatal("expected error, got nil")
		}
	})
}
