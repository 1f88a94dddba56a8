package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDecodeError(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantMsg   string
		wantField string
	}{
		{"error field", `{"error":"Upload too large"}`, "Upload too large", ""},
		{"message field", `{"message":"Not allowed"}`, "Not allowed", ""},
		{"error wins", `{"error":"first","message":"second"}`, "first", ""},
		{"non string error", `{"error":{"code":1},"message":"readable"}`, "readable", ""},
		{"field list", `{"message":"bad","fields":{"city":["Required","Too short"]}}`, "bad", "Required"},
		{"field string", `{"fields":{"city":"Required"}}`, "fallback", "Required"},
		{"not json", `<html>Bad gateway</html>`, "fallback", ""},
		{"empty", ``, "fallback", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := decodeError(http.StatusBadRequest, []byte(tt.body), "fallback")
			if err.Message != tt.wantMsg {
				t.Fatalf("message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Fields["city"] != tt.wantField {
				t.Fatalf("fields = %v", err.Fields)
			}
		})
	}
}

func TestDecodeList(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"array", `[{"id":1},{"id":2}]`, 2},
		{"items", `{"items":[{"id":1}]}`, 1},
		{"items missing", `{"total":0}`, 0},
		{"empty", ``, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out []map[string]any
			if err := decodeList(json.RawMessage(tt.raw), &out); err != nil {
				t.Fatal(err)
			}
			if len(out) != tt.want {
				t.Fatalf("len = %d, want %d", len(out), tt.want)
			}
		})
	}
}

func TestHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL+"/", WithToken(" tok "), WithCompanyID("9"))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if err := c.do(ctx, call{method: http.MethodGet, path: "/x"}, nil, nil); err != nil {
		t.Fatal(err)
	}
	if got.Get("Authorization") != "Bearer tok" || got.Get(headerCompany) != "9" || got.Get(headerRequestID) == "" {
		t.Fatalf("recruiter headers = %v", got)
	}

	if err := c.do(ctx, call{method: http.MethodGet, path: "/x", candidate: true}, nil, nil); err != nil {
		t.Fatal(err)
	}
	if got.Get(headerCompany) != "" {
		t.Fatalf("candidate call sent company header %q", got.Get(headerCompany))
	}
	if got.Get("Authorization") != "Bearer tok" {
		t.Fatalf("candidate call dropped bearer token")
	}
}

func TestIsTransportError(t *testing.T) {
	c, _ := New("http://127.0.0.1:1")
	err := c.do(context.Background(), call{method: http.MethodGet, path: "/"}, nil, nil)
	if !isTransportError(context.Background(), err) {
		t.Fatalf("connection refused should be a transport error: %v", err)
	}
	if isTransportError(context.Background(), &APIError{Status: 500}) {
		t.Fatal("APIError is not a transport error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = c.do(ctx, call{method: http.MethodGet, path: "/"}, nil, nil)
	if isTransportError(ctx, err) {
		t.Fatal("cancelled context should not trigger a retry")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestDispositionFilename(t *testing.T) {
	tests := map[string]string{
		`attachment; filename="resume.pdf"`:                 "resume.pdf",
		`attachment; filename*=UTF-8''r%C3%A9sum%C3%A9.pdf`: "résumé.pdf",
		`attachment`:                                        "",
		``:                                                  "",
	}
	for header, want := range tests {
		if got := dispositionFilename(header); got != want {
			t.Errorf("dispositionFilename(%q) = %q, want %q", header, got, want)
		}
	}
}
