package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ragmart/ragmart/internal/log"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(ClientConfig{
		BaseURL:           srv.URL,
		PageSize:          2,
		RequestsPerSecond: 1000, // no throttling in tests
		Timeout:           5 * time.Second,
	}, log.NewNop())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client, srv
}

func TestFetchPage(t *testing.T) {
	var gotQuery string
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"value":[
			{"Id":"doc-1","Titel":"Kamerbrief","Onderwerp":"Begroting","ContentType":"application/pdf"},
			{"Id":"doc-2","Titel":"Motie","Onderwerp":"Zorg","ContentType":"application/msword"}
		]}`))
	}))

	metas, err := client.FetchPage(context.Background(), 40)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}

	if gotQuery != "$top=2&$skip=40" {
		t.Errorf("query = %q, want $top=2&$skip=40", gotQuery)
	}
	if len(metas) != 2 {
		t.Fatalf("got %d metas, want 2", len(metas))
	}
	want := DocumentMeta{ID: "doc-1", Title: "Kamerbrief", Subject: "Begroting", ContentType: "application/pdf"}
	if metas[0] != want {
		t.Errorf("metas[0] = %+v, want %+v", metas[0], want)
	}
}

func TestFetchPage_EmptySetSignalsExhaustion(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"value":[]}`))
	}))

	metas, err := client.FetchPage(context.Background(), 0)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if len(metas) != 0 {
		t.Errorf("got %d metas, want 0", len(metas))
	}
}

func TestFetchPage_GatewayError(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	if _, err := client.FetchPage(context.Background(), 0); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestResource_RetriesAfterThrottle(t *testing.T) {
	var calls int
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("%PDF-1.4 payload"))
	}))

	data, err := client.Resource(context.Background(), "doc-9")
	if err != nil {
		t.Fatalf("Resource: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want retry after throttle", calls)
	}
	if string(data) != "%PDF-1.4 payload" {
		t.Errorf("unexpected payload %q", data)
	}
}

func TestResource_NotFoundDoesNotRetry(t *testing.T) {
	var calls int
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.NotFound(w, r)
	}))

	if _, err := client.Resource(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for 404 response")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want no retries on hard failure", calls)
	}
}

func TestResource_GivesUpAfterRepeatedThrottling(t *testing.T) {
	var calls int
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	if _, err := client.Resource(context.Background(), "doc-1"); err == nil {
		t.Fatal("expected error once retries are exhausted")
	}
	if calls != maxResourceRetries+1 {
		t.Errorf("calls = %d, want %d", calls, maxResourceRetries+1)
	}
}

func TestResourceURL(t *testing.T) {
	client, srv := testClient(t, http.NotFoundHandler())

	got := client.ResourceURL("abc-123")
	want := srv.URL + "/Document(abc-123)/resource"
	if got != want {
		t.Errorf("ResourceURL = %q, want %q", got, want)
	}
}

func TestResource_PathAddressesDocument(t *testing.T) {
	var gotPath string
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte("ok"))
	}))

	if _, err := client.Resource(context.Background(), "doc-7"); err != nil {
		t.Fatalf("Resource: %v", err)
	}
	if !strings.Contains(gotPath, "Document(doc-7)/resource") {
		t.Errorf("path = %q, want it to address Document(doc-7)/resource", gotPath)
	}
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	if _, err := NewClient(ClientConfig{}, nil); err == nil {
		t.Fatal("expected error for missing base URL")
	}
}
