package forwarder

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nchanged/vitakube/internal/metric"
)

func TestSenderSend(t *testing.T) {
	var got metric.Batch
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("expected POST, got %s", r.Method)
		}
		if r.Header.Get("Authorization") != "Bearer token-123" {
			t.Fatalf("missing auth header")
		}
		body := readBody(t, r)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	sender := NewSender(server.URL, "token-123", 2*time.Second, false)
	batch := metric.Batch{
		Node: "node-a",
		Metrics: []metric.RawMetric{
			{Type: metric.TypeContainer, PodID: "kubepods-pod1.slice", Key: "cpu_ms", Value: 42, Timestamp: 123},
		},
	}

	if err := sender.Send(context.Background(), batch); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got.Node != "node-a" || len(got.Metrics) != 1 || got.Metrics[0].Key != "cpu_ms" {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestSenderSendGzip(t *testing.T) {
	var got metric.Batch
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Encoding") != "gzip" {
			t.Fatalf("expected gzip content encoding")
		}
		body := readBody(t, r)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewSender(server.URL, "", 2*time.Second, true)
	batch := metric.Batch{
		Node:    "node-b",
		Metrics: []metric.RawMetric{{Type: metric.TypeNodeCPU, Key: "user", Value: 1}},
	}
	if err := sender.Send(context.Background(), batch); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got.Node != "node-b" {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestSenderSkipsEmptyBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("empty batch must not be posted")
	}))
	defer server.Close()

	sender := NewSender(server.URL, "", 2*time.Second, false)
	if err := sender.Send(context.Background(), metric.Batch{Node: "node-a"}); err != nil {
		t.Fatalf("send: %v", err)
	}
}

func readBody(t *testing.T, r *http.Request) []byte {
	t.Helper()
	var reader io.Reader = r.Body
	if r.Header.Get("Content-Encoding") == "gzip" {
		zr, err := gzip.NewReader(r.Body)
		if err != nil {
			t.Fatalf("gzip reader: %v", err)
		}
		defer zr.Close()
		reader = zr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return data
}
