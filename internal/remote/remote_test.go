/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientVerify(t *testing.T) {
	var gotPath string
	var gotBody request
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(Response{Code: CodeSuccess})
	})

	c := NewClient(srv.URL+"/", "key-123", "My Story", time.Second, false)
	resp, err := c.Verify(context.Background())
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !resp.Code.OK() {
		t.Fatalf("code = %q", resp.Code)
	}
	if gotPath != "/verify" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotBody.LicenseKey != "key-123" || gotBody.StoryTitle != "My Story" {
		t.Fatalf("request body = %+v", gotBody)
	}
}

func TestClientMissingLicenseKey(t *testing.T) {
	c := NewClient("http://unreachable.invalid", "", "Story", time.Second, false)
	resp, err := c.Verify(context.Background())
	if err != nil {
		t.Fatalf("missing key should short-circuit, got %v", err)
	}
	if resp.Code != CodeLicenseMissing {
		t.Fatalf("code = %q", resp.Code)
	}
}

func TestClientConnectionError(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "key", "Story", 200*time.Millisecond, false)
	resp, err := c.Verify(context.Background())
	if err == nil {
		t.Fatalf("expected a transport error")
	}
	if resp.Code != CodeConnectionError {
		t.Fatalf("code = %q", resp.Code)
	}
}

func TestClientSaveAndGet(t *testing.T) {
	store := map[string]string{}
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body request
		json.NewDecoder(r.Body).Decode(&body)
		switch r.URL.Path {
		case "/remote_save":
			store[body.Key] = body.Value
			json.NewEncoder(w).Encode(Response{Code: CodeSuccess})
		case "/remote_get":
			v, ok := store[body.Key]
			if !ok {
				json.NewEncoder(w).Encode(Response{Code: CodeNotFound})
				return
			}
			json.NewEncoder(w).Encode(Response{Code: CodeSuccess, Value: v})
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	})

	c := NewClient(srv.URL, "key", "Story", time.Second, false)
	ctx := context.Background()

	if resp, err := c.Save(ctx, "slot1", "chapter 3"); err != nil || !resp.Code.OK() {
		t.Fatalf("Save: %v, %v", resp, err)
	}
	resp, err := c.Get(ctx, "slot1")
	if err != nil || resp.Value != "chapter 3" {
		t.Fatalf("Get: %v, %v", resp, err)
	}
	if resp, _ := c.Get(ctx, "nope"); resp.Code != CodeNotFound {
		t.Fatalf("missing key code = %q", resp.Code)
	}
}

func waitInFlightZero(t *testing.T, w *Worker) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for w.InFlight() > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("requests never completed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWorkerDrainFIFO(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body request
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(Response{Code: CodeSuccess, Value: body.Key})
	})

	queue := &Queue{}
	w := NewWorker(NewClient(srv.URL, "key", "Story", time.Second, false), queue)
	ctx := context.Background()

	// Queue three receipts directly to pin the FIFO contract, then check
	// that worker completions land in the same queue.
	var order []string
	for _, name := range []string{"a", "b", "c"} {
		name := name
		queue.push(Receipt{callback: func(Response, error) { order = append(order, name) }})
	}
	queue.Drain()
	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Fatalf("drain order = %v", order)
	}

	var value string
	w.Get(ctx, "slot", func(resp Response, err error) { value = resp.Value })
	waitInFlightZero(t, w)
	if queue.Len() != 1 {
		t.Fatalf("queue length = %d", queue.Len())
	}
	queue.Drain()
	if value != "slot" {
		t.Fatalf("callback value = %q", value)
	}
}

func TestWorkerCancellation(t *testing.T) {
	release := make(chan struct{})
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		json.NewEncoder(w).Encode(Response{Code: CodeSuccess})
	})

	queue := &Queue{}
	w := NewWorker(NewClient(srv.URL, "key", "Story", 5*time.Second, false), queue)

	called := false
	req := w.Verify(context.Background(), func(Response, error) { called = true })
	if w.InFlight() != 1 {
		t.Fatalf("in-flight = %d", w.InFlight())
	}

	// Cancel while the round-trip is blocked, then let it finish.
	req.Cancel()
	close(release)
	waitInFlightZero(t, w)

	if queue.Len() != 0 {
		t.Fatalf("cancelled request queued a receipt")
	}
	queue.Drain()
	if called {
		t.Fatalf("cancelled callback ran")
	}
}
