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
	"log/slog"
	"sync"
	"sync/atomic"

	applog "novelplay/internal/log"
)

// Receipt is one finished round-trip handed back to the main loop. The
// callback bound at request time runs on the main thread when the queue is
// drained, never on the worker goroutine.
type Receipt struct {
	Response Response
	Err      error
	callback func(Response, error)
}

// Request is an in-flight remote operation. Cancel may be called from the
// main thread at any time; the worker checks the flag after its round-trip
// returns and drops the result without queuing a receipt. The network call
// itself is not aborted.
type Request struct {
	cancelled atomic.Bool
}

// Cancel marks the request so its callback never runs.
func (r *Request) Cancel() { r.cancelled.Store(true) }

// Queue is the handoff point between worker goroutines and the main loop.
// Receipts come out in enqueue (FIFO) order, which may differ from network
// completion order only in that it is fixed at enqueue time; callbacks always
// run on the drainer's timeline.
type Queue struct {
	mu       sync.Mutex
	receipts []Receipt
}

func (q *Queue) push(r Receipt) {
	q.mu.Lock()
	q.receipts = append(q.receipts, r)
	q.mu.Unlock()
}

// Drain removes all queued receipts and invokes each callback in FIFO
// order. Called once per frame from the main loop.
func (q *Queue) Drain() {
	q.mu.Lock()
	batch := q.receipts
	q.receipts = nil
	q.mu.Unlock()

	for _, r := range batch {
		if r.callback != nil {
			r.callback(r.Response, r.Err)
		}
	}
}

// Len returns the number of receipts waiting to be drained.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.receipts)
}

// Worker runs remote operations without blocking the frame loop. Each
// request gets its own goroutine; the in-flight count lets the reader pause
// while story-critical requests are outstanding.
type Worker struct {
	client   *Client
	queue    *Queue
	inFlight atomic.Int64
	log      *slog.Logger
}

// NewWorker wires a worker to its client and receipt queue.
func NewWorker(client *Client, queue *Queue) *Worker {
	return &Worker{
		client: client,
		queue:  queue,
		log:    applog.WithComponent("remote"),
	}
}

// InFlight returns the number of requests still waiting on the network.
func (w *Worker) InFlight() int { return int(w.inFlight.Load()) }

// operation is the blocking call a submission performs on its goroutine.
type operation func(context.Context) (Response, error)

// submit runs op on a new goroutine and queues the receipt, unless the
// request was cancelled while the call was in progress.
func (w *Worker) submit(ctx context.Context, name string, op operation, callback func(Response, error)) *Request {
	req := &Request{}
	w.inFlight.Add(1)

	go func() {
		defer w.inFlight.Add(-1)

		resp, err := op(ctx)
		if req.cancelled.Load() {
			w.log.Debug("request cancelled, dropping result", slog.String("op", name))
			return
		}
		if err != nil {
			w.log.Warn("remote request failed",
				slog.String("op", name),
				slog.String("code", string(resp.Code)),
				slog.Any("err", err),
			)
		}
		w.queue.push(Receipt{Response: resp, Err: err, callback: callback})
	}()
	return req
}

// Verify checks the license key in the background.
func (w *Worker) Verify(ctx context.Context, callback func(Response, error)) *Request {
	return w.submit(ctx, "verify", w.client.Verify, callback)
}

// Save stores a key/value pair on the server in the background.
func (w *Worker) Save(ctx context.Context, key, value string, callback func(Response, error)) *Request {
	return w.submit(ctx, "remote_save", func(ctx context.Context) (Response, error) {
		return w.client.Save(ctx, key, value)
	}, callback)
}

// Get fetches a saved value in the background.
func (w *Worker) Get(ctx context.Context, key string, callback func(Response, error)) *Request {
	return w.submit(ctx, "remote_get", func(ctx context.Context) (Response, error) {
		return w.client.Get(ctx, key)
	}, callback)
}

// Call runs a remote script in the background.
func (w *Worker) Call(ctx context.Context, command, arguments string, callback func(Response, error)) *Request {
	return w.submit(ctx, "remote_call", func(ctx context.Context) (Response, error) {
		return w.client.Call(ctx, command, arguments)
	}, callback)
}
