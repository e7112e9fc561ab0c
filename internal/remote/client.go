/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package remote talks to the story's license and save-data server. Network
// round-trips run on worker goroutines; results come back to the main loop
// through a FIFO receipt queue drained once per frame, so all story state
// stays single-owner on the main thread.
package remote

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ResponseCode classifies the server handshake result.
type ResponseCode string

const (
	CodeSuccess         ResponseCode = "success"
	CodeConnectionError ResponseCode = "connection_error"
	CodeSSLError        ResponseCode = "ssl_error"
	CodeLicenseMissing  ResponseCode = "license_key_missing"
	CodeLicenseNotFound ResponseCode = "license_key_not_found"
	CodeLicenseLocked   ResponseCode = "license_key_locked"
	CodeScriptError     ResponseCode = "remote_script_error"
	CodeNotFound        ResponseCode = "not_found"
	CodeUnknown         ResponseCode = "unknown"
)

// OK reports whether the code is the success code.
func (c ResponseCode) OK() bool { return c == CodeSuccess }

// Response is the server's reply to any request.
type Response struct {
	Code  ResponseCode `json:"code"`
	Value string       `json:"value,omitempty"`
	Error string       `json:"error,omitempty"`
}

// Client posts JSON requests to the remote endpoint. The license key rides
// along on every request; the server decides what the key may do.
type Client struct {
	BaseURL    string
	LicenseKey string
	StoryTitle string
	client     *http.Client
}

// NewClient creates a client for the given endpoint. baseURL may include a
// trailing slash; it is normalized. insecure skips certificate verification
// for stories pointing at self-signed test servers.
func NewClient(baseURL, licenseKey, storyTitle string, timeout time.Duration, insecure bool) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	transport := http.DefaultTransport
	if insecure {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		LicenseKey: licenseKey,
		StoryTitle: storyTitle,
		client:     &http.Client{Timeout: timeout, Transport: transport},
	}
}

// request is the JSON body posted to every endpoint.
type request struct {
	LicenseKey string `json:"license_key"`
	StoryTitle string `json:"story_title"`
	Key        string `json:"key,omitempty"`
	Value      string `json:"value,omitempty"`
	Command    string `json:"command,omitempty"`
	Arguments  string `json:"arguments,omitempty"`
}

func (c *Client) postJSON(ctx context.Context, path string, body request) (Response, error) {
	if c.LicenseKey == "" {
		return Response{Code: CodeLicenseMissing}, nil
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return Response{Code: CodeUnknown}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return Response{Code: CodeUnknown}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if strings.Contains(err.Error(), "tls:") || strings.Contains(err.Error(), "x509:") {
			return Response{Code: CodeSSLError, Error: err.Error()}, err
		}
		return Response{Code: CodeConnectionError, Error: err.Error()}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Response{Code: CodeConnectionError},
			fmt.Errorf("server POST %s: %s", path, resp.Status)
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Response{Code: CodeUnknown}, fmt.Errorf("decode response: %w", err)
	}
	if out.Code == "" {
		out.Code = CodeUnknown
	}
	return out, nil
}

// Verify checks the license key with the server.
func (c *Client) Verify(ctx context.Context) (Response, error) {
	return c.postJSON(ctx, "/verify", request{
		LicenseKey: c.LicenseKey,
		StoryTitle: c.StoryTitle,
	})
}

// Save stores a value on the server under the viewer's license key.
func (c *Client) Save(ctx context.Context, key, value string) (Response, error) {
	return c.postJSON(ctx, "/remote_save", request{
		LicenseKey: c.LicenseKey,
		StoryTitle: c.StoryTitle,
		Key:        key,
		Value:      value,
	})
}

// Get fetches a previously saved value.
func (c *Client) Get(ctx context.Context, key string) (Response, error) {
	return c.postJSON(ctx, "/remote_get", request{
		LicenseKey: c.LicenseKey,
		StoryTitle: c.StoryTitle,
		Key:        key,
	})
}

// Call runs a named remote script on the server.
func (c *Client) Call(ctx context.Context, command, arguments string) (Response, error) {
	return c.postJSON(ctx, "/remote_call", request{
		LicenseKey: c.LicenseKey,
		StoryTitle: c.StoryTitle,
		Command:    command,
		Arguments:  arguments,
	})
}
