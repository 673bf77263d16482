package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"optsel/pkg/api"
)

// ErrUnknownDecision is returned when feedback references a decision id
// the server no longer holds.
var ErrUnknownDecision = errors.New("unknown decision id")

// Client talks to a selector server over HTTP.
type Client struct {
	base string
	http *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		base: baseURL,
		http: &http.Client{Timeout: 5 * time.Second},
	}
}

// Decide asks the server for the pass combination to use for query.
func (c *Client) Decide(query string) (api.DecideResponse, error) {
	var resp api.DecideResponse
	body, err := json.Marshal(api.DecideRequest{Query: query})
	if err != nil {
		return resp, err
	}
	r, err := c.http.Post(c.base+"/api/decide", "application/json", bytes.NewReader(body))
	if err != nil {
		return resp, err
	}
	defer r.Body.Close()
	if r.StatusCode != http.StatusOK {
		return resp, fmt.Errorf("decide: server returned %s", r.Status)
	}
	if err := json.NewDecoder(r.Body).Decode(&resp); err != nil {
		return resp, err
	}
	return resp, nil
}

// Feedback reports the observed latency for an exploring decision.
func (c *Client) Feedback(decisionID uint64, latencyMS float64) error {
	return c.postFeedback(api.FeedbackRequest{DecisionID: decisionID, LatencyMS: latencyMS})
}

// Discard tells the server to drop the pending measurement, e.g. after
// a failed query.
func (c *Client) Discard(decisionID uint64) error {
	return c.postFeedback(api.FeedbackRequest{DecisionID: decisionID, Discard: true})
}

func (c *Client) postFeedback(req api.FeedbackRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}
	r, err := c.http.Post(c.base+"/api/feedback", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer r.Body.Close()
	io.Copy(io.Discard, r.Body)
	switch r.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return ErrUnknownDecision
	default:
		return fmt.Errorf("feedback: server returned %s", r.Status)
	}
}

// Stats fetches the server's decision counters.
func (c *Client) Stats() (map[string]uint64, error) {
	r, err := c.http.Get(c.base + "/api/stats")
	if err != nil {
		return nil, err
	}
	defer r.Body.Close()
	if r.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stats: server returned %s", r.Status)
	}
	stats := make(map[string]uint64)
	if err := json.NewDecoder(r.Body).Decode(&stats); err != nil {
		return nil, err
	}
	return stats, nil
}
