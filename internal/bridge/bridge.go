// Package bridge demonstrates the shipping interface a cloud-bridge
// collaborator would implement (spec §1 Non-goals: "cross-node
// replication" and "any cloud-bridge shipping observations upstream" are
// both explicitly out of scope). This package wires the seam and a thin
// reference client over github.com/worldline-go/klient, grounded on the
// teacher's outbound-HTTP pattern (internal/server/discover.go
// klientForConfig), without implementing an actual bridge protocol.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/worldline-go/klient"
)

// Shipper is the cloud-bridge collaborator: given an observation path and
// its newest sample as a JSON buffer entry (spec §4.2), ship it upstream.
// Nothing in this module depends on a concrete Shipper existing; a
// deployment with no bridge simply never constructs one.
type Shipper interface {
	Ship(ctx context.Context, path string, bufferEntryJSON string) error
}

// HTTPShipper posts each observation update to a configured upstream
// endpoint. Reference wiring only, matching the teacher's klient usage
// for outbound calls (internal/server/discover.go klientForConfig).
type HTTPShipper struct {
	endpoint string
	client   *klient.Client
}

// NewHTTPShipper builds an HTTPShipper that POSTs to endpoint.
func NewHTTPShipper(endpoint string, proxy string) (*HTTPShipper, error) {
	opts := []klient.OptionClientFn{
		klient.WithDisableBaseURLCheck(true),
		klient.WithLogger(slog.Default()),
	}
	if proxy != "" {
		opts = append(opts, klient.WithProxy(proxy))
	}
	cl, err := klient.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("bridge: build client: %w", err)
	}
	return &HTTPShipper{endpoint: endpoint, client: cl}, nil
}

type shipPayload struct {
	Path  string `json:"path"`
	Entry string `json:"entry"`
}

// Ship implements Shipper.
func (h *HTTPShipper) Ship(ctx context.Context, path string, bufferEntryJSON string) error {
	body, err := json.Marshal(shipPayload{Path: path, Entry: bufferEntryJSON})
	if err != nil {
		return fmt.Errorf("bridge: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("bridge: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("bridge: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("bridge: upstream returned %s", resp.Status)
	}
	return nil
}
