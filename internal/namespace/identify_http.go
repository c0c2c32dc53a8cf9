package namespace

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/worldline-go/klient"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Identifier resolves a bearer credential presented by a connecting client
// to the opaque client identity Binder.Bind expects (spec §4.5, §6.4's
// "identifyClient collaborator"). Client identity resolution itself is
// explicitly out of this module's scope (no transport, no auth protocol is
// mandated) — Identifier is a reference implementation a deployment can
// swap out for whatever identity service it actually runs.
type Identifier interface {
	Identify(ctx context.Context, credential string) (clientID string, err error)
}

// HTTPIdentifier resolves client identity against an external identity
// endpoint, authenticating itself to that endpoint via OAuth2 client
// credentials (golang.org/x/oauth2/clientcredentials) and performing the
// lookup over a klient.Client the same way the teacher's provider clients
// reach external HTTP services (internal/service/llm/vertex).
//
// This is reference wiring only: nothing in this module requires an
// identity service to look like this one, and a deployment with its own
// client-identity source can implement Identifier directly instead.
type HTTPIdentifier struct {
	endpoint    string
	tokenSource oauth2.TokenSource
	client      *klient.Client
}

// NewHTTPIdentifier builds an HTTPIdentifier that calls endpoint, a
// GET <endpoint>?credential=<credential> returning {"client_id":"..."}.
// Requests to endpoint are authenticated with a bearer token drawn from
// oauthCfg's client-credentials token source, refreshed automatically the
// same way the teacher's vertex provider refreshes its Google ADC token
// (internal/service/llm/vertex.Provider.tokenSource).
func NewHTTPIdentifier(ctx context.Context, endpoint string, oauthCfg clientcredentials.Config) (*HTTPIdentifier, error) {
	cl, err := klient.New(
		klient.WithDisableBaseURLCheck(true),
		klient.WithDisableRetry(true),
	)
	if err != nil {
		return nil, fmt.Errorf("identify_http: build client: %w", err)
	}
	return &HTTPIdentifier{endpoint: endpoint, tokenSource: oauthCfg.TokenSource(ctx), client: cl}, nil
}

type identifyResponse struct {
	ClientID string `json:"client_id"`
}

// Identify implements Identifier.
func (h *HTTPIdentifier) Identify(ctx context.Context, credential string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("identify_http: build request: %w", err)
	}
	q := req.URL.Query()
	q.Set("credential", credential)
	req.URL.RawQuery = q.Encode()

	token, err := h.tokenSource.Token()
	if err != nil {
		return "", fmt.Errorf("identify_http: refresh token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := h.client.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("identify_http: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("identify_http: identity service returned %s", resp.Status)
	}

	var out identifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("identify_http: decode response: %w", err)
	}
	if out.ClientID == "" {
		return "", fmt.Errorf("identify_http: identity service returned no client_id")
	}
	return out.ClientID, nil
}
