// Package signature resolves a 4-byte function selector to a
// human-readable signature. A local cache is checked first; on a miss, two
// independent lookup services are queried in parallel, and whichever
// answers first with a real signature wins and is written to the cache.
package signature

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/blocksentry/watchtower/internal/pkg/logger"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
)

// Cache is the local persisted cache consulted before the remote lookups,
// satisfied by *bolt.SelectorStore.
type Cache interface {
	Get(ctx context.Context, selector string) (string, bool, error)
	Put(ctx context.Context, selector, signature string) error
}

// lookupSource queries one remote signature-lookup API for a single
// selector, returning ok=false on a miss (not an error: an unknown
// selector is an expected outcome, not a failure).
type lookupSource func(ctx context.Context, client *retryablehttp.Client, selector string) (signature string, ok bool)

// Resolver implements txrouter.SignatureResolver.
type Resolver struct {
	client  *retryablehttp.Client
	cache   Cache
	sources []lookupSource
}

const (
	defaultFourByteBaseURL  = "https://www.4byte.directory/api/v1/signatures/"
	defaultOpenchainBaseURL = "https://api.openchain.xyz/signature-database/v1/lookup"
)

// New builds a Resolver querying the two well-known open signature
// databases in parallel.
func New(client *retryablehttp.Client, cache Cache) *Resolver {
	return &Resolver{
		client: client,
		cache:  cache,
		sources: []lookupSource{
			fourByteLookupAt(defaultFourByteBaseURL),
			openchainLookupAt(defaultOpenchainBaseURL),
		},
	}
}

// newForTesting builds a Resolver against arbitrary base URLs, so tests
// can point sources at an httptest.Server instead of the real APIs.
func newForTesting(client *retryablehttp.Client, cache Cache, fourByteBaseURL, openchainBaseURL string) *Resolver {
	return &Resolver{
		client: client,
		cache:  cache,
		sources: []lookupSource{
			fourByteLookupAt(fourByteBaseURL),
			openchainLookupAt(openchainBaseURL),
		},
	}
}

// Resolve satisfies txrouter.SignatureResolver. It checks the local cache
// first, then races both remote sources, and persists the first non-empty
// answer for next time.
func (r *Resolver) Resolve(ctx context.Context, selector string) (string, bool) {
	if cached, ok, err := r.cache.Get(ctx, selector); err == nil && ok {
		return cached, true
	}

	type result struct {
		signature string
		ok        bool
	}
	results := make(chan result, len(r.sources))
	for _, src := range r.sources {
		go func(src lookupSource) {
			sig, ok := src(ctx, r.client, selector)
			results <- result{sig, ok}
		}(src)
	}

	for range r.sources {
		select {
		case res := <-results:
			if res.ok {
				if err := r.cache.Put(ctx, selector, res.signature); err != nil {
					logger.Warn(ctx, "signature cache write failed", "selector", selector, "error", err)
				}
				return res.signature, true
			}
		case <-ctx.Done():
			return "", false
		}
	}
	return "", false
}

type fourByteResponse struct {
	Results []struct {
		TextSignature string `json:"text_signature"`
	} `json:"results"`
}

func fourByteLookupAt(baseURL string) lookupSource {
	return func(ctx context.Context, client *retryablehttp.Client, selector string) (string, bool) {
		url := fmt.Sprintf("%s?hex_signature=%s", baseURL, selector)
		var body fourByteResponse
		if !doJSONGet(ctx, client, url, &body) || len(body.Results) == 0 {
			return "", false
		}
		return body.Results[0].TextSignature, true
	}
}

type openchainResponse struct {
	Result struct {
		Function map[string][]struct {
			Name string `json:"name"`
		} `json:"function"`
	} `json:"result"`
}

func openchainLookupAt(baseURL string) lookupSource {
	return func(ctx context.Context, client *retryablehttp.Client, selector string) (string, bool) {
		url := fmt.Sprintf("%s?function=%s", baseURL, selector)
		var body openchainResponse
		if !doJSONGet(ctx, client, url, &body) {
			return "", false
		}
		matches, ok := body.Result.Function[selector]
		if !ok || len(matches) == 0 {
			return "", false
		}
		return matches[0].Name, true
	}
}

func doJSONGet(ctx context.Context, client *retryablehttp.Client, url string, out any) bool {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}
	return json.NewDecoder(resp.Body).Decode(out) == nil
}
