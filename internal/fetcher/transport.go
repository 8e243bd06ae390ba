package fetcher

import "net/http"

// headerInjectingTransport adds the provider's headers for the request's
// host to every request, redirects included. A redirect to another host
// therefore never carries the first host's cookie.
type headerInjectingTransport struct {
	base     http.RoundTripper
	provider HeaderProvider
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	extra := t.provider.HeadersFor(req.URL.Host)
	if len(extra) == 0 {
		return t.base.RoundTrip(req)
	}

	clone := req.Clone(req.Context())
	for key, values := range extra {
		if key == "Cookie" {
			if existing := clone.Header.Get("Cookie"); existing != "" {
				clone.Header.Set("Cookie", existing+"; "+values[0])
				continue
			}
		}
		clone.Header[key] = values
	}

	return t.base.RoundTrip(clone)
}
