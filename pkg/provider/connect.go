package provider

import (
	"fmt"
	"net/url"
	"strings"
)

// Endpoint is a provider's canonical websocket location.
type Endpoint struct {
	// DefaultHost is the hardcoded host used when no api base is given.
	DefaultHost string
	// Domain is the canonical domain; bases whose host is this domain or a
	// subdomain of it are treated as the provider's own hosts.
	Domain string
	// Path is the provider's fixed websocket path.
	Path string
}

// Target is a resolved connection destination. Params travel separately so
// callers can merge listen parameters before dialing.
type Target struct {
	URL    string
	Params url.Values
}

// HTTP returns the target with its scheme lowered to http(s), for the batch
// upload path which shares the same host policy as the live connection.
func (t Target) HTTP() Target {
	out := t
	if strings.HasPrefix(t.URL, "wss://") {
		out.URL = "https://" + strings.TrimPrefix(t.URL, "wss://")
	} else if strings.HasPrefix(t.URL, "ws://") {
		out.URL = "http://" + strings.TrimPrefix(t.URL, "ws://")
	}
	return out
}

// DialURL joins the target with extra query values into a dialable url.
func (t Target) DialURL(extra url.Values) string {
	q := url.Values{}
	for k, vs := range t.Params {
		q[k] = append([]string(nil), vs...)
	}
	for k, vs := range extra {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	if len(q) == 0 {
		return t.URL
	}
	return t.URL + "?" + q.Encode()
}

// Resolve applies the shared connection-target policy:
//
//  1. empty base: the provider's default host and fixed path, no params;
//  2. the provider's own host: rewrite scheme only, keep the fixed path;
//  3. anything else is our reverse proxy: /listen plus a provider param so
//     the proxy can re-dispatch, merging any query already on the base;
//  4. http bases dial ws, https dials wss.
func (e Endpoint) Resolve(name Name, apiBase string) (Target, error) {
	if strings.TrimSpace(apiBase) == "" {
		return Target{URL: "wss://" + e.DefaultHost + e.Path, Params: url.Values{}}, nil
	}

	u, err := url.Parse(apiBase)
	if err != nil {
		return Target{}, fmt.Errorf("parse api base: %w", err)
	}
	if u.Host == "" {
		return Target{}, fmt.Errorf("api base %q has no host", apiBase)
	}

	scheme := "wss"
	switch u.Scheme {
	case "http", "ws":
		scheme = "ws"
	}

	if e.ownHost(u.Hostname()) {
		return Target{URL: scheme + "://" + u.Host + e.Path, Params: url.Values{}}, nil
	}

	params := u.Query()
	params.Set("provider", string(name))
	return Target{URL: scheme + "://" + u.Host + "/listen", Params: params}, nil
}

func (e Endpoint) ownHost(hostname string) bool {
	if hostname == e.DefaultHost || hostname == e.Domain {
		return true
	}
	return e.Domain != "" && strings.HasSuffix(hostname, "."+e.Domain)
}
