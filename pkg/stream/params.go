package stream

import (
	"net/url"
	"strconv"
)

// ListenParams are the wire-compatible query parameters shared by live
// connections across adapters. Provider-specific fields travel in Extra and
// are passed through untouched.
type ListenParams struct {
	Model      string
	Channels   uint8
	SampleRate uint32
	Languages  []string
	Keywords   []string
	Extra      url.Values
}

// Query encodes the parameters into URL query values. Languages and keywords
// are repeatable; Extra values are merged last so provider passthrough wins.
func (p ListenParams) Query() url.Values {
	q := url.Values{}
	if p.Model != "" {
		q.Set("model", p.Model)
	}
	if p.Channels > 0 {
		q.Set("channels", strconv.Itoa(int(p.Channels)))
	}
	if p.SampleRate > 0 {
		q.Set("sample_rate", strconv.FormatUint(uint64(p.SampleRate), 10))
	}
	for _, lang := range p.Languages {
		q.Add("language", lang)
	}
	for _, kw := range p.Keywords {
		q.Add("keywords", kw)
	}
	for k, vs := range p.Extra {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	return q
}
