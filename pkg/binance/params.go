package binance

import (
	"net/url"
	"strings"
)

// Params is an insertion-ordered parameter list. Binance signs the exact
// query string that goes on the wire, so the encoding must be stable and
// identical between signing and transmission; url.Values sorts keys on
// Encode and cannot be used here.
type Params struct {
	pairs []pair
}

type pair struct {
	key   string
	value string
}

// NewParams returns an empty parameter list.
func NewParams() *Params {
	return &Params{}
}

// Set appends key=value, replacing the value in place if key already exists.
func (p *Params) Set(key, value string) *Params {
	for i := range p.pairs {
		if p.pairs[i].key == key {
			p.pairs[i].value = value
			return p
		}
	}
	p.pairs = append(p.pairs, pair{key: key, value: value})
	return p
}

// Get returns the value for key, or "" if absent.
func (p *Params) Get(key string) string {
	for _, kv := range p.pairs {
		if kv.key == key {
			return kv.value
		}
	}
	return ""
}

// Len returns the number of parameters.
func (p *Params) Len() int {
	if p == nil {
		return 0
	}
	return len(p.pairs)
}

// Clone returns a copy so per-attempt signing never mutates the caller's
// business parameters.
func (p *Params) Clone() *Params {
	if p == nil {
		return NewParams()
	}
	cp := &Params{pairs: make([]pair, len(p.pairs))}
	copy(cp.pairs, p.pairs)
	return cp
}

// Encode serializes the parameters in insertion order using standard
// query escaping. This is the canonical query string: the signature is
// computed over it and it is sent verbatim on the wire.
func (p *Params) Encode() string {
	if p == nil || len(p.pairs) == 0 {
		return ""
	}
	var b strings.Builder
	for i, kv := range p.pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(kv.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(kv.value))
	}
	return b.String()
}

// redacted returns a loggable map with the signature removed.
func (p *Params) redacted() map[string]string {
	out := make(map[string]string, len(p.pairs))
	for _, kv := range p.pairs {
		if kv.key == "signature" {
			continue
		}
		out[kv.key] = kv.value
	}
	return out
}
