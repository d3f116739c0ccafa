package gateway

import (
	"net/http"
	"net/url"
)

type requestOptions struct {
	method    string
	params    url.Values
	header    http.Header
	body      interface{}
	basicAuth bool
	username  string
	password  string
	raise     bool
}

// Option customises a single gateway request
type Option func(*requestOptions)

func newRequestOptions(opts []Option) *requestOptions {
	o := &requestOptions{
		method: http.MethodGet,
		params: url.Values{},
		header: http.Header{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithMethod sets the HTTP method (default GET)
func WithMethod(method string) Option {
	return func(o *requestOptions) { o.method = method }
}

// WithParam adds a query parameter
func WithParam(key, value string) Option {
	return func(o *requestOptions) { o.params.Add(key, value) }
}

// WithParams adds query parameters
func WithParams(params url.Values) Option {
	return func(o *requestOptions) {
		for key, values := range params {
			for _, v := range values {
				o.params.Add(key, v)
			}
		}
	}
}

// WithHeader sets a request header, overriding client defaults
func WithHeader(key, value string) Option {
	return func(o *requestOptions) { o.header.Set(key, value) }
}

// WithBasicAuth attaches HTTP basic credentials
func WithBasicAuth(username, password string) Option {
	return func(o *requestOptions) {
		o.basicAuth = true
		o.username = username
		o.password = password
	}
}

// WithJSONBody encodes v as the JSON request body
func WithJSONBody(v interface{}) Option {
	return func(o *requestOptions) { o.body = v }
}

// RaiseOnError turns non-200 responses into typed errors instead of an
// empty result
func RaiseOnError() Option {
	return func(o *requestOptions) { o.raise = true }
}
