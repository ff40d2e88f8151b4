/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package awssign

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
	"path"
	"strings"

	infraerrors "github.com/panteparak/console-broker/shared/infrastructure/errors"
)

var allowedMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
}

// canonicalRequest is a request normalized for signing.
type canonicalRequest struct {
	method  string
	url     *url.URL
	headers http.Header
	body    []byte

	// verbatimPath is set for S3, whose object keys are signed as sent.
	verbatimPath bool
}

// canonicalize normalizes method, URL, headers and body. Two requests that
// differ only in query order, header name case or map key order canonicalize
// identically.
func canonicalize(req Request) (*canonicalRequest, error) {
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	if !allowedMethods[method] {
		return nil, infraerrors.NewSigningInputError("method", "unsupported HTTP method "+method)
	}

	service := strings.TrimSpace(req.Service)
	u, err := canonicalURL(req.URL, service)
	if err != nil {
		return nil, err
	}

	if service == "" {
		return nil, infraerrors.NewSigningInputError("service", "service name is required")
	}

	headers := make(http.Header, len(req.Headers)+1)
	for name, value := range req.Headers {
		if !validHeaderName(name) {
			return nil, infraerrors.NewSigningInputError("headers", "invalid header name "+name)
		}
		if strings.ContainsAny(value, "\r\n") {
			return nil, infraerrors.NewSigningInputError("headers", "header "+name+" contains a line break")
		}
		headers.Set(name, strings.TrimSpace(value))
	}
	// Host always comes from the URL.
	headers.Del("Host")

	body, err := canonicalBody(req.Body)
	if err != nil {
		return nil, err
	}

	return &canonicalRequest{
		method:       method,
		url:          u,
		headers:      headers,
		body:         body,
		verbatimPath: isS3(service),
	}, nil
}

// isS3 reports whether service signs paths without normalization or a
// second round of escaping.
func isS3(service string) bool {
	return strings.EqualFold(service, "s3")
}

// canonicalURL normalizes raw. Dot segments are resolved except for S3,
// where "//" and ".." are part of the object key and the path is kept as
// sent, escaping included.
func canonicalURL(raw, service string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, infraerrors.NewSigningInputError("url", err.Error())
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, infraerrors.NewSigningInputError("url", "URL must be absolute http or https")
	}
	if u.Hostname() == "" {
		return nil, infraerrors.NewSigningInputError("url", "URL has no host")
	}
	if u.User != nil {
		return nil, infraerrors.NewSigningInputError("url", "URL must not carry user info")
	}
	u.Host = strings.ToLower(u.Host)

	switch {
	case u.Path == "":
		u.Path = "/"
		u.RawPath = ""
	case isS3(service):
		// RawPath keeps the caller's escaping.
	default:
		cleaned := path.Clean(u.Path)
		if strings.HasSuffix(u.Path, "/") && cleaned != "/" {
			cleaned += "/"
		}
		u.Path = cleaned
		u.RawPath = ""
	}
	u.RawQuery = u.Query().Encode()
	u.Fragment = ""
	u.RawFragment = ""
	return u, nil
}

// canonicalBody renders the body: nil is empty, strings and bytes are used
// verbatim, anything else is JSON with sorted map keys.
func canonicalBody(body interface{}) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return []byte{}, nil
	case []byte:
		return b, nil
	case string:
		return []byte(b), nil
	case json.RawMessage:
		return b, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(body); err != nil {
		return nil, infraerrors.NewSigningInputError("body", err.Error())
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func validHeaderName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if r <= ' ' || r >= 0x7f || strings.ContainsRune("\"(),/:;<=>?@[\\]{}", r) {
			return false
		}
	}
	return true
}
