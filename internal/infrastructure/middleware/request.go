package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const maxBodyBytes = 1 << 20

// ErrBodyTooLarge is returned for request bodies over the 1 MiB limit
var ErrBodyTooLarge = errors.New("request body too large")

// AbsoluteURL reconstructs the URL the marketplace called: scheme, Host header
// (including any non-default port) and route path, without the query.
func AbsoluteURL(r *http.Request) string {
	return requestScheme(r) + "://" + r.Host + r.URL.EscapedPath()
}

func requestScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
	}
	return "http"
}

// QueryParams returns the query string parameters
func QueryParams(r *http.Request) (url.Values, error) {
	return r.URL.Query(), nil
}

// SignedParams collects the query string and the JSON or form body into one
// parameter set. The body is buffered and restored so handlers can read it again.
func SignedParams(r *http.Request) (url.Values, error) {
	params := r.URL.Query()

	body, err := bufferBody(r)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return params, nil
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded":
		form, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, fmt.Errorf("failed to parse form body: %w", err)
		}
		for k, v := range form {
			params[k] = v
		}
	default:
		fields, err := decodeJSONFields(body)
		if err != nil {
			return nil, err
		}
		for k, v := range fields {
			params.Set(k, v)
		}
	}
	return params, nil
}

// bufferBody reads the request body and puts a fresh reader back
func bufferBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	_ = r.Body.Close()
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return nil, ErrBodyTooLarge
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

// decodeJSONFields flattens a JSON object's top level members into strings
func decodeJSONFields(body []byte) (map[string]string, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode JSON body: %w", err)
	}

	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
			fields[k] = ""
		case string:
			fields[k] = val
		case json.Number:
			fields[k] = val.String()
		case bool:
			fields[k] = strconv.FormatBool(val)
		default:
			encoded, err := json.Marshal(val)
			if err != nil {
				return nil, fmt.Errorf("failed to encode field %s: %w", k, err)
			}
			fields[k] = string(encoded)
		}
	}
	return fields, nil
}
