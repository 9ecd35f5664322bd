package service

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

func quoteJoin(keys []string) string {
	sort.Strings(keys)
	return fmt.Sprintf("'%s'", strings.Join(keys, "', '"))
}

func validateKeys(keys map[string]struct{}, mandatory, optional []string) error {
	var missing []string
	for _, k := range mandatory {
		if _, ok := keys[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return BadRequest(fmt.Sprintf("Missing request parameters: %s", quoteJoin(missing)))
	}

	allowed := make(map[string]struct{}, len(mandatory)+len(optional))
	for _, k := range mandatory {
		allowed[k] = struct{}{}
	}
	for _, k := range optional {
		allowed[k] = struct{}{}
	}
	var extra []string
	for k := range keys {
		if _, ok := allowed[k]; !ok {
			extra = append(extra, k)
		}
	}
	if len(extra) > 0 {
		return BadRequest(fmt.Sprintf("Unexpected request parameters: %s", quoteJoin(extra)))
	}
	return nil
}

// Params checks that params contains every mandatory key and nothing outside
// mandatory and optional. It returns params unchanged on success.
func Params[V any](params map[string]V, mandatory []string, optional ...string) (map[string]V, error) {
	keys := make(map[string]struct{}, len(params))
	for k := range params {
		keys[k] = struct{}{}
	}
	if err := validateKeys(keys, mandatory, optional); err != nil {
		return nil, err
	}
	return params, nil
}

// JSONParams decodes the request body as a JSON object and validates its
// keys. Malformed bodies map to a 400 APIError.
func JSONParams(r *http.Request, mandatory []string, optional ...string) (map[string]any, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	var params map[string]any
	if err := json.Unmarshal(body, &params); err != nil {
		return nil, BadRequest("Invalid JSON request body.")
	}
	return Params(params, mandatory, optional...)
}

// URLParams validates the request's query parameters and returns the first
// value for each key. A request_id query parameter, when present, is captured
// as the client-facing request ID before validation.
func URLParams(r *http.Request, mandatory []string, optional ...string) (map[string]string, error) {
	values := r.URL.Query()
	if id := values.Get("request_id"); id != "" {
		SetRequestID(r, id)
	}

	keys := make(map[string]struct{}, len(values))
	for k := range values {
		keys[k] = struct{}{}
	}
	if err := validateKeys(keys, mandatory, optional); err != nil {
		return nil, err
	}

	params := make(map[string]string, len(values))
	for k := range values {
		params[k] = values.Get(k)
	}
	return params, nil
}
