package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const requestTimeout = 20 * time.Second

// TokenCache is the shared key-value store used for short-lived provider auth
// tokens. Get returns ok=false on a miss or an expired entry.
type TokenCache interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// httpCaller is the transport shared by provider implementations: one bounded
// HTTP round trip decoded into the Result envelope, with an audit log line per
// call. A timeout is indistinguishable from any other transport failure.
type httpCaller struct {
	http *http.Client
	log  *slog.Logger
}

func newHTTPCaller(log *slog.Logger) httpCaller {
	return httpCaller{
		http: &http.Client{Timeout: requestTimeout},
		log:  log,
	}
}

type callOpts struct {
	method  string
	url     string
	form    url.Values
	headers map[string]string
	orderID string
	silent  bool // token fetches are not audit-logged
}

func (c httpCaller) call(ctx context.Context, o callOpts) Result {
	res := Result{Success: true}

	var body io.Reader
	if o.form != nil {
		body = strings.NewReader(o.form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, o.method, o.url, body)
	if err != nil {
		res.Success = false
		res.Err = fmt.Sprintf("build request: %v", err)
		c.logCall(o, res)
		return res
	}
	for k, v := range o.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		res.Success = false
		res.Err = fmt.Sprintf("request failed: %v", err)
		c.logCall(o, res)
		return res
	}
	defer resp.Body.Close()

	res.StatusCode = resp.StatusCode
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		res.Success = false
		res.Err = fmt.Sprintf("read response: %v", err)
		c.logCall(o, res)
		return res
	}
	if err := json.Unmarshal(raw, &res.Raw); err != nil {
		// some endpoints answer with a bare JSON array or non-JSON body
		var list []any
		if json.Unmarshal(raw, &list) == nil && len(list) > 0 {
			if m, ok := list[0].(map[string]any); ok {
				res.Raw = m
			}
		}
	}
	if resp.StatusCode >= 300 {
		res.Success = false
		res.Err = fmt.Sprintf("http status %d, body: %s", resp.StatusCode, truncate(string(raw), 512))
	}
	c.logCall(o, res)
	return res
}

func (c httpCaller) logCall(o callOpts, res Result) {
	if o.silent || c.log == nil {
		return
	}
	attrs := []any{
		"url", o.url,
		"method", o.method,
		"success", res.Success,
		"status_code", res.StatusCode,
	}
	if o.orderID != "" {
		attrs = append(attrs, "order_id", o.orderID)
	}
	if res.Err != "" {
		attrs = append(attrs, "error", res.Err)
	}
	if res.Raw != nil {
		if b, err := json.Marshal(res.Raw); err == nil {
			attrs = append(attrs, "response", truncate(string(b), 2048))
		}
	}
	if res.Success {
		c.log.Info("payment provider request", attrs...)
	} else {
		c.log.Warn("payment provider request failed", attrs...)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...truncated..."
}

// getParam walks a decoded response looking for the first occurrence of the
// named field, descending into nested objects.
func getParam(params map[string]any, name string) any {
	for k, v := range params {
		if k == name {
			return v
		}
		if nested, ok := v.(map[string]any); ok {
			if item := getParam(nested, name); item != nil {
				return item
			}
		}
	}
	return nil
}

func paramString(params map[string]any, name string) string {
	switch v := getParam(params, name).(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
