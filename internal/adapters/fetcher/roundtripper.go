package fetcher

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/okian/weatheroracle/pkg/logger"
)

const snippetBytes = 256

// RoundTripper logs every outbound request with its status, latency and the
// head of the response body.
type RoundTripper struct {
	Logger logger.Logger
	Proxy  http.RoundTripper
}

// NewRoundTripper wraps proxy, or http.DefaultTransport when proxy is nil.
func NewRoundTripper(l logger.Logger, proxy http.RoundTripper) *RoundTripper {
	if proxy == nil {
		proxy = http.DefaultTransport
	}
	return &RoundTripper{Logger: l, Proxy: proxy}
}

func (l *RoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	start := time.Now()
	resp, err := l.Proxy.RoundTrip(req)
	duration := time.Since(start)

	if err != nil {
		l.Logger.Error(ctx, "HTTP request failed",
			logger.String("method", req.Method),
			logger.String("url", req.URL.String()),
			logger.Duration("duration", duration),
			logger.Error(err),
		)
		return nil, err
	}

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	_ = resp.Body.Close()
	if err != nil {
		l.Logger.Error(ctx, "failed to read response body",
			logger.String("method", req.Method),
			logger.String("url", req.URL.String()),
			logger.Duration("duration", duration),
			logger.Error(err),
		)
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(bodyBytes))

	snippet := bodyBytes
	if len(snippet) > snippetBytes {
		snippet = snippet[:snippetBytes]
	}
	l.Logger.Debug(ctx, "HTTP request completed",
		logger.String("method", req.Method),
		logger.String("url", req.URL.String()),
		logger.String("body_snippet", string(snippet)),
		logger.Int("status_code", resp.StatusCode),
		logger.Duration("duration", duration),
	)

	return resp, nil
}
