package nugul

import (
	"net/http"
	"time"
)

func defaultTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 20
	t.MaxConnsPerHost = 20
	t.MaxIdleConnsPerHost = 20
	return t
}

func defaultHTTP() *http.Client {
	return &http.Client{
		Transport: defaultTransport(),
		Timeout:   15 * time.Second,
	}
}

func isSuccess(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
