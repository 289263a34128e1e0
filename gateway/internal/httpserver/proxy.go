package httpserver

import (
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/Skotchmaster/marketplace/pkg/logging"
	echo "github.com/labstack/echo/v4"
)

func upstreamTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 60 * time.Second,
		}).DialContext,
		MaxIdleConns:          200,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// stripPath removes prefix from both the decoded and the raw path.
func stripPath(u *url.URL, prefix string) {
	if prefix == "" || !strings.HasPrefix(u.Path, prefix) {
		return
	}
	u.Path = strings.TrimPrefix(u.Path, prefix)
	if u.RawPath != "" {
		u.RawPath = strings.TrimPrefix(u.RawPath, prefix)
	}
}

// newProxy forwards to target with stripPrefix removed. The body is streamed
// as received, which keeps webhook signatures verifiable upstream.
func newProxy(target, stripPrefix string) (echo.HandlerFunc, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, err
	}

	p := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			stripPath(pr.Out.URL, stripPrefix)
			pr.SetURL(u)
			pr.SetXForwarded()
			if rid := pr.In.Header.Get(echo.HeaderXRequestID); rid != "" {
				pr.Out.Header.Set(echo.HeaderXRequestID, rid)
			}
		},
		Transport:     upstreamTransport(),
		FlushInterval: 100 * time.Millisecond,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logging.FromContext(r.Context()).Error("proxy_error", "target", target, "status", 502, "error", err)
			w.WriteHeader(http.StatusBadGateway)
		},
	}

	return func(c echo.Context) error {
		p.ServeHTTP(c.Response(), c.Request())
		return nil
	}, nil
}
