package myhttpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"os"
	"time"

	"github.com/MarcGrol/homechef/lib/mylog"
)

const (
	defaultTimeout = 5 * time.Second
)

type Option func(*jsonHTTPClient) error

// WithBasicAuth authenticates every request with the given credentials
func WithBasicAuth(username, password string) Option {
	return func(c *jsonHTTPClient) error {
		c.username = username
		c.password = password
		return nil
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *jsonHTTPClient) error {
		c.client.Timeout = timeout
		return nil
	}
}

// WithClientCertificate sets up mutual tls. caFile is optional and replaces the system roots.
func WithClientCertificate(certFile, keyFile, caFile string) Option {
	return func(c *jsonHTTPClient) error {
		cert, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return fmt.Errorf("error loading client certificate %s: %s", certFile, err)
		}
		tlsConfig := &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
		if caFile != "" {
			caCert, err := os.ReadFile(caFile)
			if err != nil {
				return fmt.Errorf("error reading ca-file %s: %s", caFile, err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(caCert) {
				return fmt.Errorf("no certificates found in ca-file %s", caFile)
			}
			tlsConfig.RootCAs = pool
		}
		c.client.Transport = &http.Transport{TLSClientConfig: tlsConfig}
		return nil
	}
}

type jsonHTTPClient struct {
	logger   mylog.Logger
	client   *http.Client
	username string
	password string
}

func New(options ...Option) (HTTPSender, error) {
	c := &jsonHTTPClient{
		logger: mylog.New("httpclient"),
		client: &http.Client{
			Timeout: defaultTimeout,
		},
	}
	for _, opt := range options {
		err := opt(c)
		if err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *jsonHTTPClient) Send(ctx context.Context, method string, url string, body []byte) (int, []byte, error) {
	status, _, respPayload, err := c.SendWithHeaders(ctx, method, url, body)
	return status, respPayload, err
}

func (c *jsonHTTPClient) SendWithHeaders(ctx context.Context, method string, url string, body []byte) (int, http.Header, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, []byte{}, fmt.Errorf("error creating http request for %s %s: %s", method, url, err)
	}

	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")

	// dumped before authentication so credentials never reach the logs
	reqDump, err := httputil.DumpRequestOut(httpReq, false)
	if err == nil {
		c.logger.Log(ctx, "", mylog.SeverityDebug, "HTTP-req:\n%s", string(reqDump))
	}

	if c.username != "" {
		httpReq.SetBasicAuth(c.username, c.password)
	}

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return 0, nil, []byte{}, fmt.Errorf("error sending %s %s: %s", method, url, err)
	}
	defer httpResp.Body.Close()

	respPayload, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return 0, nil, []byte{}, fmt.Errorf("error reading response %s %s: %s", method, url, err)
	}

	c.logger.Log(ctx, "", mylog.SeverityInfo, "HTTP %s %s -> %d", method, url, httpResp.StatusCode)

	return httpResp.StatusCode, httpResp.Header, respPayload, nil
}
