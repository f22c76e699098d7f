/*
	Package gateway implements the HTTP data source: sessions against a
	remote bioimage repository server, image metadata retrieval with schema
	validation, paginated plane record listing, channel color lookup, and
	raw pixel region fetches with negotiated payload compression.

	A Gateway satisfies store.DataSource, so the pixels engine and the
	hyperstack builder run unchanged against live servers.
*/
package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/blang/semver"
	"github.com/twinj/uuid"
	"golang.org/x/net/http2"

	"github.com/gred-clermont/gomero/gomero"
)

const (
	// DefaultKeepAliveSecs is the interval between session pings.
	DefaultKeepAliveSecs = 60

	// DefaultTimeoutSecs bounds any single HTTP exchange.
	DefaultTimeoutSecs = 120
)

// Config holds the [gateway] section of the client TOML configuration.
type Config struct {
	// Server is the base URL of the repository server, e.g.
	// "https://omero.example.org:4080".
	Server string `toml:"server"`

	// Username identifies the session owner in the signed token.
	Username string `toml:"username"`

	// SecretFile points to a file holding the shared HMAC secret;
	// Secret supplies it inline and wins when both are set.
	SecretFile string `toml:"secret_file"`
	Secret     string `toml:"secret"`

	// Compression selects the region payload codec: "raw", "snappy",
	// "zstd" or "gzip".  Empty means snappy.
	Compression string `toml:"compression"`

	// MinVersion, when set, refuses to connect to servers older than this
	// semantic version.
	MinVersion string `toml:"min_version"`

	// KeepAliveSecs is the session ping interval; 0 selects the default
	// and a negative value disables pings.
	KeepAliveSecs int `toml:"keepalive_secs"`

	// RequestLog is the path of an append-only binary log of region
	// fetches; empty disables request logging.
	RequestLog string `toml:"request_log"`

	// TimeoutSecs bounds any single HTTP exchange; 0 selects the default.
	TimeoutSecs int `toml:"timeout_secs"`
}

// Gateway is one authenticated session against a repository server.
type Gateway struct {
	config  Config
	client  *http.Client
	base    string
	token   string
	session string
	codec   string
	version semver.Version

	requestLog *requestLog

	stop chan struct{}
}

// Connect opens a session: it builds the tuned HTTP transport, signs the
// session token, verifies the server version, and starts the keep-alive
// ping.  Callers own the returned Gateway and must Close it.
func Connect(config Config) (*Gateway, error) {
	if config.Server == "" {
		return nil, fmt.Errorf("no server URL configured for gateway")
	}
	secret, err := config.secret()
	if err != nil {
		return nil, err
	}
	codec, err := payloadCodec(config.Compression)
	if err != nil {
		return nil, err
	}

	transport := &http.Transport{
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 50,
		IdleConnTimeout:     90 * time.Second,
	}
	if err := http2.ConfigureTransport(transport); err != nil {
		return nil, fmt.Errorf("unable to configure HTTP/2 transport: %v", err)
	}
	timeout := config.TimeoutSecs
	if timeout == 0 {
		timeout = DefaultTimeoutSecs
	}

	g := &Gateway{
		config:  config,
		base:    strings.TrimSuffix(config.Server, "/"),
		codec:   codec,
		session: fmt.Sprintf("%x", uuid.NewV4().Bytes()),
		client: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(timeout) * time.Second,
		},
		stop: make(chan struct{}),
	}
	if g.token, err = generateToken(config.Username, g.session, secret); err != nil {
		return nil, err
	}

	if err := g.checkServerVersion(); err != nil {
		return nil, err
	}

	if config.RequestLog != "" {
		if g.requestLog, err = openRequestLog(config.RequestLog); err != nil {
			return nil, fmt.Errorf("unable to open request log %q: %v", config.RequestLog, err)
		}
	}

	keepAlive := config.KeepAliveSecs
	if keepAlive == 0 {
		keepAlive = DefaultKeepAliveSecs
	}
	if keepAlive > 0 {
		go g.keepAlive(time.Duration(keepAlive) * time.Second)
	}

	gomero.Infof("Connected to %s (server version %s), session %s\n", g.base, g.version, g.session)
	return g, nil
}

// Session returns the client-generated session id.
func (g *Gateway) Session() string {
	return g.session
}

// ServerVersion returns the version reported by the server at connect time.
func (g *Gateway) ServerVersion() semver.Version {
	return g.version
}

// Close ends the session: stops the keep-alive ping and closes the request
// log.  The Gateway must not be used afterwards.
func (g *Gateway) Close() error {
	close(g.stop)
	if g.requestLog != nil {
		return g.requestLog.close()
	}
	return nil
}

func (c Config) secret() (string, error) {
	if c.Secret != "" {
		return c.Secret, nil
	}
	if c.SecretFile == "" {
		return "", fmt.Errorf("no secret or secret_file configured for gateway")
	}
	data, err := readFileTrimmed(c.SecretFile)
	if err != nil {
		return "", fmt.Errorf("unable to read gateway secret file %q: %v", c.SecretFile, err)
	}
	return data, nil
}

// keepAlive pings the server on a fixed interval until Close.
func (g *Gateway) keepAlive(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-g.stop:
			return
		case <-ticker.C:
			if err := g.ping(); err != nil {
				gomero.Warningf("session %s keep-alive ping failed: %v\n", g.session, err)
			}
		}
	}
}

func (g *Gateway) ping() error {
	resp, err := g.get(g.base + "/api/ping")
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code %d returned on ping", resp.StatusCode)
	}
	return nil
}

// get issues an authorized GET.
func (g *Gateway) get(url string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	g.authorize(req)
	return g.client.Do(req)
}

// getJSON issues an authorized GET and decodes the response body into v.
func (g *Gateway) getJSON(url string, v interface{}) error {
	resp, err := g.get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code %d returned from %s", resp.StatusCode, url)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// do issues an authorized bodyless request with the given method, returning
// the response body.
func (g *Gateway) do(method, url string) ([]byte, error) {
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		return nil, err
	}
	g.authorize(req)
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d returned from %s %s", resp.StatusCode, method, url)
	}
	return io.ReadAll(resp.Body)
}
