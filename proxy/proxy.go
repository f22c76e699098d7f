/*
	Package proxy implements a read-through caching HTTP proxy in front of
	a data source, for LAN-local reuse of fetched regions: one workstation
	connects to the remote repository and its neighbors read from the
	proxy's cache.  Responses are JSON for metadata and encoded region
	payloads for pixels, matching what the gateway consumes.
*/
package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rs/cors"
	"github.com/zenazn/goji/web"

	"github.com/gred-clermont/gomero/gateway"
	"github.com/gred-clermont/gomero/gomero"
	"github.com/gred-clermont/gomero/store"
)

// Config holds the [proxy] section of the client TOML configuration.
type Config struct {
	// Listen is the address to serve on, e.g. ":4082".
	Listen string `toml:"listen"`

	// Origins lists the allowed CORS origins; empty allows all.
	Origins []string `toml:"origins"`

	// Secret, when set, requires a JWT bearer token signed with it on
	// every request except the health check.
	Secret string `toml:"secret"`
}

// Proxy serves one data source over HTTP.
type Proxy struct {
	src    store.DataSource
	config Config
	mux    *web.Mux
}

// New builds the proxy routes over the given source.  Wrap the source with
// the cache package to get read-through caching.
func New(src store.DataSource, config Config) *Proxy {
	p := &Proxy{src: src, config: config, mux: web.New()}
	if config.Secret != "" {
		p.mux.Use(p.requireToken)
	}
	p.mux.Get("/health", p.health)
	p.mux.Get("/api/image/:image/metadata", p.metadata)
	p.mux.Get("/api/image/:image/planes", p.planes)
	p.mux.Get("/api/image/:image/color/:channel", p.color)
	p.mux.Get("/api/image/:image/region", p.region)
	return p
}

// Handler returns the proxy's HTTP handler with CORS applied.
func (p *Proxy) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: p.config.Origins,
		AllowedMethods: []string{http.MethodGet},
	})
	return c.Handler(p.mux)
}

// ListenAndServe blocks serving the proxy at the configured address.
func (p *Proxy) ListenAndServe() error {
	addr := p.config.Listen
	if addr == "" {
		addr = ":4082"
	}
	gomero.Infof("Proxy serving on %s\n", addr)
	return http.ListenAndServe(addr, p.Handler())
}

// requireToken is goji middleware enforcing a signed bearer token.
func (p *Proxy) requireToken(c *web.C, h http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			h.ServeHTTP(w, r)
			return
		}
		tokenString, err := gateway.BearerToken(r)
		if err != nil {
			badRequest(w, http.StatusUnauthorized, "%v", err)
			return
		}
		user, err := gateway.ParseToken(tokenString, p.config.Secret)
		if err != nil {
			badRequest(w, http.StatusUnauthorized, "unable to validate token: %v", err)
			return
		}
		if c.Env == nil {
			c.Env = make(map[interface{}]interface{})
		}
		c.Env["user"] = user
		h.ServeHTTP(w, r)
	}
	return http.HandlerFunc(fn)
}

func badRequest(w http.ResponseWriter, status int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	gomero.Warningf("proxy: %s\n", msg)
	http.Error(w, msg, status)
}

func imageParam(c web.C) (int64, error) {
	return strconv.ParseInt(c.URLParams["image"], 10, 64)
}

func (p *Proxy) health(c web.C, w http.ResponseWriter, r *http.Request) {
	fmt.Fprintln(w, "OK")
}

func (p *Proxy) metadata(c web.C, w http.ResponseWriter, r *http.Request) {
	image, err := imageParam(c)
	if err != nil {
		badRequest(w, http.StatusBadRequest, "bad image id %q", c.URLParams["image"])
		return
	}
	meta, err := p.src.ImageMetadata(image)
	if err != nil {
		badRequest(w, http.StatusNotFound, "unable to get metadata for image %d: %v", image, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(meta); err != nil {
		gomero.Errorf("proxy: unable to encode metadata for image %d: %v\n", image, err)
	}
}

func (p *Proxy) planes(c web.C, w http.ResponseWriter, r *http.Request) {
	image, err := imageParam(c)
	if err != nil {
		badRequest(w, http.StatusBadRequest, "bad image id %q", c.URLParams["image"])
		return
	}
	records, err := p.src.PlaneRecords(image)
	if err != nil {
		badRequest(w, http.StatusNotFound, "unable to get plane records for image %d: %v", image, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(records); err != nil {
		gomero.Errorf("proxy: unable to encode plane records for image %d: %v\n", image, err)
	}
}

func (p *Proxy) color(c web.C, w http.ResponseWriter, r *http.Request) {
	image, err := imageParam(c)
	if err != nil {
		badRequest(w, http.StatusBadRequest, "bad image id %q", c.URLParams["image"])
		return
	}
	channel, err := strconv.ParseInt(c.URLParams["channel"], 10, 32)
	if err != nil {
		badRequest(w, http.StatusBadRequest, "bad channel %q", c.URLParams["channel"])
		return
	}
	var color store.Color
	if r.URL.Query().Get("kind") == "live" {
		color, err = p.src.LiveColor(image, int32(channel))
	} else {
		color, err = p.src.ImportedColor(image, int32(channel))
	}
	if err != nil {
		badRequest(w, http.StatusNotFound, "unable to get color for image %d channel %d: %v",
			image, channel, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(color); err != nil {
		gomero.Errorf("proxy: unable to encode color for image %d: %v\n", image, err)
	}
}

// region serves one encoded plane rectangle.  Query parameters: c, z, t,
// x, y, w, h, and an optional codec (default raw).
func (p *Proxy) region(c web.C, w http.ResponseWriter, r *http.Request) {
	image, err := imageParam(c)
	if err != nil {
		badRequest(w, http.StatusBadRequest, "bad image id %q", c.URLParams["image"])
		return
	}
	query := r.URL.Query()
	var dims [7]int32
	for i, name := range []string{"c", "z", "t", "x", "y", "w", "h"} {
		v, err := strconv.ParseInt(query.Get(name), 10, 32)
		if err != nil {
			badRequest(w, http.StatusBadRequest, "bad query parameter %q: %q", name, query.Get(name))
			return
		}
		dims[i] = int32(v)
	}
	codec := query.Get("codec")
	if codec == "" {
		codec = gateway.CodecRaw
	}

	ch, err := p.src.OpenChannel(image)
	if err != nil {
		badRequest(w, http.StatusNotFound, "unable to open channel for image %d: %v", image, err)
		return
	}
	defer ch.Close()
	frag, err := ch.FetchPlaneRegion(dims[0], dims[1], dims[2], dims[3], dims[4], dims[5], dims[6])
	if err != nil {
		badRequest(w, http.StatusBadGateway, "unable to fetch region of image %d: %v", image, err)
		return
	}
	encoded, err := gateway.EncodePayload(codec, frag.RawBytes())
	if err != nil {
		badRequest(w, http.StatusBadRequest, "unable to encode region payload: %v", err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := w.Write(encoded); err != nil {
		gomero.Errorf("proxy: unable to write region of image %d: %v\n", image, err)
	}
}
