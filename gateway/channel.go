package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gred-clermont/gomero/gomero"
	"github.com/gred-clermont/gomero/store"
)

// gatewayChannel is a server-side raw pixel handle for one image.  It is
// owned by its opener and must not be shared across goroutines.
type gatewayChannel struct {
	g      *Gateway
	image  int64
	handle string
	pt     gomero.PixelType
	codec  string
	closed bool
}

// OpenChannel acquires a raw pixel handle on the server.  The handle pins
// the image's pixel buffer server-side until closed.
func (g *Gateway) OpenChannel(image int64) (store.RawChannel, error) {
	data, err := g.do(http.MethodPost, fmt.Sprintf("%s/api/image/%d/handle", g.base, image))
	if err != nil {
		return nil, fmt.Errorf("unable to open raw-data channel for image %d: %v", image, err)
	}
	var opened struct {
		Handle string           `json:"handle"`
		Type   gomero.PixelType `json:"type"`
	}
	if err := json.Unmarshal(data, &opened); err != nil {
		return nil, fmt.Errorf("unable to decode raw-data handle for image %d: %v", image, err)
	}
	if opened.Handle == "" {
		return nil, fmt.Errorf("server returned an empty raw-data handle for image %d", image)
	}
	return &gatewayChannel{
		g:      g,
		image:  image,
		handle: opened.Handle,
		pt:     opened.Type,
		codec:  g.codec,
	}, nil
}

// FetchPlaneRegion retrieves one encoded rectangle of one plane, decodes the
// wire payload, and length-checks it against the request.
func (ch *gatewayChannel) FetchPlaneRegion(c, z, t, x, y, w, h int32) (store.PlaneFragment, error) {
	pc := gomero.PlaneCoord{C: c, Z: z, T: t}
	if ch.closed {
		return nil, ch.accessError(pc, x, y, w, h, store.ErrChannelClosed)
	}
	timedLog := gomero.NewTimeLog()

	url := fmt.Sprintf("%s/api/handle/%s/region?c=%d&z=%d&t=%d&x=%d&y=%d&w=%d&h=%d&codec=%s",
		ch.g.base, ch.handle, c, z, t, x, y, w, h, ch.codec)
	resp, err := ch.g.get(url)
	if err != nil {
		return nil, ch.accessError(pc, x, y, w, h, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, ch.accessError(pc, x, y, w, h,
			fmt.Errorf("unexpected status code %d returned on region fetch", resp.StatusCode))
	}
	encoded, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ch.accessError(pc, x, y, w, h, err)
	}
	data, err := DecodePayload(ch.codec, encoded)
	if err != nil {
		return nil, ch.accessError(pc, x, y, w, h,
			fmt.Errorf("unable to decode %s payload: %v", ch.codec, err))
	}
	if expected := int(w) * int(h) * int(ch.pt.BytesPerPixel()); len(data) != expected {
		return nil, ch.accessError(pc, x, y, w, h,
			fmt.Errorf("expected %d bytes in region payload, got %d", expected, len(data)))
	}

	store.FetchBytes <- len(data)
	ch.g.logFetch(ch.image, pc, x, y, w, h, len(encoded))
	timedLog.Debugf("fetched %dx%d region at (%d,%d) of image %d plane %s, %d bytes on the wire",
		w, h, x, y, ch.image, pc, len(encoded))

	return &wireFragment{pt: ch.pt, w: w, h: h, data: data}, nil
}

// Close releases the server-side handle.  Safe to call once per open.
func (ch *gatewayChannel) Close() error {
	if ch.closed {
		return nil
	}
	ch.closed = true
	if _, err := ch.g.do(http.MethodDelete, fmt.Sprintf("%s/api/handle/%s", ch.g.base, ch.handle)); err != nil {
		return fmt.Errorf("unable to close raw-data channel for image %d: %v", ch.image, err)
	}
	return nil
}

func (ch *gatewayChannel) accessError(pc gomero.PlaneCoord, x, y, w, h int32, err error) *store.AccessError {
	return &store.AccessError{
		Op:    "region fetch",
		Image: ch.image,
		Plane: pc,
		X:     x, Y: y, W: w, H: h,
		Err: err,
	}
}

// wireFragment is a decoded region payload.
type wireFragment struct {
	pt   gomero.PixelType
	w, h int32
	data []byte
}

func (f *wireFragment) Width() int32         { return f.w }
func (f *wireFragment) Height() int32        { return f.h }
func (f *wireFragment) BytesPerPixel() int32 { return f.pt.BytesPerPixel() }
func (f *wireFragment) RawBytes() []byte     { return f.data }

func (f *wireFragment) Sample(row, col int32) float64 {
	return f.pt.SampleAt(f.data, int(row)*int(f.w)+int(col))
}
