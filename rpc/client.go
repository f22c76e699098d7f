/*
	This file implements the client side: a store.DataSource whose calls
	travel over a gorpc TCP connection to a colocated serving process.
*/

package rpc

import (
	"fmt"

	"github.com/valyala/gorpc"

	"github.com/gred-clermont/gomero/gomero"
	"github.com/gred-clermont/gomero/store"
)

// Source is a remote data source reached over gorpc.  It satisfies
// store.DataSource, so the pixels engine runs unchanged against it.
type Source struct {
	addr string
	c    *gorpc.Client
	dc   *gorpc.DispatcherClient
}

// Dial connects to a serving process at the given TCP address.
func Dial(addr string) (*Source, error) {
	if addr == "" {
		addr = DefaultAddress
	}
	c := gorpc.NewTCPClient(addr)
	c.Start()
	dc := newDispatcher().NewFuncClient(c)
	if dc == nil {
		c.Stop()
		return nil, fmt.Errorf("unable to create dispatcher client for %q", addr)
	}
	return &Source{addr: addr, c: c, dc: dc}, nil
}

// newDispatcher registers the call names so the func client can route them.
// The server side installs the handlers.
func newDispatcher() *gorpc.Dispatcher {
	d := gorpc.NewDispatcher()
	d.AddFunc(sendOpenChannel, func(req *openChannelReq) (SessionID, error) { return 0, nil })
	d.AddFunc(sendCloseChannel, func(sid SessionID) error { return nil })
	d.AddFunc(sendFetchRegion, func(req *fetchRegionReq) (*fetchRegionResp, error) { return nil, nil })
	d.AddFunc(sendImageMetadata, func(image int64) (*store.ImageMeta, error) { return nil, nil })
	d.AddFunc(sendPlaneRecords, func(image int64) (*planeRecordsResp, error) { return nil, nil })
	d.AddFunc(sendChannelColor, func(req *channelColorReq) (*store.Color, error) { return nil, nil })
	return d
}

// Close stops the underlying gorpc client.
func (s *Source) Close() error {
	if s.c == nil {
		return ErrClientUninitialized
	}
	s.c.Stop()
	s.c = nil
	return nil
}

// --- store.MetadataSource implementation ---

func (s *Source) ImageMetadata(image int64) (*store.ImageMeta, error) {
	if s.dc == nil {
		return nil, ErrClientUninitialized
	}
	resp, err := s.dc.Call(sendImageMetadata, image)
	if err != nil {
		return nil, fmt.Errorf("rpc metadata call for image %d failed: %v", image, err)
	}
	meta, ok := resp.(*store.ImageMeta)
	if !ok {
		return nil, fmt.Errorf("rpc server returned %T instead of image metadata", resp)
	}
	return meta, nil
}

func (s *Source) PlaneRecords(image int64) ([]store.PlaneRecord, error) {
	if s.dc == nil {
		return nil, ErrClientUninitialized
	}
	resp, err := s.dc.Call(sendPlaneRecords, image)
	if err != nil {
		return nil, fmt.Errorf("rpc plane records call for image %d failed: %v", image, err)
	}
	records, ok := resp.(*planeRecordsResp)
	if !ok {
		return nil, fmt.Errorf("rpc server returned %T instead of plane records", resp)
	}
	return records.Records, nil
}

// --- store.ColorSource implementation ---

func (s *Source) ImportedColor(image int64, channel int32) (store.Color, error) {
	return s.channelColor(image, channel, false)
}

func (s *Source) LiveColor(image int64, channel int32) (store.Color, error) {
	return s.channelColor(image, channel, true)
}

func (s *Source) channelColor(image int64, channel int32, live bool) (store.Color, error) {
	if s.dc == nil {
		return store.Color{}, ErrClientUninitialized
	}
	resp, err := s.dc.Call(sendChannelColor, &channelColorReq{Image: image, Channel: channel, Live: live})
	if err != nil {
		return store.Color{}, err
	}
	color, ok := resp.(*store.Color)
	if !ok {
		return store.Color{}, fmt.Errorf("rpc server returned %T instead of a color", resp)
	}
	return *color, nil
}

// --- store.ChannelSource implementation ---

// OpenChannel opens a raw-data channel on the serving process and returns
// a proxy bound to its session id.
func (s *Source) OpenChannel(image int64) (store.RawChannel, error) {
	if s.dc == nil {
		return nil, ErrClientUninitialized
	}
	meta, err := s.ImageMetadata(image)
	if err != nil {
		return nil, err
	}
	resp, err := s.dc.Call(sendOpenChannel, &openChannelReq{Image: image})
	if err != nil {
		return nil, fmt.Errorf("unable to open rpc channel for image %d: %v", image, err)
	}
	sid, ok := resp.(SessionID)
	if !ok {
		return nil, fmt.Errorf("rpc server returned %T instead of a session id", resp)
	}
	return &rpcChannel{src: s, image: image, pt: meta.Pixels.Type, sid: sid}, nil
}

type rpcChannel struct {
	src    *Source
	image  int64
	pt     gomero.PixelType
	sid    SessionID
	closed bool
}

func (ch *rpcChannel) FetchPlaneRegion(c, z, t, x, y, w, h int32) (store.PlaneFragment, error) {
	pc := gomero.PlaneCoord{C: c, Z: z, T: t}
	if ch.closed {
		return nil, ch.accessError(pc, x, y, w, h, store.ErrChannelClosed)
	}
	resp, err := ch.src.dc.Call(sendFetchRegion, &fetchRegionReq{
		Session: ch.sid,
		C:       c, Z: z, T: t,
		X: x, Y: y, W: w, H: h,
	})
	if err != nil {
		return nil, ch.accessError(pc, x, y, w, h, err)
	}
	region, ok := resp.(*fetchRegionResp)
	if !ok {
		return nil, ch.accessError(pc, x, y, w, h,
			fmt.Errorf("rpc server returned %T instead of a region", resp))
	}
	if expected := int(w) * int(h) * int(ch.pt.BytesPerPixel()); len(region.Data) != expected {
		return nil, ch.accessError(pc, x, y, w, h,
			fmt.Errorf("expected %d bytes in region payload, got %d", expected, len(region.Data)))
	}
	return &rpcFragment{pt: ch.pt, w: region.W, h: region.H, data: region.Data}, nil
}

func (ch *rpcChannel) Close() error {
	if ch.closed {
		return store.ErrChannelClosed
	}
	ch.closed = true
	if _, err := ch.src.dc.Call(sendCloseChannel, ch.sid); err != nil {
		return fmt.Errorf("unable to close rpc channel for image %d: %v", ch.image, err)
	}
	return nil
}

func (ch *rpcChannel) accessError(pc gomero.PlaneCoord, x, y, w, h int32, err error) *store.AccessError {
	return &store.AccessError{
		Op:    "rpc region fetch",
		Image: ch.image,
		Plane: pc,
		X:     x, Y: y, W: w, H: h,
		Err: err,
	}
}

type rpcFragment struct {
	pt   gomero.PixelType
	w, h int32
	data []byte
}

func (f *rpcFragment) Width() int32         { return f.w }
func (f *rpcFragment) Height() int32        { return f.h }
func (f *rpcFragment) BytesPerPixel() int32 { return f.pt.BytesPerPixel() }
func (f *rpcFragment) RawBytes() []byte     { return f.data }

func (f *rpcFragment) Sample(row, col int32) float64 {
	return f.pt.SampleAt(f.data, int(row)*int(f.w)+int(col))
}
