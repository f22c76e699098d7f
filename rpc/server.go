/*
	This file implements the serving side: a dispatcher that exposes a
	local store.DataSource over gorpc.  Raw-data channels opened on
	behalf of clients are tracked per session id and released on session
	close or server stop.
*/

package rpc

import (
	"fmt"
	"sync"

	"github.com/valyala/gorpc"

	"github.com/gred-clermont/gomero/gomero"
	"github.com/gred-clermont/gomero/store"
)

// Server exposes one data source over gorpc.
type Server struct {
	src  store.DataSource
	addr string
	s    *gorpc.Server

	sessionID SessionID
	channels  map[SessionID]store.RawChannel
	mu        sync.Mutex
}

// Serve starts a gorpc server for the data source at the given TCP address.
func Serve(addr string, src store.DataSource) (*Server, error) {
	if addr == "" {
		addr = DefaultAddress
	}
	srv := &Server{
		src:      src,
		addr:     addr,
		channels: make(map[SessionID]store.RawChannel),
	}
	srv.s = gorpc.NewTCPServer(addr, srv.dispatcher().NewHandlerFunc())
	if err := srv.s.Start(); err != nil {
		return nil, fmt.Errorf("unable to start rpc server @ %q: %v", addr, err)
	}
	gomero.Infof("Serving data source over rpc @ %q\n", addr)
	return srv, nil
}

// Stop shuts down the server and closes every channel still open.
func (srv *Server) Stop() {
	srv.s.Stop()
	srv.mu.Lock()
	defer srv.mu.Unlock()
	for sid, ch := range srv.channels {
		if err := ch.Close(); err != nil {
			gomero.Errorf("unable to close channel for rpc session %d: %v\n", sid, err)
		}
		delete(srv.channels, sid)
	}
}

func (srv *Server) dispatcher() *gorpc.Dispatcher {
	d := gorpc.NewDispatcher()
	d.AddFunc(sendOpenChannel, srv.openChannel)
	d.AddFunc(sendCloseChannel, srv.closeChannel)
	d.AddFunc(sendFetchRegion, srv.fetchRegion)
	d.AddFunc(sendImageMetadata, srv.imageMetadata)
	d.AddFunc(sendPlaneRecords, srv.planeRecords)
	d.AddFunc(sendChannelColor, srv.channelColor)
	return d
}

func (srv *Server) openChannel(req *openChannelReq) (SessionID, error) {
	ch, err := srv.src.OpenChannel(req.Image)
	if err != nil {
		return 0, err
	}
	srv.mu.Lock()
	srv.sessionID++
	sid := srv.sessionID
	srv.channels[sid] = ch
	srv.mu.Unlock()
	return sid, nil
}

func (srv *Server) closeChannel(sid SessionID) error {
	srv.mu.Lock()
	ch, found := srv.channels[sid]
	delete(srv.channels, sid)
	srv.mu.Unlock()
	if !found {
		return ErrBadSession
	}
	return ch.Close()
}

func (srv *Server) fetchRegion(req *fetchRegionReq) (*fetchRegionResp, error) {
	srv.mu.Lock()
	ch, found := srv.channels[req.Session]
	srv.mu.Unlock()
	if !found {
		return nil, ErrBadSession
	}
	frag, err := ch.FetchPlaneRegion(req.C, req.Z, req.T, req.X, req.Y, req.W, req.H)
	if err != nil {
		return nil, err
	}
	return &fetchRegionResp{
		W:    frag.Width(),
		H:    frag.Height(),
		Data: frag.RawBytes(),
	}, nil
}

func (srv *Server) imageMetadata(image int64) (*store.ImageMeta, error) {
	meta, err := srv.src.ImageMetadata(image)
	if err != nil {
		return nil, err
	}
	return meta, nil
}

func (srv *Server) planeRecords(image int64) (*planeRecordsResp, error) {
	records, err := srv.src.PlaneRecords(image)
	if err != nil {
		return nil, err
	}
	return &planeRecordsResp{Records: records}, nil
}

func (srv *Server) channelColor(req *channelColorReq) (*store.Color, error) {
	var color store.Color
	var err error
	if req.Live {
		color, err = srv.src.LiveColor(req.Image, req.Channel)
	} else {
		color, err = srv.src.ImportedColor(req.Image, req.Channel)
	}
	if err != nil {
		return nil, err
	}
	return &color, nil
}
