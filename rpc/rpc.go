/*
	Package rpc implements an alternative session transport for colocated
	deployments using gorpc: a process that already holds a data source
	(a gateway session, a cache, or a blob volume) serves it over TCP, and
	clients consume it through the same store interfaces they use for
	direct access.
*/
package rpc

import (
	"errors"

	"github.com/valyala/gorpc"

	"github.com/gred-clermont/gomero/store"
)

const (
	// DefaultAddress is the default address for serving colocated clients.
	DefaultAddress = "localhost:4081"
)

var (
	ErrClientUninitialized = errors.New("client not initialized")
	ErrBadSession          = errors.New("bad session id; not found on server")
)

// Call names routed through the dispatcher.  Each name is unique across
// the code base.
const (
	sendOpenChannel   = "store.OpenChannel"
	sendCloseChannel  = "store.CloseChannel"
	sendFetchRegion   = "store.FetchRegion"
	sendImageMetadata = "store.ImageMetadata"
	sendPlaneRecords  = "store.PlaneRecords"
	sendChannelColor  = "store.ChannelColor"
)

// SessionID uniquely identifies one open raw-data channel on the server.
type SessionID uint64

// --- wire types ---

type openChannelReq struct {
	Image int64
}

type fetchRegionReq struct {
	Session    SessionID
	C, Z, T    int32
	X, Y, W, H int32
}

type fetchRegionResp struct {
	W, H int32
	Data []byte
}

type planeRecordsResp struct {
	Records []store.PlaneRecord
}

type channelColorReq struct {
	Image   int64
	Channel int32
	Live    bool
}

func init() {
	gorpc.RegisterType(&openChannelReq{})
	gorpc.RegisterType(&fetchRegionReq{})
	gorpc.RegisterType(&fetchRegionResp{})
	gorpc.RegisterType(&planeRecordsResp{})
	gorpc.RegisterType(&channelColorReq{})
	gorpc.RegisterType(SessionID(0))
	gorpc.RegisterType(&store.ImageMeta{})
	gorpc.RegisterType(&store.Color{})
}
