package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/janelia-flyem/protolog"

	"github.com/gred-clermont/gomero/gomero"
)

// fetchMsgTypeID tags region fetch records in the binary request log.
const fetchMsgTypeID uint16 = 1

// requestLog is an append-only binary log of region fetches, one typed
// JSON record per fetch.
type requestLog struct {
	sync.Mutex
	f *os.File
}

func openRequestLog(path string) (*requestLog, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}
	return &requestLog{f: f}, nil
}

func (rl *requestLog) close() error {
	rl.Lock()
	defer rl.Unlock()
	return rl.f.Close()
}

// append writes one typed record.
func (rl *requestLog) append(record map[string]interface{}) error {
	jsonmsg, err := json.Marshal(record)
	if err != nil {
		return err
	}
	rl.Lock()
	w := protolog.NewTypedWriter(fetchMsgTypeID, rl.f)
	_, err = w.Write(jsonmsg)
	rl.Unlock()
	return err
}

// logFetch records one region fetch in the request log and publishes it as
// activity.  Failures are logged, never surfaced: request accounting must
// not break pixel access.
func (g *Gateway) logFetch(image int64, pc gomero.PlaneCoord, x, y, w, h int32, wireBytes int) {
	record := map[string]interface{}{
		"TimeUnix":  time.Now().Unix(),
		"Session":   g.session,
		"User":      g.config.Username,
		"Image":     image,
		"C":         pc.C,
		"Z":         pc.Z,
		"T":         pc.T,
		"X":         x,
		"Y":         y,
		"W":         w,
		"H":         h,
		"WireBytes": wireBytes,
		"Codec":     g.codec,
	}
	if g.requestLog != nil {
		if err := g.requestLog.append(record); err != nil {
			gomero.Errorf("unable to append to request log: %v\n", err)
		}
	}
	LogActivity(record)
}

// ReadRequestLog streams a request log file as a JSON array of fetch records.
func ReadRequestLog(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := protolog.NewReader(f)
	if _, err := w.Write([]byte("[")); err != nil {
		return err
	}
	numRecords := 0
	for {
		typeID, jsondata, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("unable to read request log %q: %v", path, err)
		}
		if typeID != fetchMsgTypeID {
			gomero.Criticalf("Unknown message type %d in request log: %s\n", typeID, string(jsondata))
			continue
		}
		if numRecords != 0 {
			if _, err := w.Write([]byte(",")); err != nil {
				return err
			}
		}
		if _, err := w.Write(jsondata); err != nil {
			return err
		}
		numRecords++
	}
	_, err = w.Write([]byte("]"))
	return err
}
