/*
	Package blobvol implements a bucket-backed data source: images
	pre-materialized as chunked planes in object storage (GCS, local
	files, or OpenStack Swift), readable offline without a repository
	server.  A Volume satisfies store.DataSource, so the pixels engine
	and the hyperstack builder run unchanged against buckets.

	Layout: a JSON volume descriptor at the key "info", one object per
	chunk at "chunks/<c>_<z>_<t>/<gx>_<gy>".  Chunks absent from the
	bucket read as zero-filled, so sparse volumes need not store empty
	regions.
*/
package blobvol

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // registers the file:// scheme
	"gocloud.dev/blob/gcsblob"
	"gocloud.dev/gcerrors"
	"gocloud.dev/gcp"
	"golang.org/x/oauth2/google"

	"github.com/gred-clermont/gomero/gomero"
	"github.com/gred-clermont/gomero/store"
)

const (
	// infoKey locates the JSON volume descriptor inside the bucket.
	infoKey = "info"

	// gcsReadScope is the OAuth scope needed to read volume buckets.
	gcsReadScope = "https://www.googleapis.com/auth/devstorage.read_only"
)

// Config holds the [blob] section of the client TOML configuration.
type Config struct {
	// Ref locates the bucket, e.g. "gs://my-volumes/exp42" or
	// "file:///data/volumes/exp42".
	Ref string `toml:"ref"`

	// JWTFile points to Google service-account credentials for gs refs;
	// empty falls back to application default credentials.
	JWTFile string `toml:"jwt_file"`

	// Codec names the chunk payload codec: "raw", "gzip" or "zstd".
	// Only consulted when creating volumes; reads use the descriptor.
	Codec string `toml:"codec"`

	// Swift connection settings; when Auth is set, Ref is interpreted as
	// a Swift container name and the gocloud path is bypassed.
	Swift SwiftConfig `toml:"swift"`
}

// VolumeInfo is the JSON volume descriptor stored at the info key.
type VolumeInfo struct {
	Image int64  `json:"image"`
	Name  string `json:"name"`

	Pixels store.PixelsMeta `json:"pixels"`

	// Chunk dimensions; every plane is stored as a grid of ChunkW x ChunkH
	// rectangles.
	ChunkW int32 `json:"chunk_w"`
	ChunkH int32 `json:"chunk_h"`

	// Codec names the chunk payload encoding: "raw", "gzip" or "zstd".
	Codec string `json:"codec"`

	// Colors holds the imported display color per channel, index 0-based.
	Colors []store.Color `json:"colors,omitempty"`

	// Planes optionally embeds the acquisition records.
	Planes []store.PlaneRecord `json:"planes,omitempty"`
}

// objects is the minimal bucket surface a Volume reads through.  Both the
// gocloud and Swift backends implement it.  A missing key reads as nil, nil.
type objects interface {
	read(ctx context.Context, key string) ([]byte, error)
	write(ctx context.Context, key string, data []byte) error
	close() error
}

// Volume is one chunked image volume in a bucket.
type Volume struct {
	ref     string
	objects objects
	info    VolumeInfo
}

// Open reads the volume descriptor from the bucket named by config.Ref.
func Open(ctx context.Context, config Config) (*Volume, error) {
	var (
		objs objects
		err  error
	)
	if config.Swift.Auth != "" {
		objs, err = openSwift(config.Swift, config.Ref)
	} else {
		objs, err = openBucket(ctx, config)
	}
	if err != nil {
		return nil, err
	}
	data, err := objs.read(ctx, infoKey)
	if err != nil {
		objs.close()
		return nil, fmt.Errorf("unable to read volume descriptor @ %q: %v", config.Ref, err)
	}
	if data == nil {
		objs.close()
		return nil, fmt.Errorf("no volume descriptor found @ %q", config.Ref)
	}
	v := &Volume{ref: config.Ref, objects: objs}
	if err := json.Unmarshal(data, &v.info); err != nil {
		objs.close()
		return nil, fmt.Errorf("malformed volume descriptor @ %q: %v", config.Ref, err)
	}
	if err := v.info.check(); err != nil {
		objs.close()
		return nil, fmt.Errorf("bad volume descriptor @ %q: %v", config.Ref, err)
	}
	gomero.Infof("Opened blob volume %q [image %d, %s] @ %q\n",
		v.info.Name, v.info.Image, v.info.Pixels.Type, config.Ref)
	return v, nil
}

// Create writes a fresh volume descriptor to the bucket and returns the
// volume ready for PutChunk calls.
func Create(ctx context.Context, config Config, info VolumeInfo) (*Volume, error) {
	if err := info.check(); err != nil {
		return nil, err
	}
	var (
		objs objects
		err  error
	)
	if config.Swift.Auth != "" {
		objs, err = openSwift(config.Swift, config.Ref)
	} else {
		objs, err = openBucket(ctx, config)
	}
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(info)
	if err != nil {
		objs.close()
		return nil, err
	}
	if err := objs.write(ctx, infoKey, data); err != nil {
		objs.close()
		return nil, fmt.Errorf("unable to write volume descriptor @ %q: %v", config.Ref, err)
	}
	return &Volume{ref: config.Ref, objects: objs, info: info}, nil
}

func (info VolumeInfo) check() error {
	if info.ChunkW <= 0 || info.ChunkH <= 0 {
		return fmt.Errorf("chunk dimensions %dx%d must be positive", info.ChunkW, info.ChunkH)
	}
	px := info.Pixels
	if px.SizeX < 1 || px.SizeY < 1 || px.SizeC < 1 || px.SizeZ < 1 || px.SizeT < 1 {
		return fmt.Errorf("image dimensions %dx%dx%dx%dx%d must all be at least 1",
			px.SizeX, px.SizeY, px.SizeC, px.SizeZ, px.SizeT)
	}
	switch info.Codec {
	case "", "raw", "gzip", "zstd":
		return nil
	}
	return fmt.Errorf("unknown chunk codec %q", info.Codec)
}

// Info returns the volume descriptor.
func (v *Volume) Info() VolumeInfo {
	return v.info
}

// Close releases the bucket connection.
func (v *Volume) Close() error {
	return v.objects.close()
}

// --- store.MetadataSource implementation ---

func (v *Volume) ImageMetadata(image int64) (*store.ImageMeta, error) {
	if image != v.info.Image {
		return nil, fmt.Errorf("volume @ %q holds image %d: %w", v.ref, v.info.Image, store.ErrImageNotFound)
	}
	return &store.ImageMeta{
		ID:     v.info.Image,
		Name:   v.info.Name,
		Pixels: v.info.Pixels,
	}, nil
}

func (v *Volume) PlaneRecords(image int64) ([]store.PlaneRecord, error) {
	if image != v.info.Image {
		return nil, fmt.Errorf("volume @ %q holds image %d: %w", v.ref, v.info.Image, store.ErrImageNotFound)
	}
	records := make([]store.PlaneRecord, len(v.info.Planes))
	copy(records, v.info.Planes)
	return records, nil
}

// --- store.ColorSource implementation ---

// ImportedColor reads the per-channel color from the descriptor, defaulting
// to opaque white for channels without one.
func (v *Volume) ImportedColor(image int64, channel int32) (store.Color, error) {
	if image != v.info.Image {
		return store.Color{}, fmt.Errorf("volume @ %q holds image %d: %w", v.ref, v.info.Image, store.ErrImageNotFound)
	}
	if channel >= 0 && int(channel) < len(v.info.Colors) {
		return v.info.Colors[channel], nil
	}
	return store.Color{R: 255, G: 255, B: 255, A: 255}, nil
}

// LiveColor is the imported color: buckets carry no rendering engine.
func (v *Volume) LiveColor(image int64, channel int32) (store.Color, error) {
	return v.ImportedColor(image, channel)
}

// openBucket opens the gocloud bucket named by the config ref.  gs refs
// honor the configured service-account credentials; everything else goes
// through the URL opener (fileblob registers the file scheme).
func openBucket(ctx context.Context, config Config) (objects, error) {
	if strings.HasPrefix(config.Ref, "gs://") && config.JWTFile != "" {
		name, prefix := splitBucketRef(strings.TrimPrefix(config.Ref, "gs://"))
		jwtdata, err := os.ReadFile(config.JWTFile)
		if err != nil {
			return nil, fmt.Errorf("unable to load JSON Web Token file %q: %v", config.JWTFile, err)
		}
		conf, err := google.JWTConfigFromJSON(jwtdata, gcsReadScope)
		if err != nil {
			return nil, fmt.Errorf("unable to establish JWT config: %v", err)
		}
		client := &gcp.HTTPClient{Client: *conf.Client(ctx)}
		bucket, err := gcsblob.OpenBucket(ctx, client, name, nil)
		if err != nil {
			return nil, fmt.Errorf("unable to open bucket %q: %v", name, err)
		}
		if prefix != "" {
			bucket = blob.PrefixedBucket(bucket, prefix+"/")
		}
		return &gocloudObjects{bucket: bucket}, nil
	}
	bucket, err := blob.OpenBucket(ctx, config.Ref)
	if err != nil {
		return nil, fmt.Errorf("unable to open bucket @ %q: %v", config.Ref, err)
	}
	return &gocloudObjects{bucket: bucket}, nil
}

func splitBucketRef(ref string) (name, prefix string) {
	if i := strings.IndexByte(ref, '/'); i >= 0 {
		return ref[:i], strings.Trim(ref[i:], "/")
	}
	return ref, ""
}

// gocloudObjects adapts a *blob.Bucket to the objects interface.
type gocloudObjects struct {
	bucket *blob.Bucket
}

func (o *gocloudObjects) read(ctx context.Context, key string) ([]byte, error) {
	data, err := o.bucket.ReadAll(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

func (o *gocloudObjects) write(ctx context.Context, key string, data []byte) error {
	return o.bucket.WriteAll(ctx, key, data, nil)
}

func (o *gocloudObjects) close() error {
	return o.bucket.Close()
}
