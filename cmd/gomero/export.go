// Blob volume export: materialize an image (or a bounded sub-volume of it)
// from the configured data source into a chunked bucket volume readable
// offline by the blobvol package.

package main

import (
	"context"
	"fmt"

	"github.com/gred-clermont/gomero/blobvol"
	"github.com/gred-clermont/gomero/gomero"
	"github.com/gred-clermont/gomero/pixels"
	"github.com/gred-clermont/gomero/store"
)

const (
	// exportChunkEdge is the side length of exported chunks.  Chunks stay
	// well under typical object store request limits at any pixel depth.
	exportChunkEdge = 1024

	// exportCodec compresses chunk payloads on the way into the bucket.
	exportCodec = "zstd"
)

func doExport(args []string, config tomlConfig) error {
	image, err := imageArg(args)
	if err != nil {
		return err
	}
	if len(args) < 2 {
		return fmt.Errorf("missing bucket ref argument")
	}
	ref := args[1]
	src, closer, err := openSource(config)
	if err != nil {
		return err
	}
	defer closer()

	px, err := pixels.New(src, image)
	if err != nil {
		return err
	}
	if err := px.LoadPlanesInfo(); err != nil {
		return err
	}
	meta := px.Meta()

	colors := make([]store.Color, meta.SizeC)
	for c := int32(0); c < meta.SizeC; c++ {
		color, err := src.ImportedColor(image, c)
		if err != nil {
			gomero.Warningf("unable to get imported color for channel %d; exporting white: %v\n", c, err)
			color = store.Color{R: 255, G: 255, B: 255, A: 255}
		}
		colors[c] = color
	}

	blobConfig := config.Blob
	blobConfig.Ref = ref
	ctx := context.Background()
	v, err := blobvol.Create(ctx, blobConfig, blobvol.VolumeInfo{
		Image:  image,
		Name:   px.Name(),
		Pixels: meta,
		ChunkW: exportChunkEdge,
		ChunkH: exportChunkEdge,
		Codec:  exportCodec,
		Colors: colors,
		Planes: px.PlanesInfo(),
	})
	if err != nil {
		return err
	}
	defer v.Close()

	// One raw-data channel for the whole export.
	ch, err := src.OpenChannel(image)
	if err != nil {
		return err
	}
	defer ch.Close()

	timedLog := gomero.NewTimeLog()
	gridX := (meta.SizeX + exportChunkEdge - 1) / exportChunkEdge
	gridY := (meta.SizeY + exportChunkEdge - 1) / exportChunkEdge
	var chunks int64
	for t := int32(0); t < meta.SizeT; t++ {
		for z := int32(0); z < meta.SizeZ; z++ {
			for c := int32(0); c < meta.SizeC; c++ {
				pc := gomero.PlaneCoord{C: c, Z: z, T: t}
				for gy := int32(0); gy < gridY; gy++ {
					for gx := int32(0); gx < gridX; gx++ {
						w := min32(exportChunkEdge, meta.SizeX-gx*exportChunkEdge)
						h := min32(exportChunkEdge, meta.SizeY-gy*exportChunkEdge)
						data, err := px.FetchRawTile(ch, pc, gx*exportChunkEdge, gy*exportChunkEdge, w, h)
						if err != nil {
							return err
						}
						if err := v.PutChunk(ctx, pc, gx, gy, data); err != nil {
							return err
						}
						chunks++
					}
				}
			}
		}
	}
	timedLog.Infof("exported image %d as %d chunks to %q", image, chunks, ref)
	fmt.Printf("Exported image %d (%d chunks) to %q\n", image, chunks, ref)
	return nil
}

func min32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}
