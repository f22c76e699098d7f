/*
	This file implements Arrow IPC export of plane acquisition records and
	assembled volumes for downstream analysis pipelines.
*/

package pixels

import (
	"fmt"
	"io"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/ipc"
	"github.com/apache/arrow/go/v14/arrow/memory"

	"github.com/gred-clermont/gomero/gomero"
)

// Acquisition record export schema.  Times are seconds, positions micrometers;
// missing values export as nulls.
var planeSchema = arrow.NewSchema([]arrow.Field{
	{Name: "c", Type: arrow.PrimitiveTypes.Int32},
	{Name: "z", Type: arrow.PrimitiveTypes.Int32},
	{Name: "t", Type: arrow.PrimitiveTypes.Int32},
	{Name: "delta_t_s", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: "exposure_s", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: "pos_x_um", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: "pos_y_um", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: "pos_z_um", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
}, nil)

// WritePlanesArrow streams the loaded acquisition records as a single Arrow
// IPC record batch.  LoadPlanesInfo must have succeeded first.
func (p *Pixels) WritePlanesArrow(w io.Writer) error {
	if p.planes == nil {
		return fmt.Errorf("plane records for image %d are not loaded", p.image)
	}
	pool := memory.NewGoAllocator()
	writer := ipc.NewWriter(w, ipc.WithSchema(planeSchema))
	defer writer.Close()

	cBuilder := array.NewInt32Builder(pool)
	zBuilder := array.NewInt32Builder(pool)
	tBuilder := array.NewInt32Builder(pool)
	deltaBuilder := array.NewFloat64Builder(pool)
	exposureBuilder := array.NewFloat64Builder(pool)
	posXBuilder := array.NewFloat64Builder(pool)
	posYBuilder := array.NewFloat64Builder(pool)
	posZBuilder := array.NewFloat64Builder(pool)

	defer func() {
		cBuilder.Release()
		zBuilder.Release()
		tBuilder.Release()
		deltaBuilder.Release()
		exposureBuilder.Release()
		posXBuilder.Release()
		posYBuilder.Release()
		posZBuilder.Release()
	}()

	appendTime := func(b *array.Float64Builder, t gomero.Time) {
		if t.IsNone() {
			b.AppendNull()
		} else {
			b.Append(t.ConvertTo(gomero.Second).Value)
		}
	}
	appendLength := func(b *array.Float64Builder, l gomero.Length) {
		if l.IsNone() {
			b.AppendNull()
		} else {
			b.Append(l.ConvertTo(gomero.Micrometer).Value)
		}
	}

	for _, rec := range p.planes {
		cBuilder.Append(rec.C)
		zBuilder.Append(rec.Z)
		tBuilder.Append(rec.T)
		appendTime(deltaBuilder, rec.DeltaT)
		appendTime(exposureBuilder, rec.Exposure)
		appendLength(posXBuilder, rec.PosX)
		appendLength(posYBuilder, rec.PosY)
		appendLength(posZBuilder, rec.PosZ)
	}

	arrays := []arrow.Array{
		cBuilder.NewArray(), zBuilder.NewArray(), tBuilder.NewArray(),
		deltaBuilder.NewArray(), exposureBuilder.NewArray(),
		posXBuilder.NewArray(), posYBuilder.NewArray(), posZBuilder.NewArray(),
	}
	defer func() {
		for _, a := range arrays {
			a.Release()
		}
	}()

	record := array.NewRecord(planeSchema, arrays, int64(len(p.planes)))
	defer record.Release()

	return writer.Write(record)
}

// Assembled volume export schema: one record per plane, raw little endian
// sample bytes in the plane column.
var volumeSchema = arrow.NewSchema([]arrow.Field{
	{Name: "c", Type: arrow.PrimitiveTypes.Int32},
	{Name: "z", Type: arrow.PrimitiveTypes.Int32},
	{Name: "t", Type: arrow.PrimitiveTypes.Int32},
	{Name: "width", Type: arrow.PrimitiveTypes.Int32},
	{Name: "height", Type: arrow.PrimitiveTypes.Int32},
	{Name: "pixel_type", Type: arrow.BinaryTypes.String},
	{Name: "plane", Type: arrow.BinaryTypes.Binary},
}, nil)

// WriteVolumeArrow assembles the bounded region and streams it as Arrow IPC,
// one record per (c, z, t) plane in assembly order.
func (p *Pixels) WriteVolumeArrow(w io.Writer, b gomero.Bounds) error {
	vol, err := p.AssembleRaw(b)
	if err != nil {
		return err
	}
	pool := memory.NewGoAllocator()
	writer := ipc.NewWriter(w, ipc.WithSchema(volumeSchema))
	defer writer.Close()

	size := b.Size()
	typeName := p.Type().String()
	for t := int32(0); t < size.T(); t++ {
		for z := int32(0); z < size.Z(); z++ {
			for c := int32(0); c < size.C(); c++ {
				if err := p.writeVolumePlane(writer, pool, b, c, z, t, typeName, vol[t][z][c]); err != nil {
					return fmt.Errorf("unable to write plane (c=%d, z=%d, t=%d): %v",
						b.Start.C()+c, b.Start.Z()+z, b.Start.T()+t, err)
				}
			}
		}
	}
	return nil
}

func (p *Pixels) writeVolumePlane(writer *ipc.Writer, pool memory.Allocator, b gomero.Bounds,
	c, z, t int32, typeName string, plane []byte) error {

	cBuilder := array.NewInt32Builder(pool)
	zBuilder := array.NewInt32Builder(pool)
	tBuilder := array.NewInt32Builder(pool)
	wBuilder := array.NewInt32Builder(pool)
	hBuilder := array.NewInt32Builder(pool)
	typeBuilder := array.NewStringBuilder(pool)
	planeBuilder := array.NewBinaryBuilder(pool, arrow.BinaryTypes.Binary)

	defer func() {
		cBuilder.Release()
		zBuilder.Release()
		tBuilder.Release()
		wBuilder.Release()
		hBuilder.Release()
		typeBuilder.Release()
		planeBuilder.Release()
	}()

	size := b.Size()
	cBuilder.Append(b.Start.C() + c)
	zBuilder.Append(b.Start.Z() + z)
	tBuilder.Append(b.Start.T() + t)
	wBuilder.Append(size.X())
	hBuilder.Append(size.Y())
	typeBuilder.Append(typeName)
	planeBuilder.Append(plane)

	arrays := []arrow.Array{
		cBuilder.NewArray(), zBuilder.NewArray(), tBuilder.NewArray(),
		wBuilder.NewArray(), hBuilder.NewArray(),
		typeBuilder.NewArray(), planeBuilder.NewArray(),
	}
	defer func() {
		for _, a := range arrays {
			a.Release()
		}
	}()

	record := array.NewRecord(volumeSchema, arrays, 1)
	defer record.Release()

	return writer.Write(record)
}
