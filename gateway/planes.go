package gateway

import (
	"fmt"

	"google.golang.org/api/iterator"

	"github.com/gred-clermont/gomero/store"
)

// planePageSize is the number of plane records requested per page.
const planePageSize = 500

// PlaneIterator pages through an image's plane records.
type PlaneIterator struct {
	g      *Gateway
	image  int64
	buf    []store.PlaneRecord
	offset int
	total  int
}

// Planes returns an iterator over the ordered plane records of an image.
// Iteration ends with iterator.Done.
func (g *Gateway) Planes(image int64) *PlaneIterator {
	return &PlaneIterator{g: g, image: image, total: -1}
}

// Next returns the next plane record.  It returns iterator.Done after the
// last record.
func (it *PlaneIterator) Next() (store.PlaneRecord, error) {
	if len(it.buf) == 0 {
		if it.total >= 0 && it.offset >= it.total {
			return store.PlaneRecord{}, iterator.Done
		}
		if err := it.nextPage(); err != nil {
			return store.PlaneRecord{}, err
		}
		if len(it.buf) == 0 {
			return store.PlaneRecord{}, iterator.Done
		}
	}
	rec := it.buf[0]
	it.buf = it.buf[1:]
	return rec, nil
}

func (it *PlaneIterator) nextPage() error {
	var page struct {
		Planes []store.PlaneRecord `json:"planes"`
		Total  int                 `json:"total"`
	}
	url := fmt.Sprintf("%s/api/image/%d/planes?offset=%d&limit=%d",
		it.g.base, it.image, it.offset, planePageSize)
	if err := it.g.getJSON(url, &page); err != nil {
		return fmt.Errorf("unable to list planes for image %d at offset %d: %v", it.image, it.offset, err)
	}
	it.buf = page.Planes
	it.total = page.Total
	it.offset += len(page.Planes)
	return nil
}

// PlaneRecords drains the plane iterator into an ordered list.
func (g *Gateway) PlaneRecords(image int64) ([]store.PlaneRecord, error) {
	var records []store.PlaneRecord
	it := g.Planes(image)
	for {
		rec, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
