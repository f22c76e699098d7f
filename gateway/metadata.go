package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/blang/semver"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/gred-clermont/gomero/store"
)

// imageMetaSchema is what we require of server image metadata before handing
// it to the engine: positive dimensions and a known sample encoding.
const imageMetaSchema = `
{
	"type": "object",
	"required": ["id", "pixels"],
	"properties": {
		"id": {"type": "integer", "minimum": 1},
		"name": {"type": "string"},
		"description": {"type": "string"},
		"pixels": {
			"type": "object",
			"required": ["size_x", "size_y", "size_c", "size_z", "size_t", "type"],
			"properties": {
				"size_x": {"type": "integer", "minimum": 1},
				"size_y": {"type": "integer", "minimum": 1},
				"size_c": {"type": "integer", "minimum": 1},
				"size_z": {"type": "integer", "minimum": 1},
				"size_t": {"type": "integer", "minimum": 1},
				"type": {
					"type": "string",
					"enum": ["uint8", "int8", "uint16", "int16", "uint32", "int32", "float", "double"]
				}
			}
		}
	}
}`

var compiledImageMetaSchema = jsonschema.MustCompileString("image-meta.json", imageMetaSchema)

// checkServerVersion records the server version and enforces the configured
// minimum.
func (g *Gateway) checkServerVersion() error {
	var info struct {
		Version string `json:"version"`
	}
	if err := g.getJSON(g.base+"/api/server/info", &info); err != nil {
		return fmt.Errorf("unable to get server info from %s: %v", g.base, err)
	}
	ver, err := semver.ParseTolerant(info.Version)
	if err != nil {
		return fmt.Errorf("server reported unparsable version %q: %v", info.Version, err)
	}
	g.version = ver

	if g.config.MinVersion == "" {
		return nil
	}
	min, err := semver.Make(g.config.MinVersion)
	if err != nil {
		return fmt.Errorf("bad min_version %q in gateway config: %v", g.config.MinVersion, err)
	}
	if ver.LT(min) {
		return fmt.Errorf("server version %s is below the required minimum %s", ver, min)
	}
	return nil
}

// ImageMetadata fetches one image's attributes and validates them against
// the metadata schema before decoding.
func (g *Gateway) ImageMetadata(image int64) (*store.ImageMeta, error) {
	url := fmt.Sprintf("%s/api/image/%d", g.base, image)
	resp, err := g.get(url)
	if err != nil {
		return nil, fmt.Errorf("unable to get metadata for image %d: %v", image, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("image %d: %w", image, store.ErrImageNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d returned when getting metadata for image %d",
			resp.StatusCode, image)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to read metadata for image %d: %v", image, err)
	}

	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("unable to decode metadata for image %d: %v", image, err)
	}
	if err := compiledImageMetaSchema.Validate(v); err != nil {
		return nil, fmt.Errorf("metadata for image %d failed validation: %v", image, err)
	}

	var meta store.ImageMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("unable to decode metadata for image %d: %v", image, err)
	}
	return &meta, nil
}
