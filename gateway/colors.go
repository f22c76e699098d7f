package gateway

import (
	"fmt"

	"github.com/gred-clermont/gomero/store"
)

// ImportedColor returns the display color recorded when the image was
// imported.
func (g *Gateway) ImportedColor(image int64, channel int32) (store.Color, error) {
	return g.channelColor(image, channel, "imported")
}

// LiveColor asks the server's rendering engine for the current display color
// of a channel.  It can fail independently of pixel access, e.g. when no
// rendering engine is attached to the image.
func (g *Gateway) LiveColor(image int64, channel int32) (store.Color, error) {
	return g.channelColor(image, channel, "live")
}

func (g *Gateway) channelColor(image int64, channel int32, kind string) (store.Color, error) {
	var color store.Color
	url := fmt.Sprintf("%s/api/image/%d/channel/%d/color?kind=%s", g.base, image, channel, kind)
	if err := g.getJSON(url, &color); err != nil {
		return store.Color{}, fmt.Errorf("unable to get %s color for image %d channel %d: %v",
			kind, image, channel, err)
	}
	return color, nil
}
