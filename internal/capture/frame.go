package capture

import (
	"encoding/binary"
	"fmt"
)

// Frame is one packed RGB shot. Width and height are the same for every frame
// of a session.
type Frame struct {
	Index  int
	Width  int
	Height int
	Pix    []byte // RGB, 3 bytes per pixel, row-major, no padding
}

// Framebuffer is the host's view of the rendered frame. Capture fills dst with
// RGBA8 pixels and returns the number of bytes written; 0 means the capture failed.
type Framebuffer interface {
	Size() (width, height int)
	Capture(dst []byte) (int, error)
}

// PackRGB drops the alpha channel of an RGBA8 buffer in place and returns the
// RGB prefix. Every pixel is moved with one 4-byte copy; the fourth byte lands
// on the next pixel's slot and is overwritten by the next iteration.
func PackRGB(rgba []byte, pixels int) ([]byte, error) {
	if pixels <= 0 {
		return nil, fmt.Errorf("pack: no pixels")
	}
	if len(rgba) < pixels*4 {
		return nil, fmt.Errorf("pack: buffer holds %d bytes, need %d", len(rgba), pixels*4)
	}
	for i := 1; i < pixels; i++ {
		binary.LittleEndian.PutUint32(rgba[3*i:], binary.LittleEndian.Uint32(rgba[4*i:]))
	}
	return rgba[:pixels*3], nil
}
