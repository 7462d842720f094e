package system

import (
	"image"
	"sync"
)

// BufferPool reuses capture buffers between shots. The render thread asks for
// a width*height*4 scratch buffer every shot; after packing only the RGB prefix
// is kept, so the scratch can go straight back to the pool.
type BufferPool struct {
	pools map[int]*sync.Pool
	mu    sync.RWMutex
}

// ImagePool reuses *image.RGBA canvases between encodes of equally sized frames.
type ImagePool struct {
	pools map[image.Rectangle]*sync.Pool
	mu    sync.RWMutex
}

var (
	globalBuffers = NewBufferPool()
	globalImages  = NewImagePool()
)

func NewBufferPool() *BufferPool {
	return &BufferPool{pools: make(map[int]*sync.Pool)}
}

func NewImagePool() *ImagePool {
	return &ImagePool{pools: make(map[image.Rectangle]*sync.Pool)}
}

// GetBuffer returns a byte slice of exactly size bytes. Contents are undefined.
func GetBuffer(size int) []byte {
	return globalBuffers.Get(size)
}

// PutBuffer hands a buffer obtained from GetBuffer back to the pool.
func PutBuffer(buf []byte) {
	globalBuffers.Put(buf)
}

// GetImage returns an *image.RGBA covering rect. Pixels are undefined.
func GetImage(rect image.Rectangle) *image.RGBA {
	return globalImages.Get(rect)
}

// PutImage hands a canvas obtained from GetImage back to the pool.
func PutImage(img *image.RGBA) {
	globalImages.Put(img)
}

func (p *BufferPool) Get(size int) []byte {
	if size <= 0 {
		return nil
	}
	p.mu.RLock()
	pool, exists := p.pools[size]
	p.mu.RUnlock()

	if !exists {
		p.mu.Lock()
		pool, exists = p.pools[size]
		if !exists {
			pool = &sync.Pool{
				New: func() interface{} {
					b := make([]byte, size)
					return &b
				},
			}
			p.pools[size] = pool
		}
		p.mu.Unlock()
	}

	return *pool.Get().(*[]byte)
}

func (p *BufferPool) Put(buf []byte) {
	if cap(buf) == 0 {
		return
	}
	buf = buf[:cap(buf)]
	p.mu.RLock()
	pool, exists := p.pools[len(buf)]
	p.mu.RUnlock()

	if exists {
		pool.Put(&buf)
	}
}

func (p *ImagePool) Get(rect image.Rectangle) *image.RGBA {
	p.mu.RLock()
	pool, exists := p.pools[rect]
	p.mu.RUnlock()

	if !exists {
		p.mu.Lock()
		pool, exists = p.pools[rect]
		if !exists {
			pool = &sync.Pool{
				New: func() interface{} {
					return image.NewRGBA(rect)
				},
			}
			p.pools[rect] = pool
		}
		p.mu.Unlock()
	}

	return pool.Get().(*image.RGBA)
}

func (p *ImagePool) Put(img *image.RGBA) {
	if img == nil {
		return
	}
	p.mu.RLock()
	pool, exists := p.pools[img.Rect]
	p.mu.RUnlock()

	if exists {
		pool.Put(img)
	}
}
