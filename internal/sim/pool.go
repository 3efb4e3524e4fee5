package sim

import "sync"

// FramePool recycles RGBA8 byte buffers sized for one canvas snapshot.
type FramePool struct {
	pool sync.Pool
	size int
}

func NewFramePool(width, height int) *FramePool {
	size := width * height * 4
	return &FramePool{
		size: size,
		pool: sync.Pool{
			New: func() interface{} {
				return make([]byte, size)
			},
		},
	}
}

func (p *FramePool) Get() []byte {
	return p.pool.Get().([]byte)
}

func (p *FramePool) Put(b []byte) {
	if cap(b) == p.size {
		p.pool.Put(b[:p.size])
	}
}

// Snapshot copies the canvas pixels into a pooled buffer.
func (p *FramePool) Snapshot(c *Canvas) []byte {
	return c.Pix(p.Get())
}
