package system

import (
	"sync"
)

// ScratchPool recycles byte buffers used as per-page working masks, keyed
// by length. Pages from one source usually share a size, so the detectors
// stop allocating a fresh mask for every page.
type ScratchPool struct {
	pools map[int]*sync.Pool
	mu    sync.RWMutex
}

var globalPool = &ScratchPool{
	pools: make(map[int]*sync.Pool),
}

// GetScratch returns a buffer of exactly n bytes. Its contents are
// undefined; callers overwrite it before reading.
func GetScratch(n int) []uint8 {
	return globalPool.Get(n)
}

// PutScratch hands buf back for reuse. buf must not be used afterwards.
func PutScratch(buf []uint8) {
	globalPool.Put(buf)
}

func (p *ScratchPool) Get(n int) []uint8 {
	p.mu.RLock()
	pool, exists := p.pools[n]
	p.mu.RUnlock()

	if !exists {
		p.mu.Lock()
		// Double check
		pool, exists = p.pools[n]
		if !exists {
			pool = &sync.Pool{
				New: func() interface{} {
					buf := make([]uint8, n)
					return &buf
				},
			}
			p.pools[n] = pool
		}
		p.mu.Unlock()
	}

	return *pool.Get().(*[]uint8)
}

func (p *ScratchPool) Put(buf []uint8) {
	if buf == nil {
		return
	}
	p.mu.RLock()
	pool, exists := p.pools[len(buf)]
	p.mu.RUnlock()

	if exists {
		pool.Put(&buf)
	}
}
