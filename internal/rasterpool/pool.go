// Package rasterpool recycles element rasters between repaints.
//
// Retained backends allocate one *image.RGBA per drawable. When a drawable
// drops its element (it was hidden or disposed) the raster goes back to the
// pool and the next element of the same size reuses it. The pool holds at
// most a byte budget; beyond it the least recently returned rasters are
// evicted.
//
//	p := rasterpool.New(32 << 20)
//	img := p.Get(64, 32)
//	...
//	p.Put(img)
//
// Pool is safe for concurrent use.
package rasterpool

import (
	"image"
	"sync"
)

// Pool is a size-keyed LRU pool of rasters.
type Pool struct {
	mu    sync.Mutex
	free  map[image.Point][]*lruNode
	lru   lruList
	bytes int
	limit int

	hits, misses, evictions uint64
}

// New creates a pool holding at most limit bytes of pixels.
// A limit of 0 disables pooling.
func New(limit int) *Pool {
	return &Pool{
		free:  make(map[image.Point][]*lruNode),
		limit: limit,
	}
}

// Get returns a transparent raster with bounds (0, 0, w, h).
func (p *Pool) Get(w, h int) *image.RGBA {
	size := image.Pt(w, h)
	p.mu.Lock()
	list := p.free[size]
	if n := len(list); n > 0 {
		node := list[n-1]
		p.setFree(size, list[:n-1])
		p.lru.remove(node)
		p.bytes -= len(node.img.Pix)
		p.hits++
		p.mu.Unlock()
		clear(node.img.Pix)
		return node.img
	}
	p.misses++
	p.mu.Unlock()
	return image.NewRGBA(image.Rect(0, 0, w, h))
}

// Put returns img to the pool. Rasters larger than the whole budget are
// dropped.
func (p *Pool) Put(img *image.RGBA) {
	if img == nil || p.limit <= 0 || len(img.Pix) > p.limit {
		return
	}
	size := img.Rect.Size()
	if img.Rect.Min != (image.Point{}) {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	node := p.lru.pushFront(img)
	p.free[size] = append(p.free[size], node)
	p.bytes += len(img.Pix)
	for p.bytes > p.limit {
		p.evictOldest()
	}
}

// evictOldest drops the least recently returned raster.
// Caller must hold p.mu.
func (p *Pool) evictOldest() {
	node := p.lru.oldest()
	if node == nil {
		p.bytes = 0
		return
	}
	p.lru.remove(node)
	size := node.img.Rect.Size()
	list := p.free[size]
	for i, n := range list {
		if n == node {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	p.setFree(size, list)
	p.bytes -= len(node.img.Pix)
	p.evictions++
}

func (p *Pool) setFree(size image.Point, list []*lruNode) {
	if len(list) == 0 {
		delete(p.free, size)
		return
	}
	p.free[size] = list
}

// Clear drops every pooled raster.
func (p *Pool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.free = make(map[image.Point][]*lruNode)
	p.lru.clear()
	p.bytes = 0
}

// Stats contains pool statistics.
type Stats struct {
	// Len is the number of pooled rasters.
	Len int
	// Bytes is the pixel memory held by the pool.
	Bytes int
	// Limit is the byte budget.
	Limit int
	// Hits counts Get calls served from the pool.
	Hits uint64
	// Misses counts Get calls that allocated.
	Misses uint64
	// Evictions counts rasters dropped to stay within the budget.
	Evictions uint64
}

// Stats returns pool statistics.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Len:       p.lru.len,
		Bytes:     p.bytes,
		Limit:     p.limit,
		Hits:      p.hits,
		Misses:    p.misses,
		Evictions: p.evictions,
	}
}
