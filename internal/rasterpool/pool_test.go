package rasterpool

import (
	"image"
	"sync"
	"testing"
)

func TestGetAllocatesOnMiss(t *testing.T) {
	p := New(1 << 20)
	img := p.Get(4, 3)
	if img.Bounds() != image.Rect(0, 0, 4, 3) {
		t.Fatalf("Get bounds = %v", img.Bounds())
	}
	st := p.Stats()
	if st.Misses != 1 || st.Hits != 0 || st.Len != 0 {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestPutThenGetReuses(t *testing.T) {
	p := New(1 << 20)
	img := p.Get(4, 4)
	img.Pix[0] = 200
	p.Put(img)
	if st := p.Stats(); st.Len != 1 || st.Bytes != 64 {
		t.Fatalf("after Put: %+v", st)
	}

	got := p.Get(4, 4)
	if got != img {
		t.Fatal("Get did not reuse the pooled raster")
	}
	if got.Pix[0] != 0 {
		t.Error("reused raster was not cleared")
	}
	if st := p.Stats(); st.Hits != 1 || st.Len != 0 || st.Bytes != 0 {
		t.Errorf("after reuse: %+v", st)
	}

	// Other sizes miss.
	if p.Get(2, 2) == img {
		t.Error("raster reused for another size")
	}
}

func TestPutIgnores(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		img   *image.RGBA
	}{
		{"nil", 1 << 20, nil},
		{"disabled", 0, image.NewRGBA(image.Rect(0, 0, 2, 2))},
		{"over budget", 10, image.NewRGBA(image.Rect(0, 0, 2, 2))},
		{"offset", 1 << 20, image.NewRGBA(image.Rect(1, 1, 3, 3))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.limit)
			p.Put(tt.img)
			if got := p.Stats().Len; got != 0 {
				t.Errorf("pool holds %d rasters, want 0", got)
			}
		})
	}
}

func TestEvictsLeastRecentlyReturned(t *testing.T) {
	// Room for two 2x2 rasters.
	p := New(32)
	a := image.NewRGBA(image.Rect(0, 0, 2, 2))
	b := image.NewRGBA(image.Rect(0, 0, 2, 2))
	c := image.NewRGBA(image.Rect(0, 0, 2, 2))
	p.Put(a)
	p.Put(b)
	p.Put(c)

	st := p.Stats()
	if st.Len != 2 || st.Bytes != 32 || st.Evictions != 1 {
		t.Fatalf("Stats() = %+v", st)
	}
	got := []*image.RGBA{p.Get(2, 2), p.Get(2, 2)}
	for _, img := range got {
		if img == a {
			t.Error("oldest raster survived eviction")
		}
	}
}

func TestClear(t *testing.T) {
	p := New(1 << 20)
	p.Put(image.NewRGBA(image.Rect(0, 0, 8, 8)))
	p.Put(image.NewRGBA(image.Rect(0, 0, 4, 4)))
	p.Clear()
	st := p.Stats()
	if st.Len != 0 || st.Bytes != 0 || st.Limit != 1<<20 {
		t.Errorf("after Clear: %+v", st)
	}
	if p.Get(8, 8) == nil {
		t.Fatal("Get after Clear returned nil")
	}
	if p.Stats().Hits != 0 {
		t.Error("Get after Clear hit the pool")
	}
}

func TestConcurrentUse(t *testing.T) {
	p := New(1 << 16)
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(size int) {
			defer wg.Done()
			for range 100 {
				p.Put(p.Get(size, size))
			}
		}(i%3 + 1)
	}
	wg.Wait()
	st := p.Stats()
	if st.Hits+st.Misses != 800 {
		t.Errorf("Hits+Misses = %d, want 800", st.Hits+st.Misses)
	}
}

func BenchmarkGetPut(b *testing.B) {
	p := New(1 << 20)
	for b.Loop() {
		p.Put(p.Get(64, 64))
	}
}
