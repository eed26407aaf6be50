package mempool

import (
	"sync"
)

// Sized pools for []float32 and []int32 buffers used by the distance
// transform and reduction hot paths.

var (
	float32Pools sync.Map // key: size class (int), value: *sync.Pool
	int32Pools   sync.Map // key: size class (int), value: *sync.Pool
)

// sizeClass rounds n up to the next bucket to reduce churn.
func sizeClass(n int) int {
	if n <= 1024 {
		return 1024
	}
	// round up to next multiple of 1024
	const step = 1024
	r := (n + step - 1) / step
	return r * step
}

// GetFloat32 retrieves a []float32 buffer of at least n elements from the pool.
// The returned slice has length n but may have larger capacity.
// The caller must return it via PutFloat32 when done.
func GetFloat32(n int) []float32 {
	cls := sizeClass(n)
	pAny, _ := float32Pools.LoadOrStore(cls, &sync.Pool{New: func() any { return make([]float32, cls) }})
	p, ok := pAny.(*sync.Pool)
	if !ok {
		// Fallback
		buf := make([]float32, cls)
		return buf[:n]
	}
	bufAny := p.Get()
	buf, ok := bufAny.([]float32)
	if !ok {
		buf = make([]float32, cls)
	}
	if cap(buf) < cls {
		buf = make([]float32, cls)
	} else {
		buf = buf[:cap(buf)]
	}
	return buf[:n]
}

// PutFloat32 returns a buffer to the pool. It is safe to pass a nil slice.
func PutFloat32(buf []float32) {
	if buf == nil {
		return
	}
	cls := sizeClass(cap(buf))
	pAny, _ := float32Pools.LoadOrStore(cls, &sync.Pool{New: func() any { return make([]float32, cls) }})
	p, ok := pAny.(*sync.Pool)
	if !ok {
		return // skip
	}
	// Reset length to full cap to avoid keeping len from caller; contents need not be zeroed.
	p.Put(buf[:cap(buf)]) //nolint:staticcheck
}

// GetInt32 retrieves a []int32 buffer of at least n elements from the pool.
// The returned slice has length n but may have larger capacity.
// The caller must return it via PutInt32 when done.
func GetInt32(n int) []int32 {
	cls := sizeClass(n)
	pAny, _ := int32Pools.LoadOrStore(cls, &sync.Pool{New: func() any { return make([]int32, cls) }})
	p, ok := pAny.(*sync.Pool)
	if !ok {
		// Fallback
		buf := make([]int32, cls)
		return buf[:n]
	}
	bufAny := p.Get()
	buf, ok := bufAny.([]int32)
	if !ok {
		buf = make([]int32, cls)
	}
	if cap(buf) < cls {
		buf = make([]int32, cls)
	} else {
		buf = buf[:cap(buf)]
	}
	// Zero the requested prefix; index buffers are reused and callers rely on
	// zero defaults for out-of-window entries.
	for i := range buf[:n] {
		buf[i] = 0
	}
	return buf[:n]
}

// PutInt32 returns a buffer to the pool. It is safe to pass a nil slice.
func PutInt32(buf []int32) {
	if buf == nil {
		return
	}
	cls := sizeClass(cap(buf))
	pAny, _ := int32Pools.LoadOrStore(cls, &sync.Pool{New: func() any { return make([]int32, cls) }})
	p, ok := pAny.(*sync.Pool)
	if !ok {
		return // skip
	}
	p.Put(buf[:cap(buf)]) //nolint:staticcheck
}
