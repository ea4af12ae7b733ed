// Package goroutineid identifies the current goroutine, used to detect
// re-entrant calls onto the event loop goroutine.
package goroutineid

import (
	"runtime"
	"sync"
)

var stackBufPool = sync.Pool{
	New: func() any {
		return make([]byte, 4096)
	},
}

// Get returns the current goroutine's ID by parsing runtime.Stack output, or
// 0 if parsing fails. The "goroutine N [state]:" header format has been
// stable since Go 1.5.
func Get() int64 {
	buf := stackBufPool.Get().([]byte)
	defer func() {
		//lint:ignore SA6002 []byte is pointer-like (slice header contains pointer)
		stackBufPool.Put(buf)
	}()
	n := runtime.Stack(buf, false)
	return parse(buf[:n])
}

// parse extracts the ID following the "goroutine " prefix without allocating.
func parse(stack []byte) int64 {
	const prefix = "goroutine "
	if len(stack) <= len(prefix) {
		return 0
	}
	for i := 0; i+len(prefix) < len(stack); i++ {
		j := 0
		for ; j < len(prefix); j++ {
			if stack[i+j] != prefix[j] {
				break
			}
		}
		if j < len(prefix) {
			continue
		}
		var id int64
		for k := i + len(prefix); k < len(stack); k++ {
			b := stack[k]
			if b < '0' || b > '9' {
				break
			}
			id = id*10 + int64(b-'0')
		}
		return id
	}
	return 0
}
