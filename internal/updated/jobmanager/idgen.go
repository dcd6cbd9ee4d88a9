package jobmanager

import "sync/atomic"

// IDGenerator allocates the strictly increasing int64 job ids the daemon
// promises never to reuse within a process lifetime. The reference worker
// itself identifies jobs by a monotonic counter rather than a UUID, so
// unlike the teacher's job id generator this needs no kernel-UUID or
// /dev/urandom fallback chain: a single atomic counter is the whole
// mechanism.
type IDGenerator struct {
	counter int64
}

// Next returns the next id, starting from 1.
func (g *IDGenerator) Next() int64 {
	return atomic.AddInt64(&g.counter, 1)
}
