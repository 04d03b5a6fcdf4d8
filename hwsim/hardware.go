// Package hwsim is a software simulation of the SIMT device vxspawn.Hardware
// abstracts over: cores run as goroutines, warps as pool-bounded goroutines,
// and lanes as a plain loop gated by a recorded mask. It exists so the
// kernel-launch runtime can be driven and property-tested without real
// accelerator hardware, the same role the teacher's pkg/gpu backends play
// for vector search (a software-reachable stand-in behind one interface).
package hwsim

import (
	"sync"

	"github.com/vxsim/vxsim/vxspawn"
)

// coreHardware is one core's realization of vxspawn.Hardware. A fresh
// value is created per core per launch; nothing here is shared across
// cores, matching the spec's no-inter-core-communication requirement.
type coreHardware struct {
	coreID         uint32
	numCores       uint32
	warpsPerCore   uint32
	threadsPerWarp uint32

	pool *warpPool
	wg   sync.WaitGroup

	scratch       any
	warpsPerGroup uint32

	metrics   *Metrics
	maskMu    sync.Mutex
	lastMasks map[uint32]uint32 // warpID -> mask, observable for tests/diagnostics
}

var _ vxspawn.Hardware = (*coreHardware)(nil)

func (c *coreHardware) CoreID() uint32         { return c.coreID }
func (c *coreHardware) NumCores() uint32       { return c.numCores }
func (c *coreHardware) WarpsPerCore() uint32   { return c.warpsPerCore }
func (c *coreHardware) ThreadsPerWarp() uint32 { return c.threadsPerWarp }

// WriteScratch is safe without a lock: it is called once, by this core's
// owning goroutine, strictly before WSpawn dispatches any sibling — the
// `go` statement's happens-before guarantee makes the write visible to
// every sibling without further synchronization, exactly as the real
// scratch CSR is "written once before spawn, read-only thereafter".
func (c *coreHardware) WriteScratch(d any) { c.scratch = d }
func (c *coreHardware) ReadScratch() any   { return c.scratch }

func (c *coreHardware) PublishWarpsPerGroup(n uint32) { c.warpsPerGroup = n }

func (c *coreHardware) SetMask(warpID, mask uint32) {
	c.maskMu.Lock()
	c.lastMasks[warpID] = mask
	c.maskMu.Unlock()
}

func (c *coreHardware) WSpawn(n uint32, entry func(warpID uint32)) {
	if n == 0 {
		return
	}
	if c.metrics != nil {
		c.metrics.warpsSpawned.Add(float64(n - 1))
	}
	for w := uint32(1); w < n; w++ {
		warpID := w
		c.wg.Add(1)
		c.pool.submit(func() {
			defer c.wg.Done()
			entry(warpID)
		})
	}
}

func (c *coreHardware) Join() {
	c.wg.Wait()
}
