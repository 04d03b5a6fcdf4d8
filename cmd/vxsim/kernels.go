package main

import (
	"sync"

	"github.com/samber/lo"
	"github.com/vxsim/vxsim/vxspawn"
)

// vecAddArgs is the payload for the vector-add sample kernel: one thread
// per element, grid/block chosen by the caller so gridDim.X*blockDim.X
// covers len(A).
type vecAddArgs struct {
	A, B, C []float32
}

func vecAddKernel(t *vxspawn.Thread, arg any) {
	a := arg.(*vecAddArgs)
	idx := t.BlockIdx.X*t.BlockDim.X + t.ThreadIdx.X
	if int(idx) >= len(a.A) {
		return
	}
	a.C[idx] = a.A[idx] + a.B[idx]
}

// matmulArgs is the payload for the tiled matrix-multiply sample kernel,
// grounded on original_source/tests/regression/my_matmul/main.cpp: one
// thread per output element, one block per tile.
type matmulArgs struct {
	N       uint32
	A, B, C []float32
}

func matmulKernel(t *vxspawn.Thread, arg any) {
	a := arg.(*matmulArgs)
	row := t.BlockIdx.Y*t.BlockDim.Y + t.ThreadIdx.Y
	col := t.BlockIdx.X*t.BlockDim.X + t.ThreadIdx.X
	if row >= a.N || col >= a.N {
		return
	}
	var sum float32
	for k := uint32(0); k < a.N; k++ {
		sum += a.A[row*a.N+k] * a.B[k*a.N+col]
	}
	a.C[row*a.N+col] = sum
}

// identityArgs is the payload for the conformance-style identity kernel,
// grounded on original_source/tests/kernel/conform/tests.cpp: it records
// every thread's observed identity instead of computing anything, so a
// caller can check the coverage/disjointness properties directly.
type identityArgs struct {
	mu  sync.Mutex
	Out []ThreadIdentity
}

// ThreadIdentity snapshots everything a kernel can observe about its own
// invocation.
type ThreadIdentity struct {
	BlockIdx, ThreadIdx vxspawn.Dim3
	LocalGroupID        uint32
}

func identityKernel(t *vxspawn.Thread, arg any) {
	a := arg.(*identityArgs)
	rec := ThreadIdentity{BlockIdx: t.BlockIdx, ThreadIdx: t.ThreadIdx, LocalGroupID: t.LocalGroupID}
	a.mu.Lock()
	a.Out = append(a.Out, rec)
	a.mu.Unlock()
}

// tileRows splits [0,n) into chunks no larger than tileSize, used to
// report tile boundaries for the matmul sample without re-deriving the
// block/grid math by hand.
func tileRows(n, tileSize uint32) [][]uint32 {
	all := lo.Range(int(n))
	idx := make([]uint32, len(all))
	for i, v := range all {
		idx[i] = uint32(v)
	}
	return lo.Chunk(idx, int(tileSize))
}
