// Package partition implements the pure partition arithmetic behind the
// SIMT kernel-launch runtime: geometry normalization, capacity validation,
// and the two slab/warp-batch schedules (block-per-warp and
// one-thread-per-block) that spawn_threads picks between.
//
// Nothing here touches a goroutine, a channel, or the Hardware interface —
// it is deliberately pure so the balance/contiguity/batch invariants can be
// checked directly with property tests over random device geometries.
package partition

import "fmt"

// Dim3 is a three-axis extent or index, used for both gridDim/blockDim and
// blockIdx/threadIdx.
type Dim3 struct {
	X, Y, Z uint32
}

// Product returns X*Y*Z.
func (d Dim3) Product() uint32 {
	return d.X * d.Y * d.Z
}

// NormalizeGeometry folds a 1-D/2-D/3-D grid_dim/block_dim pair into
// gridDim/blockDim Dim3 values, defaulting any axis at or beyond dimension
// (or any axis left absent) to 1. It mirrors vx_spawn_threads's step 1.
func NormalizeGeometry(dimension uint32, gridDim, blockDim []uint32) (grid, block Dim3, numGroups, groupSize uint32) {
	axis := func(dims []uint32, i uint32) uint32 {
		if dims != nil && i < dimension && int(i) < len(dims) {
			return dims[i]
		}
		return 1
	}

	grid = Dim3{axis(gridDim, 0), axis(gridDim, 1), axis(gridDim, 2)}
	block = Dim3{axis(blockDim, 0), axis(blockDim, 1), axis(blockDim, 2)}
	numGroups = grid.Product()
	groupSize = block.Product()
	return grid, block, numGroups, groupSize
}

// ValidateCapacity rejects a launch whose block exceeds one core's
// warp x lane capacity. This is the launch's only failure mode.
func ValidateCapacity(groupSize, warpsPerCore, threadsPerWarp uint32) error {
	capacity := warpsPerCore * threadsPerWarp
	if groupSize > capacity {
		return fmt.Errorf("%w: group_size=%d threads_per_core=%d", ErrBlockTooLarge, groupSize, capacity)
	}
	return nil
}

// Decompose performs the standard x-fastest row-major decomposition of a
// linear index against a Dim3 extent, used for both blockIdx (against
// gridDim) and threadIdx (against blockDim).
func Decompose(linear uint32, extent Dim3) Dim3 {
	x := linear % extent.X
	y := (linear / extent.X) % extent.Y
	z := linear / (extent.X * extent.Y)
	return Dim3{x, y, z}
}

func ceilDiv(a, b uint32) uint32 {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}

func minU32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

// slab computes the balanced, contiguous (offset, count) assignment for
// core_id out of active_cores over a total of n items: low-index cores
// absorb the remainder, one extra item each.
//
// This is the floor-based formula mandated in place of the source's
// remaining_groups_per_core expression (see spec's group_offset open
// question): offset = core_id*(n/active_cores) + min(core_id, n%active_cores).
// Using total_groups_per_core (post-remainder) instead of the floor base
// in the offset term pushes every core with 0 < core_id < rem past its
// correct offset, leaving gaps and overlapping the following slab; property
// tests assert disjointness against exactly this formula.
func slab(n, activeCores, coreID uint32) (offset, count uint32) {
	base := n / activeCores
	rem := n % activeCores
	count = base
	if coreID < rem {
		count++
	}
	offset = coreID*base + minU32(coreID, rem)
	return offset, count
}
