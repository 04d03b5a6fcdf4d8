// Package vxspawn is the SIMT kernel-launch runtime: given a user kernel
// and a grid/block launch geometry, it partitions the logical thread space
// across a device's cores, warps, and lanes and invokes the kernel once per
// logical thread of every block (or once per logical task, in the degenerate
// one-thread-per-block case).
//
// SpawnThreads is a direct port of Vortex's vx_spawn_threads (see
// _examples/original_source/kernel/src/vx_spawn.c): the partition math
// lives in internal/partition, and this package wires that math to a
// Hardware capability set so the same entry point can run against a real
// simulated device (hwsim) or a test fake.
//
// Go has no __thread storage class, so the C original's thread-local
// blockIdx/threadIdx/local_group_id globals become an explicit *Thread
// passed to the kernel on every invocation instead — see Thread.
package vxspawn

import (
	"math/bits"

	"github.com/vxsim/vxsim/internal/partition"
)

// Dim3 is re-exported so callers never need to import internal/partition
// directly to build a launch geometry.
type Dim3 = partition.Dim3

// ErrBlockTooLarge is returned when the block doesn't fit in one core's
// warp x lane capacity. It is the only error SpawnThreads ever returns.
var ErrBlockTooLarge = partition.ErrBlockTooLarge

// Thread is the per-lane launch context threaded through the kernel
// callback: the Go-native replacement for vx_spawn.c's thread-local
// blockIdx/threadIdx/__local_group_id globals and its gridDim/blockDim
// process-wide globals. The runtime allocates a fresh Thread for every
// kernel invocation.
type Thread struct {
	GridDim      Dim3
	BlockDim     Dim3
	BlockIdx     Dim3
	ThreadIdx    Dim3
	LocalGroupID uint32
}

// KernelFunc is the user kernel callback: invoked once per logical thread,
// reading its identity from t and its invocation-independent payload from
// arg.
type KernelFunc func(t *Thread, arg any)

const allLanesMask = ^uint32(0)

// SpawnThreads is the core entry point, invoked identically on every
// physical core. dimension is in {1,2,3}; every axis at or beyond dimension
// defaults to 1, and gridDim/blockDim may be nil, in which case every axis
// of that extent defaults to 1.
//
// It returns ErrBlockTooLarge, with no hardware effects, if the block
// exceeds the core's capacity; otherwise it returns nil, having invoked
// kernel exactly once per thread assigned to this core (zero times if
// this core sits outside the active set, or if the grid is empty).
func SpawnThreads(dimension uint32, gridDim, blockDim []uint32, kernel KernelFunc, arg any, hw Hardware) error {
	grid, block, numGroups, groupSize := partition.NormalizeGeometry(dimension, gridDim, blockDim)

	warpsPerCore := hw.WarpsPerCore()
	threadsPerWarp := hw.ThreadsPerWarp()
	numCores := hw.NumCores()
	coreID := hw.CoreID()

	if err := partition.ValidateCapacity(groupSize, warpsPerCore, threadsPerWarp); err != nil {
		return err
	}

	if groupSize > 1 {
		spawnGroups(grid, block, numGroups, groupSize, threadsPerWarp, warpsPerCore, numCores, coreID, kernel, arg, hw)
	} else {
		spawnThreadsPath(grid, block, numGroups, threadsPerWarp, warpsPerCore, numCores, coreID, kernel, arg, hw)
	}

	hw.Join()
	return nil
}

// spawnGroups implements the block-per-warp path (spec section 4.2/4.4).
func spawnGroups(grid, block partition.Dim3, numGroups, groupSize, threadsPerWarp, warpsPerCore, numCores, coreID uint32, kernel KernelFunc, arg any, hw Hardware) {
	active, plan := partition.GroupsPartition(numGroups, groupSize, threadsPerWarp, warpsPerCore, numCores, coreID)
	if !active {
		return
	}

	desc := &groupsDescriptor{
		kernel:           kernel,
		arg:              arg,
		grid:             grid,
		block:            block,
		groupOffset:      plan.GroupOffset,
		warpBatches:      plan.WarpBatches,
		remainingWarps:   plan.RemainingWarps,
		warpsPerGroup:    plan.WarpsPerGroup,
		concurrentGroups: plan.ConcurrentGroups,
		remainingMask:    plan.RemainingMask,
	}
	hw.WriteScratch(desc)
	hw.PublishWarpsPerGroup(plan.WarpsPerGroup)

	stub := func(warpID uint32) { groupsStub(hw, warpID, threadsPerWarp) }
	hw.WSpawn(plan.ActiveWarpsPerBatch, stub)
	stub(0)
}

// spawnThreadsPath implements the one-thread-per-block path (spec section
// 4.3/4.5).
func spawnThreadsPath(grid, block partition.Dim3, numTasks, threadsPerWarp, warpsPerCore, numCores, coreID uint32, kernel KernelFunc, arg any, hw Hardware) {
	active, plan := partition.ThreadsPartition(numTasks, threadsPerWarp, warpsPerCore, numCores, coreID)
	if !active {
		return
	}

	desc := &threadsDescriptor{
		kernel:            kernel,
		arg:               arg,
		grid:              grid,
		block:             block,
		allTasksOffset:    plan.TasksOffset,
		remainTasksOffset: plan.RemainTasksOffset,
		warpBatches:       plan.WarpBatches,
		remainingWarps:    plan.RemainingWarps,
	}
	hw.WriteScratch(desc)
	hw.PublishWarpsPerGroup(0)

	if plan.ActiveWarpsPerBatch >= 1 {
		stub := func(warpID uint32) { threadsStub(hw, warpID, threadsPerWarp) }
		hw.WSpawn(plan.ActiveWarpsPerBatch, stub)
		stub(0)
	}

	if plan.Tail != 0 {
		remainderStub(hw, plan.Tail, plan.RemainTasksOffset, desc.grid)
	}
}

// groupsStub runs on every warp spawned by spawnGroups (spec section 4.4):
// it determines which resident block this warp belongs to, activates the
// correct lane mask, and invokes the kernel once per (active lane, assigned
// block) pair in block-major order, matching the lock-step SIMD semantics
// of the hardware this models.
func groupsStub(hw Hardware, warpID, threadsPerWarp uint32) {
	desc := hw.ReadScratch().(*groupsDescriptor)

	localGroupID := warpID / desc.warpsPerGroup
	groupWarpID := warpID % desc.warpsPerGroup

	mask := allLanesMask
	if groupWarpID == desc.warpsPerGroup-1 {
		mask = desc.remainingMask
	}
	hw.SetMask(warpID, mask)
	activeLanes := bits.OnesCount32(mask)
	if activeLanes > int(threadsPerWarp) {
		// An all-ones mask activates only the lanes the warp actually has.
		activeLanes = int(threadsPerWarp)
	}

	iterations := desc.warpBatches
	if warpID < desc.remainingWarps {
		iterations++
	}

	for i := uint32(0); i < iterations; i++ {
		blockLin := desc.groupOffset + localGroupID + i*desc.concurrentGroups
		blockIdx := partition.Decompose(blockLin, desc.grid)

		for lane := 0; lane < activeLanes; lane++ {
			localTaskID := groupWarpID*threadsPerWarp + uint32(lane)
			t := &Thread{
				GridDim:      desc.grid,
				BlockDim:     desc.block,
				BlockIdx:     blockIdx,
				ThreadIdx:    partition.Decompose(localTaskID, desc.block),
				LocalGroupID: localGroupID,
			}
			desc.kernel(t, desc.arg)
		}
	}
}

// threadsStub runs on every full warp spawned by spawnThreadsPath (spec
// section 4.5): every lane is its own degenerate block, so each lane runs
// its own independent task sequence.
func threadsStub(hw Hardware, warpID, threadsPerWarp uint32) {
	desc := hw.ReadScratch().(*threadsDescriptor)
	hw.SetMask(warpID, allLanesMask)

	startWarp := warpID*desc.warpBatches + minU32(warpID, desc.remainingWarps)
	iterations := desc.warpBatches
	if warpID < desc.remainingWarps {
		iterations++
	}

	for lane := uint32(0); lane < threadsPerWarp; lane++ {
		startTask := desc.allTasksOffset + startWarp*threadsPerWarp + lane
		for i := uint32(0); i < iterations; i++ {
			task := startTask + i*threadsPerWarp
			t := &Thread{
				GridDim:      desc.grid,
				BlockDim:     desc.block,
				BlockIdx:     partition.Decompose(task, desc.grid),
				ThreadIdx:    Dim3{},
				LocalGroupID: 0,
			}
			desc.kernel(t, desc.arg)
		}
	}
}

// remainderStub runs once per tail lane when a core's task slab doesn't
// fill a whole warp (spec section 4.5's remainder path): each active lane
// computes its own task and invokes the kernel exactly once.
func remainderStub(hw Hardware, tail, remainTasksOffset uint32, grid partition.Dim3) {
	desc := hw.ReadScratch().(*threadsDescriptor)
	mask := (uint32(1) << tail) - 1
	hw.SetMask(0, mask)

	for lane := uint32(0); lane < tail; lane++ {
		task := remainTasksOffset + lane
		t := &Thread{
			GridDim:      grid,
			BlockDim:     desc.block,
			BlockIdx:     partition.Decompose(task, grid),
			ThreadIdx:    Dim3{},
			LocalGroupID: 0,
		}
		desc.kernel(t, desc.arg)
	}
}

func minU32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}
