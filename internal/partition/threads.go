package partition

// ThreadsPlan is this core's schedule for the one-thread-per-block path
// (group_size == 1): blocks degrade to tasks and warps pack tasks
// lane-wise instead of one warp per block.
type ThreadsPlan struct {
	ActiveCores         uint32
	TasksOffset         uint32 // first task index owned by this core
	TasksPerCore        uint32 // contiguous task count owned by this core
	FullWarps           uint32 // full warps' worth of tasks
	Tail                uint32 // leftover tasks after the full warps
	ActiveWarpsPerBatch uint32
	WarpBatches         uint32
	RemainingWarps      uint32
	RemainTasksOffset   uint32 // first task handled by the remainder stub
}

// ThreadsPartition computes the one-thread-per-block schedule described
// in spec section 4.3.
func ThreadsPartition(numTasks, threadsPerWarp, warpsPerCore, numCores, coreID uint32) (active bool, plan ThreadsPlan) {
	if numTasks == 0 {
		return false, ThreadsPlan{}
	}

	threadsPerCore := warpsPerCore * threadsPerWarp
	neededCores := ceilDiv(numTasks, threadsPerCore)
	activeCores := minU32(numCores, neededCores)
	if coreID >= activeCores {
		return false, ThreadsPlan{}
	}

	tasksOffset, tasksPerCore := slab(numTasks, activeCores, coreID)

	fullWarps := tasksPerCore / threadsPerWarp
	tail := tasksPerCore % threadsPerWarp

	activeWarpsPerBatch := fullWarps
	warpBatches := uint32(1)
	remainingWarps := uint32(0)
	if fullWarps > warpsPerCore {
		activeWarpsPerBatch = warpsPerCore
		warpBatches = fullWarps / warpsPerCore
		remainingWarps = fullWarps % warpsPerCore
	}

	remainTasksOffset := tasksOffset + (tasksPerCore - tail)

	return true, ThreadsPlan{
		ActiveCores:         activeCores,
		TasksOffset:         tasksOffset,
		TasksPerCore:        tasksPerCore,
		FullWarps:           fullWarps,
		Tail:                tail,
		ActiveWarpsPerBatch: activeWarpsPerBatch,
		WarpBatches:         warpBatches,
		RemainingWarps:      remainingWarps,
		RemainTasksOffset:   remainTasksOffset,
	}
}
