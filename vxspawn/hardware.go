package vxspawn

// Hardware is the capability set SpawnThreads binds to: the abstract
// hardware primitives spec section 6 lists as out of scope for the core
// to implement (identity queries, lane-mask control, warp spawn, and the
// CSR scratch register). hwsim.Device provides the software realization;
// tests may supply lighter fakes.
//
// A Hardware value is scoped to one physical core: CoreID, NumCores,
// WarpsPerCore, and ThreadsPerWarp are fixed for the lifetime of the
// value, and WriteScratch/ReadScratch/WSpawn/Join/SetMask/
// PublishWarpsPerGroup operate on that one core's state only — nothing
// here is shared across cores, matching the "replicated exactly on every
// active core without inter-core communication" requirement.
type Hardware interface {
	// CoreID is this core's index in [0, NumCores).
	CoreID() uint32
	NumCores() uint32
	WarpsPerCore() uint32
	ThreadsPerWarp() uint32

	// WriteScratch stores the scratch descriptor (a *groupsDescriptor or
	// *threadsDescriptor) so sibling warps spawned by WSpawn can read it
	// via ReadScratch without an explicit argument pass. The descriptor
	// must remain valid until Join returns.
	WriteScratch(descriptor any)
	ReadScratch() any

	// PublishWarpsPerGroup writes the core-wide warps_per_group value
	// once, before any warp is spawned; read-only thereafter for the
	// launch's lifetime (spec section 5's shared-resource rule).
	PublishWarpsPerGroup(warpsPerGroup uint32)

	// SetMask sets the lane mask for the given warp: all-ones for bit
	// pattern ^uint32(0), or a specific low-bits pattern for a partially
	// populated last warp.
	SetMask(warpID, mask uint32)

	// WSpawn dispatches n-1 sibling warps (warp IDs 1..n-1) onto entry
	// and returns once they've been dispatched; it does not itself run
	// entry for warp 0 — the caller does that inline, mirroring
	// vx_wspawn followed by a direct call to the stub on the calling warp.
	WSpawn(n uint32, entry func(warpID uint32))

	// Join blocks until every warp this core spawned via WSpawn for the
	// current launch has completed: the quiescence barrier of spec
	// section 2 step 6.
	Join()
}

// groupsDescriptor is the block-per-warp scratch descriptor of spec
// section 3's "Groups variant".
type groupsDescriptor struct {
	kernel KernelFunc
	arg    any
	grid   Dim3
	block  Dim3

	groupOffset      uint32
	warpBatches      uint32
	remainingWarps   uint32
	warpsPerGroup    uint32
	concurrentGroups uint32
	remainingMask    uint32
}

// threadsDescriptor is the one-thread-per-block scratch descriptor of
// spec section 3's "Threads variant".
type threadsDescriptor struct {
	kernel KernelFunc
	arg    any
	grid   Dim3
	block  Dim3

	allTasksOffset    uint32
	remainTasksOffset uint32
	warpBatches       uint32
	remainingWarps    uint32
}
