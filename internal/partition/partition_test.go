package partition

import (
	"math/rand"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeGeometry(t *testing.T) {
	t.Run("defaults absent axes to 1", func(t *testing.T) {
		grid, block, numGroups, groupSize := NormalizeGeometry(1, []uint32{8}, nil)
		assert.Equal(t, Dim3{8, 1, 1}, grid)
		assert.Equal(t, Dim3{1, 1, 1}, block)
		assert.Equal(t, uint32(8), numGroups)
		assert.Equal(t, uint32(1), groupSize)
	})

	t.Run("3D geometry", func(t *testing.T) {
		grid, block, numGroups, groupSize := NormalizeGeometry(3, []uint32{2, 2, 1}, []uint32{2, 2, 1})
		assert.Equal(t, Dim3{2, 2, 1}, grid)
		assert.Equal(t, Dim3{2, 2, 1}, block)
		assert.Equal(t, uint32(4), numGroups)
		assert.Equal(t, uint32(4), groupSize)
	})

	t.Run("nil pointers default every axis to 1", func(t *testing.T) {
		grid, block, numGroups, groupSize := NormalizeGeometry(3, nil, nil)
		assert.Equal(t, Dim3{1, 1, 1}, grid)
		assert.Equal(t, Dim3{1, 1, 1}, block)
		assert.Equal(t, uint32(1), numGroups)
		assert.Equal(t, uint32(1), groupSize)
	})
}

func TestValidateCapacity(t *testing.T) {
	require.NoError(t, ValidateCapacity(16, 4, 4))
	err := ValidateCapacity(17, 4, 4)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBlockTooLarge)
}

func TestDecompose(t *testing.T) {
	// S5: grid=(2,2,1), block=(2,2,1); block (1,0,0) is linear 1.
	assert.Equal(t, Dim3{1, 0, 0}, Decompose(1, Dim3{2, 2, 1}))
	// thread (1,1,0) within a (2,2,1) block has local_task_id = 3.
	assert.Equal(t, uint32(3), func() uint32 {
		for id := uint32(0); id < 4; id++ {
			if Decompose(id, Dim3{2, 2, 1}) == (Dim3{1, 1, 0}) {
				return id
			}
		}
		return 0xFFFFFFFF
	}())
}

// S2: grid=(3,1,1), block=(6,1,1) on num_cores=2, warps_per_core=4,
// threads_per_warp=4.
func TestGroupsPartition_S2(t *testing.T) {
	active0, p0 := GroupsPartition(3, 6, 4, 4, 2, 0)
	active1, p1 := GroupsPartition(3, 6, 4, 4, 2, 1)
	require.True(t, active0)
	require.True(t, active1)

	assert.Equal(t, uint32(2), p0.WarpsPerGroup)
	assert.Equal(t, uint32(0b11), p0.RemainingMask)

	assert.Equal(t, uint32(2), p0.GroupsPerCore, "core 0 gets the remainder block")
	assert.Equal(t, uint32(0), p0.GroupOffset)
	assert.Equal(t, uint32(1), p1.GroupsPerCore)
	assert.Equal(t, uint32(2), p1.GroupOffset)
}

// S3: grid=(5,1,1), block=(4,1,1) on 2 cores, warps_per_core=4, threads_per_warp=4.
func TestGroupsPartition_S3(t *testing.T) {
	active0, p0 := GroupsPartition(5, 4, 4, 4, 2, 0)
	active1, p1 := GroupsPartition(5, 4, 4, 4, 2, 1)
	require.True(t, active0)
	require.True(t, active1)

	assert.Equal(t, uint32(1), p0.WarpsPerGroup)
	assert.Equal(t, ^uint32(0), p0.RemainingMask, "block_dim divides threads_per_warp evenly")
	assert.Equal(t, uint32(3), p0.GroupsPerCore)
	assert.Equal(t, uint32(2), p1.GroupsPerCore)
	assert.Equal(t, uint32(4), p0.ConcurrentGroups)
}

// S4: grid=(1,1,1), block=(17,1,1) -> group_size=17 > 16.
func TestValidateCapacity_S4(t *testing.T) {
	err := ValidateCapacity(17, 4, 4)
	require.Error(t, err)
}

// S1/S6: one-thread-per-block path.
//
// needed_cores = ceil(num_tasks / (warps_per_core*threads_per_warp)) =
// ceil(8/16) = 1, so only core 0 is active; it handles all 8 tasks on 2
// full warps.
func TestThreadsPartition_S1(t *testing.T) {
	active0, p0 := ThreadsPartition(8, 4, 4, 2, 0)
	active1, _ := ThreadsPartition(8, 4, 4, 2, 1)
	require.True(t, active0)
	require.False(t, active1, "needed_cores=1, so core 1 sits outside active_cores")
	assert.Equal(t, uint32(8), p0.TasksPerCore)
	assert.Equal(t, uint32(0), p0.TasksOffset)
	assert.Equal(t, uint32(0), p0.Tail)
	assert.Equal(t, uint32(2), p0.FullWarps)
}

func TestThreadsPartition_S6(t *testing.T) {
	active0, p0 := ThreadsPartition(9, 4, 1, 2, 0)
	active1, p1 := ThreadsPartition(9, 4, 1, 2, 1)
	require.True(t, active0)
	require.True(t, active1)
	assert.Equal(t, uint32(5), p0.TasksPerCore, "low-index-first balance gives core 0 the extra task")
	assert.Equal(t, uint32(1), p0.Tail, "core 0's remainder stub fires once")
	assert.Equal(t, uint32(4), p1.TasksPerCore)
	assert.Equal(t, uint32(0), p1.Tail)
	assert.Equal(t, uint32(1), p1.FullWarps)
}

// Tail-only path: no full warps, but a nonzero tail (spec's extended S6
// open-question coverage: the remainder stub alone must not leave a gap).
func TestThreadsPartition_TailOnlyPath(t *testing.T) {
	active, p := ThreadsPartition(3, 4, 4, 1, 0)
	require.True(t, active)
	assert.Equal(t, uint32(0), p.FullWarps)
	assert.Equal(t, uint32(3), p.Tail)
	assert.Equal(t, uint32(0), p.ActiveWarpsPerBatch)
	assert.Equal(t, uint32(0), p.TasksOffset)
	assert.Equal(t, uint32(0), p.RemainTasksOffset)
}

func TestGroupsPartition_ZeroGroupsIsNoop(t *testing.T) {
	active, _ := GroupsPartition(0, 6, 4, 4, 2, 0)
	assert.False(t, active)
}

func TestThreadsPartition_ZeroTasksIsNoop(t *testing.T) {
	active, _ := ThreadsPartition(0, 4, 4, 2, 0)
	assert.False(t, active)
}

// Property tests over random (grid, block, device_caps), per spec section 8.

func randDeviceAndGeometry(r *rand.Rand) (numCores, warpsPerCore, threadsPerWarp, numGroups, groupSize uint32) {
	numCores = uint32(1 + r.Intn(8))
	warpsPerCore = uint32(1 + r.Intn(8))
	threadsPerWarp = uint32(1 + r.Intn(8))
	numGroups = uint32(r.Intn(40))
	capacity := warpsPerCore * threadsPerWarp
	groupSize = uint32(1 + r.Intn(int(capacity)))
	return
}

func TestGroupsPartition_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for trial := 0; trial < 300; trial++ {
		numCores, warpsPerCore, threadsPerWarp, numGroups, groupSize := randDeviceAndGeometry(r)
		if groupSize <= 1 {
			continue
		}

		var groupsPerCore []uint32
		covered := map[uint32]uint32{} // block -> owning core

		for core := uint32(0); core < numCores; core++ {
			active, p := GroupsPartition(numGroups, groupSize, threadsPerWarp, warpsPerCore, numCores, core)
			if !active {
				continue
			}
			groupsPerCore = append(groupsPerCore, p.GroupsPerCore)

			// Slab contiguity (property 3).
			for _, b := range lo.Range(int(p.GroupsPerCore)) {
				block := p.GroupOffset + uint32(b)
				if prev, dup := covered[block]; dup {
					t.Fatalf("block %d double-assigned to cores %d and %d", block, prev, core)
				}
				covered[block] = core
			}

			// Batch correctness (property 5): iteration counts sum to GroupsPerCore.
			var total uint32
			var iterCounts []uint32
			for warpID := uint32(0); warpID < p.ActiveWarpsPerBatch; warpID++ {
				iters := p.WarpBatches
				if warpID < p.RemainingWarps {
					iters++
				}
				if warpID%p.WarpsPerGroup == 0 {
					total += iters
					iterCounts = append(iterCounts, iters)
				}
			}
			assert.Equal(t, p.GroupsPerCore, total, "iteration counts must cover every assigned block exactly once")
			if len(iterCounts) > 1 {
				mn, mx := lo.Min(iterCounts), lo.Max(iterCounts)
				assert.LessOrEqual(t, mx-mn, uint32(1), "per-warp iteration counts differ by at most 1")
			}
		}

		// Disjoint slabs + coverage (properties 1, 2).
		assert.Equal(t, int(numGroups), len(covered), "every block must be covered exactly once")

		// Balanced partition (property 4).
		if len(groupsPerCore) > 1 {
			mn, mx := lo.Min(groupsPerCore), lo.Max(groupsPerCore)
			assert.LessOrEqual(t, mx-mn, uint32(1), "groups_per_core must be balanced within 1")
		}
	}
}

func TestThreadsPartition_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for trial := 0; trial < 300; trial++ {
		numCores := uint32(1 + r.Intn(8))
		warpsPerCore := uint32(1 + r.Intn(8))
		threadsPerWarp := uint32(1 + r.Intn(8))
		numTasks := uint32(r.Intn(80))

		var tasksPerCore []uint32
		covered := map[uint32]bool{}

		for core := uint32(0); core < numCores; core++ {
			active, p := ThreadsPartition(numTasks, threadsPerWarp, warpsPerCore, numCores, core)
			if !active {
				continue
			}
			tasksPerCore = append(tasksPerCore, p.TasksPerCore)

			for _, i := range lo.Range(int(p.TasksPerCore)) {
				task := p.TasksOffset + uint32(i)
				require.False(t, covered[task], "task %d double-assigned", task)
				covered[task] = true
			}

			// Remainder stub picks up exactly where the full warps left off
			// (Open Question 2: no gap in the tail-only path).
			assert.Equal(t, p.TasksOffset+p.FullWarps*threadsPerWarp, p.RemainTasksOffset)
		}

		assert.Equal(t, int(numTasks), len(covered))
		if len(tasksPerCore) > 1 {
			mn, mx := lo.Min(tasksPerCore), lo.Max(tasksPerCore)
			assert.LessOrEqual(t, mx-mn, uint32(1))
		}
	}
}
