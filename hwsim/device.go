package hwsim

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/vxsim/vxsim/internal/partition"
	"github.com/vxsim/vxsim/vxspawn"
)

// DeviceProfile is a device's fixed capability set: the identity facts
// spec section 3 says are "queried from hardware each call". In this
// simulation they're fixed at construction instead of probed.
type DeviceProfile struct {
	NumCores       uint32 `yaml:"num_cores"`
	WarpsPerCore   uint32 `yaml:"warps_per_core"`
	ThreadsPerWarp uint32 `yaml:"threads_per_warp"`
}

// Device is a software SIMT device: NumCores goroutines, each hosting up
// to WarpsPerCore concurrent warp goroutines, each iterating up to
// ThreadsPerWarp lanes per the recorded mask.
type Device struct {
	profile DeviceProfile
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures a Device.
type Option func(*Device)

// WithLogger overrides the device's structured logger (default:
// slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(d *Device) { d.logger = l }
}

// WithMetrics attaches a Metrics set so every launch updates its counters.
func WithMetrics(m *Metrics) Option {
	return func(d *Device) { d.metrics = m }
}

// NewDevice constructs a Device from a fixed capability profile.
func NewDevice(profile DeviceProfile, opts ...Option) *Device {
	d := &Device{profile: profile, logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Launch invokes vxspawn.SpawnThreads identically on every physical core,
// concurrently, exactly as spec section 5 requires: "the host-side entry
// is invoked once per physical core concurrently and must be re-entrant
// across cores without any shared mutable state beyond the device itself."
//
// Launch is synchronous: it returns once every core has returned. On
// ErrBlockTooLarge every core rejects the launch itself, before any scratch
// write or warp spawn, so no kernel invocation happens on any core.
func (d *Device) Launch(dimension uint32, gridDim, blockDim []uint32, kernel vxspawn.KernelFunc, arg any) error {
	if d.metrics != nil {
		d.metrics.launches.Inc()
	}

	numCores := d.profile.NumCores
	warpsPerCore := d.profile.WarpsPerCore
	threadsPerWarp := d.profile.ThreadsPerWarp

	var wg sync.WaitGroup
	errs := make([]error, numCores)

	for core := uint32(0); core < numCores; core++ {
		wg.Add(1)
		coreID := core
		go func() {
			defer wg.Done()
			hw := &coreHardware{
				coreID:         coreID,
				numCores:       numCores,
				warpsPerCore:   warpsPerCore,
				threadsPerWarp: threadsPerWarp,
				pool:           newWarpPool(warpsPerCore),
				metrics:        d.metrics,
				lastMasks:      map[uint32]uint32{},
			}
			errs[coreID] = vxspawn.SpawnThreads(dimension, gridDim, blockDim, kernel, arg, hw)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			if d.metrics != nil {
				d.metrics.oversized.Inc()
			}
			d.logger.Error("launch rejected", "error", err)
			return fmt.Errorf("hwsim: launch failed: %w", err)
		}
	}

	if d.metrics != nil {
		_, _, numGroups, groupSize := partition.NormalizeGeometry(dimension, gridDim, blockDim)
		var activeCores uint32
		if groupSize > 1 {
			_, plan := partition.GroupsPartition(numGroups, groupSize, threadsPerWarp, warpsPerCore, numCores, 0)
			activeCores = plan.ActiveCores
		} else {
			_, plan := partition.ThreadsPartition(numGroups, threadsPerWarp, warpsPerCore, numCores, 0)
			activeCores = plan.ActiveCores
		}
		d.metrics.activeCores.Set(float64(activeCores))
	}
	d.logger.Debug("launch completed", "num_cores", numCores, "warps_per_core", warpsPerCore, "threads_per_warp", threadsPerWarp)
	return nil
}

// Profile returns the device's fixed capability set.
func (d *Device) Profile() DeviceProfile { return d.profile }
