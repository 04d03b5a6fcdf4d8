// Command vxsim is the conformance/regression driver for the SIMT
// kernel-launch runtime: it builds a grid/block geometry from flags,
// selects a sample kernel, runs it through hwsim.Device.Launch, and
// prints a one-line summary of the result (for the identity kernel: threads
// observed and distinct blocks). It is a consumer of vxspawn, never
// part of it — spec.md section 1 places this kind of harness explicitly
// out of the core's scope.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "vxsim",
		Short: "Software SIMT kernel-launch conformance and regression driver",
		Long: `vxsim drives vxspawn.SpawnThreads against a simulated multi-core,
multi-warp device (hwsim), the same way the Vortex conformance harness and
matmul regression drive vx_spawn_threads against real hardware.`,
	}
	root.AddCommand(newRunCmd())
	return root
}
