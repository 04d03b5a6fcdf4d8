package hwsim

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadProfile reads a DeviceProfile from a YAML file, the same plain-struct
// config style the teacher uses for its own settings (it just never had a
// file that needed yaml.v3 outside its go.mod). Example:
//
//	num_cores: 8
//	warps_per_core: 4
//	threads_per_warp: 32
func LoadProfile(path string) (DeviceProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DeviceProfile{}, fmt.Errorf("hwsim: reading profile %q: %w", path, err)
	}

	var p DeviceProfile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return DeviceProfile{}, fmt.Errorf("hwsim: parsing profile %q: %w", path, err)
	}
	if p.NumCores == 0 || p.WarpsPerCore == 0 || p.ThreadsPerWarp == 0 {
		return DeviceProfile{}, fmt.Errorf("hwsim: profile %q must set num_cores, warps_per_core, and threads_per_warp", path)
	}
	return p, nil
}
