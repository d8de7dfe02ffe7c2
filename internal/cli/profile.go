package cli

import (
	"github.com/BurntSushi/toml"

	"github.com/flowgrid/flowgrid/pkg/errors"
	"github.com/flowgrid/flowgrid/pkg/refine"
)

// loadProfile reads a TOML layout profile. Values start from the tuned
// defaults, so a profile only needs to name the settings it overrides:
//
//	base_spacing = 100
//	pixel_grid = 5
func loadProfile(path string) (*refine.Config, error) {
	cfg := refine.DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "load profile %s", path)
	}
	return &cfg, nil
}
