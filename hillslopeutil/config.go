/*
Copyright © 2024 the hillslope authors.
This file is part of hillslope.

hillslope is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

hillslope is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with hillslope.  If not, see <http://www.gnu.org/licenses/>.
*/

package hillslopeutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spatialmodel/hillslope"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Config holds the settings for a hillslope run.
type Config struct {
	CDAerial, CDMarine float64
	Kernel             hillslope.StabilityKernel

	// Partitions are the paths to the partition files handled by this
	// process.
	Partitions []string

	SeaLevel hillslope.SeaLevelFunc

	StartTime, EndTime float64 // [yr]
	OutputInterval     float64 // [yr]
	OutputDir          string

	// Coordinator is the address of a collective coordinator. If it is
	// empty, the partitions are reduced within this process.
	Coordinator string
	Rank, Size  int
}

// LoadConfig unmarshals a viper configuration for a hillslope run.
func LoadConfig(cfg *viper.Viper) (*Config, error) {
	kernel, err := hillslope.KernelByName(cfg.GetString("Kernel"))
	if err != nil {
		return nil, err
	}
	seaLevel, err := seaLevel(cfg)
	if err != nil {
		return nil, err
	}
	c := &Config{
		CDAerial:       cfg.GetFloat64("CDAerial"),
		CDMarine:       cfg.GetFloat64("CDMarine"),
		Kernel:         kernel,
		Partitions:     expandStringSlice(cfg.GetStringSlice("Partitions")),
		SeaLevel:       seaLevel,
		StartTime:      cfg.GetFloat64("StartTime"),
		EndTime:        cfg.GetFloat64("EndTime"),
		OutputInterval: cfg.GetFloat64("OutputInterval"),
		OutputDir:      os.ExpandEnv(cfg.GetString("OutputDir")),
		Coordinator:    os.ExpandEnv(cfg.GetString("Coordinator")),
		Rank:           cfg.GetInt("Rank"),
		Size:           cfg.GetInt("Size"),
	}
	if c.CDAerial < 0 || c.CDMarine < 0 {
		return nil, fmt.Errorf("%w: CDAerial=%g and CDMarine=%g must not be negative",
			hillslope.ErrConfiguration, c.CDAerial, c.CDMarine)
	}
	if len(c.Partitions) == 0 {
		return nil, fmt.Errorf("there are no partition files specified. Please fill in " +
			"the Partitions configuration variable and try again")
	}
	if c.Coordinator != "" {
		if len(c.Partitions) != 1 {
			return nil, fmt.Errorf("when using a Coordinator, each process handles exactly one "+
				"partition, but %d are specified", len(c.Partitions))
		}
		if c.Rank < 0 || c.Rank >= c.Size {
			return nil, fmt.Errorf("Rank=%d is out of range for Size=%d", c.Rank, c.Size)
		}
	}
	return c, nil
}

// checkRunTimes makes sure that the simulation period is valid.
func (c *Config) checkRunTimes() error {
	if !(c.EndTime > c.StartTime) {
		return fmt.Errorf("EndTime (%g) must be after StartTime (%g)", c.EndTime, c.StartTime)
	}
	if c.OutputInterval < 0 {
		return fmt.Errorf("OutputInterval=%g must not be negative", c.OutputInterval)
	}
	return nil
}

// checkOutputDir makes sure that the output directory is specified and
// exists.
func (c *Config) checkOutputDir() error {
	if c.OutputDir == "" {
		return fmt.Errorf(`you need to specify an output directory configuration variable (for example: OutputDir="results")`)
	}
	info, err := os.Stat(c.OutputDir)
	if err != nil {
		return fmt.Errorf("hillslope: the OutputDir directory doesn't exist: %v", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("hillslope: OutputDir %s is not a directory", c.OutputDir)
	}
	names := make(map[string]string, len(c.Partitions))
	for _, p := range c.Partitions {
		name := filepath.Base(p)
		if prev, ok := names[name]; ok {
			return fmt.Errorf("hillslope: partitions %s and %s would both be saved as %s in OutputDir",
				prev, p, name)
		}
		names[name] = p
	}
	return nil
}

// seaLevel returns the sea level curve if SeaLevelCurve is set and
// a constant SeaLevel otherwise.
func seaLevel(cfg *viper.Viper) (hillslope.SeaLevelFunc, error) {
	curve, err := getStringMapString("SeaLevelCurve", cfg)
	if err != nil {
		return nil, err
	}
	if len(curve) == 0 {
		return hillslope.ConstantSeaLevel(cfg.GetFloat64("SeaLevel")), nil
	}
	keys := make([]string, 0, len(curve))
	for k := range curve {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	times := make([]float64, len(keys))
	levels := make([]float64, len(keys))
	for i, k := range keys {
		if times[i], err = cast.ToFloat64E(k); err != nil {
			return nil, fmt.Errorf("SeaLevelCurve: invalid time %q: %v", k, err)
		}
		if levels[i], err = cast.ToFloat64E(curve[k]); err != nil {
			return nil, fmt.Errorf("SeaLevelCurve: invalid level %q at time %s: %v", curve[k], k, err)
		}
	}
	return hillslope.SeaLevelCurve(times, levels)
}

// expandStringSlice expands the environment variables in a slice of strings.
func expandStringSlice(s []string) []string {
	for i := 0; i < len(s); i++ {
		s[i] = os.ExpandEnv(s[i])
	}
	return s
}

// getStringMapString returns a map[string]string from a viper configuration,
// accounting for the fact that it might be a json object if it was set
// from a command line argument.
func getStringMapString(varName string, cfg *viper.Viper) (map[string]string, error) {
	i := cfg.Get(varName)
	switch v := i.(type) {
	case nil:
		return nil, nil
	case map[string]string:
		return v, nil
	case map[string]interface{}:
		return cast.ToStringMapStringE(v)
	case string:
		if v == "" {
			return nil, nil
		}
		o := make(map[string]interface{})
		if err := json.NewDecoder(bytes.NewBufferString(v)).Decode(&o); err != nil {
			return nil, fmt.Errorf("%s: %v", varName, err)
		}
		return cast.ToStringMapStringE(o)
	default:
		return nil, fmt.Errorf("invalid type for %s: %#v", varName, i)
	}
}
