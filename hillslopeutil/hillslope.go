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
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/hillslope"
	"github.com/spatialmodel/hillslope/collective"
	"github.com/spatialmodel/hillslope/tin"
)

// LoadPartitions reads the partition files at paths.
func LoadPartitions(paths []string) ([]*tin.Partition, error) {
	parts := make([]*tin.Partition, len(paths))
	for i, path := range paths {
		p, err := tin.LoadFile(path)
		if err != nil {
			return nil, err
		}
		parts[i] = p
	}
	return parts, nil
}

// communicators returns one communicator for each of n local partitions,
// and a function to release them.
func communicators(ctx context.Context, c *Config, n int) ([]collective.Communicator, func() error, error) {
	if c.Coordinator == "" {
		comms, err := collective.NewGroup(n)
		return comms, func() error { return nil }, err
	}
	comm, err := collective.Dial(ctx, c.Coordinator, c.Rank, c.Size)
	if err != nil {
		return nil, nil, err
	}
	return []collective.Communicator{comm}, comm.Close, nil
}

// checkGeometry makes sure every partition has at least one usable edge
// before any partition enters a collective reduction, so that no
// partition is left waiting for one that has failed.
func checkGeometry(c *Config, parts []*tin.Partition) error {
	for i, p := range parts {
		if _, err := c.Kernel.LocalTimestep(p.EdgeLengths(), 1); err != nil {
			return fmt.Errorf("%s: %w", c.Partitions[i], err)
		}
	}
	return nil
}

// parallel runs f concurrently for each partition and its communicator
// and returns the first error, if any.
func parallel(c *Config, parts []*tin.Partition, comms []collective.Communicator,
	f func(i int, p *tin.Partition, d *hillslope.Diffusion) error) error {
	errs := make([]error, len(parts))
	var wg sync.WaitGroup
	wg.Add(len(parts))
	for i := range parts {
		go func(i int) {
			defer wg.Done()
			d, err := hillslope.NewDiffusion(c.CDAerial, c.CDMarine, comms[i])
			if err != nil {
				errs[i] = err
				return
			}
			d.Kernel = c.Kernel
			d.Log = logrus.WithField("partition", c.Partitions[i])
			errs[i] = f(i, parts[i], d)
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			return fmt.Errorf("%s: %w", c.Partitions[i], err)
		}
	}
	return nil
}

// CFL returns the global stable time step [yr] of all partitions in the
// configured group.
func CFL(ctx context.Context, c *Config) (float64, error) {
	parts, err := LoadPartitions(c.Partitions)
	if err != nil {
		return 0, err
	}
	if err := checkGeometry(c, parts); err != nil {
		return 0, err
	}
	comms, release, err := communicators(ctx, c, len(parts))
	if err != nil {
		return 0, err
	}
	defer release()

	cfl := make([]float64, len(parts))
	err = parallel(c, parts, comms, func(i int, p *tin.Partition, d *hillslope.Diffusion) error {
		var err error
		cfl[i], err = d.Stability(ctx, p.EdgeLengths())
		return err
	})
	if err != nil {
		return 0, err
	}
	return cfl[0], nil
}

// Flux returns the hillslope sediment flux [m/yr] of each node of each
// partition at the current elevations and the sea level at StartTime.
func Flux(c *Config) ([][]float64, error) {
	parts, err := LoadPartitions(c.Partitions)
	if err != nil {
		return nil, err
	}
	d, err := hillslope.NewDiffusion(c.CDAerial, c.CDMarine, nil)
	if err != nil {
		return nil, err
	}
	sea := c.SeaLevel(c.StartTime)
	o := make([][]float64, len(parts))
	for i, p := range parts {
		if o[i], err = d.ComputeSedimentFlux(p.NodeTable(), sea); err != nil {
			return nil, fmt.Errorf("%s: %w", c.Partitions[i], err)
		}
	}
	return o, nil
}

// Run runs a hillslope simulation on the configured partitions from
// StartTime to EndTime and saves the resulting partitions in OutputDir.
// If OutputInterval > 0, the status of the first local partition is
// written to w at that interval.
func Run(ctx context.Context, c *Config, w io.Writer) error {
	if err := c.checkRunTimes(); err != nil {
		return err
	}
	if err := c.checkOutputDir(); err != nil {
		return err
	}
	parts, err := LoadPartitions(c.Partitions)
	if err != nil {
		return err
	}
	if err := checkGeometry(c, parts); err != nil {
		return err
	}
	comms, release, err := communicators(ctx, c, len(parts))
	if err != nil {
		return err
	}
	defer release()

	err = parallel(c, parts, comms, func(i int, p *tin.Partition, d *hillslope.Diffusion) error {
		m := &hillslope.Model{
			Diffusion: d,
			Mesh:      p,
			SeaLevel:  c.SeaLevel,
			Time:      c.StartTime,
			EndTime:   c.EndTime,
			Ctx:       ctx,
			RunFuncs: []hillslope.DomainManipulator{
				hillslope.SetTimestepCFL(),
				hillslope.Diffuse(),
				hillslope.AdvanceTime(),
			},
		}
		if c.OutputInterval > 0 && i == 0 {
			m.RunFuncs = append(m.RunFuncs, hillslope.RunPeriodically(c.OutputInterval, hillslope.Log(w)))
		}
		if err := m.Init(); err != nil {
			return err
		}
		return m.Run()
	})
	if err != nil {
		return err
	}
	for i, p := range parts {
		if err := save(p, filepath.Join(c.OutputDir, filepath.Base(c.Partitions[i]))); err != nil {
			return err
		}
	}
	return nil
}

func save(p *tin.Partition, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("hillslope: creating output file: %v", err)
	}
	if err := p.Save(f); err != nil {
		f.Close()
		return fmt.Errorf("hillslope: writing %s: %v", path, err)
	}
	logrus.WithField("file", path).Info("saved partition")
	return f.Close()
}
