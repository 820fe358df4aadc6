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

package hillslope

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

// Mesh is the local partition of a TIN as seen by the hillslope process.
type Mesh interface {
	// EdgeLengths returns the lengths of the TIN edges of the partition.
	// Non-positive entries are ignored.
	EdgeLengths() []float64

	// NodeTable returns the per-node inputs to the sediment flux
	// calculation for the current elevations.
	NodeTable() Nodes

	// Deposit adds dz to the elevation of the nodes owned by the partition.
	Deposit(dz []float64) error
}

// Model holds the current state of a hillslope simulation on one
// partition.
type Model struct {
	*Diffusion
	Mesh Mesh

	// SeaLevel gives the sea level [m] at a simulation time [yr].
	SeaLevel SeaLevelFunc

	Time    float64 // Current simulation time [yr]
	EndTime float64 // [yr]
	Dt      float64 // Current time step [yr]

	// InitFuncs are run once by Init; RunFuncs are run in order on each
	// iteration by Run until Done is true.
	InitFuncs []DomainManipulator
	RunFuncs  []DomainManipulator

	// Done specifies whether the simulation is finished.
	Done bool

	// Ctx is passed to collective operations. If nil,
	// context.Background() is used.
	Ctx context.Context

	// flux is the most recently calculated sediment flux [m/yr].
	flux []float64
}

// DomainManipulator is a class of functions that operate on the entire
// model domain.
type DomainManipulator func(m *Model) error

// Init initializes the simulation by running m.InitFuncs.
func (m *Model) Init() error {
	if m.Diffusion == nil {
		return fmt.Errorf("hillslope: model has no diffusion process")
	}
	if m.Mesh == nil {
		return fmt.Errorf("hillslope: model has no mesh")
	}
	if m.SeaLevel == nil {
		m.SeaLevel = ConstantSeaLevel(0)
	}
	for _, f := range m.InitFuncs {
		if err := f(m); err != nil {
			return err
		}
	}
	return nil
}

// Run carries out the simulation by running m.RunFuncs until m.Done is
// true.
func (m *Model) Run() error {
	for !m.Done {
		for _, f := range m.RunFuncs {
			if err := f(m); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flux returns the sediment flux from the most recent call to Diffuse.
func (m *Model) Flux() []float64 { return m.flux }

func (m *Model) ctx() context.Context {
	if m.Ctx == nil {
		return context.Background()
	}
	return m.Ctx
}

// SetTimestepCFL returns a function that sets the time step to the
// global stable hillslope time step of the mesh. It takes part in a
// collective reduction, so it must be run on every partition.
func SetTimestepCFL() DomainManipulator {
	return func(m *Model) error {
		cfl, err := m.Stability(m.ctx(), m.Mesh.EdgeLengths())
		if err != nil {
			return err
		}
		m.Dt = cfl
		return nil
	}
}

// Diffuse returns a function that calculates the hillslope sediment flux
// at the current sea level and applies it to the owned nodes over one
// time step. The last time step is shortened so that the simulation ends
// exactly at EndTime.
func Diffuse() DomainManipulator {
	return func(m *Model) error {
		if !(m.Dt > 0) {
			return fmt.Errorf("hillslope: time step must be > 0 but is %g; run SetTimestepCFL first", m.Dt)
		}
		if m.EndTime > m.Time && m.Time+m.Dt > m.EndTime {
			m.Dt = m.EndTime - m.Time
		}
		flux, err := m.ComputeSedimentFlux(m.Mesh.NodeTable(), m.SeaLevel(m.Time))
		if err != nil {
			return err
		}
		m.flux = flux
		dz := make([]float64, len(flux))
		for i, f := range flux {
			dz[i] = f * m.Dt
		}
		return m.Mesh.Deposit(dz)
	}
}

// AdvanceTime returns a function that increments the simulation time by
// the time step and sets Done once EndTime has been reached.
func AdvanceTime() DomainManipulator {
	return func(m *Model) error {
		m.Time += m.Dt
		// Absorb rounding error from the shortened last time step.
		if m.EndTime-m.Time <= 1e-12*math.Max(1, math.Abs(m.EndTime)) {
			m.Done = true
		}
		return nil
	}
}

// RunPeriodically runs f periodically during the simulation,
// with the time in between runs specified by period [yr]. The first run
// is one period after the time of the first call.
func RunPeriodically(period float64, f DomainManipulator) DomainManipulator {
	var nextRun float64
	started := false
	return func(m *Model) error {
		if !started {
			nextRun = m.Time + period
			started = true
		}
		if m.Time >= nextRun {
			nextRun += period
			return f(m)
		}
		return nil
	}
}

// Log writes simulation status messages to w.
func Log(w io.Writer) DomainManipulator {
	startTime := time.Now()
	timeStepTime := time.Now()
	iteration := 0

	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableSorting: true})

	return func(m *Model) error {
		iteration++
		l.WithFields(logrus.Fields{
			"iteration":  iteration,
			"walltime":   time.Since(startTime).Round(time.Millisecond),
			"Δwalltime":  time.Since(timeStepTime).Round(time.Millisecond),
			"timestep":   m.Dt,
			"time":       m.Time,
			"sea_level":  m.SeaLevel(m.Time),
			"total_flux": floats.Sum(m.flux),
		}).Info("hillslope iteration")
		timeStepTime = time.Now()
		return nil
	}
}
