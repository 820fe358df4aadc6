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
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spatialmodel/hillslope"
	"github.com/spatialmodel/hillslope/tin"
)

// resetCfg sets every option used by the tests so that settings from one
// test do not leak into the next.
func resetCfg() {
	for k, v := range map[string]interface{}{
		"config":         "",
		"CDAerial":       1.0,
		"CDMarine":       0.5,
		"Kernel":         "geometry",
		"Partitions":     []string{"testdata/a.toml", "testdata/b.toml"},
		"SeaLevel":       0.0,
		"SeaLevelCurve":  "",
		"StartTime":      0.0,
		"EndTime":        1.0,
		"OutputInterval": 0.0,
		"OutputDir":      "",
		"LogFile":        "",
		"Verbose":        false,
		"Coordinator":    "",
		"Rank":           0,
		"Size":           1,
	} {
		Cfg.Set(k, v)
	}
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var buf bytes.Buffer
	Root.SetOut(&buf)
	Root.SetArgs(args)
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	return buf.String()
}

func TestVersion(t *testing.T) {
	resetCfg()
	out := execute(t, "version")
	if want := "hillslope v" + hillslope.Version; !strings.Contains(out, want) {
		t.Errorf("have %q, want %q", out, want)
	}
}

func TestCFLCommand(t *testing.T) {
	for _, kernel := range []string{"geometry", "kernel"} {
		t.Run(kernel, func(t *testing.T) {
			resetCfg()
			Cfg.Set("Kernel", kernel)
			out := execute(t, "cfl")
			// The partition with 1 m edges controls: 0.05 * 1² / 1.
			if want := "stable time step: 0.05 yr\n"; out != want {
				t.Errorf("have %q, want %q", out, want)
			}
		})
	}
}

func TestFluxCommand(t *testing.T) {
	resetCfg()
	out := execute(t, "flux")
	want := `# testdata/a.toml
0 1
1 -1.5
2 0.5
# testdata/b.toml
0 2
1 -3
2 1
`
	if out != want {
		t.Errorf("have\n%s\nwant\n%s", out, want)
	}
}

func TestFluxCommandSeaLevel(t *testing.T) {
	resetCfg()
	Cfg.Set("Partitions", []string{"testdata/a.toml"})
	Cfg.Set("SeaLevelCurve", `{"0": -10, "1000": 10}`)
	// The sea level at 625 yr is 2.5 m, so only the middle node is subaerial.
	Cfg.Set("StartTime", 625.0)
	out := execute(t, "flux")
	want := `# testdata/a.toml
0 0.5
1 -1.5
2 0.25
`
	if out != want {
		t.Errorf("have\n%s\nwant\n%s", out, want)
	}
}

func TestRunCommand(t *testing.T) {
	resetCfg()
	dir := t.TempDir()
	Cfg.Set("OutputDir", dir)
	Cfg.Set("OutputInterval", 0.5)
	execute(t, "run")

	for _, name := range []string{"a.toml", "b.toml"} {
		in, err := tin.LoadFile(filepath.Join("testdata", name))
		if err != nil {
			t.Fatal(err)
		}
		out, err := tin.LoadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatal(err)
		}
		var v0, v1 float64
		for i := range in.Elevation {
			v0 += in.Elevation[i] * in.VoronoiArea[i]
			v1 += out.Elevation[i] * out.VoronoiArea[i]
		}
		if math.Abs(v0-v1) > 1e-9 {
			t.Errorf("%s: sediment volume changed from %g to %g", name, v0, v1)
		}
		if !(out.Elevation[1] < in.Elevation[1]) {
			t.Errorf("%s: peak was not lowered: %v", name, out.Elevation)
		}
	}
}

func TestRunCommandNoOutputDir(t *testing.T) {
	resetCfg()
	Root.SetArgs([]string{"run"})
	if err := Root.Execute(); err == nil {
		t.Error("expected an error for a missing OutputDir")
	}
}

func TestLogFile(t *testing.T) {
	resetCfg()
	logPath := filepath.Join(t.TempDir(), "hillslope.log")
	Cfg.Set("LogFile", logPath)
	Cfg.Set("Verbose", true)
	execute(t, "cfl")

	resetCfg()
	if err := setLogging(); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "hillslope stability") || !strings.Contains(string(b), "cfl=0.05") {
		t.Errorf("log file is missing stability messages:\n%s", b)
	}
}

func TestConfigFileMissing(t *testing.T) {
	resetCfg()
	Cfg.Set("config", "testdata/missing.toml")
	defer Cfg.Set("config", "")
	Root.SetArgs([]string{"cfl"})
	if err := Root.Execute(); err == nil {
		t.Error("expected an error for a missing configuration file")
	}
}
