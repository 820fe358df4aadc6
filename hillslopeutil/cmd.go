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

// Package hillslopeutil contains the command-line interface for the
// hillslope diffusion model.
package hillslopeutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/hillslope"
	"github.com/spatialmodel/hillslope/collective"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to hillslope.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "CDAerial",
			usage: `
              CDAerial is the hillslope diffusion coefficient for nodes
              at or above sea level [m²/yr].`,
			defaultVal: 0.01,
			flagsets:   []*pflag.FlagSet{cflCmd.Flags(), fluxCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "CDMarine",
			usage: `
              CDMarine is the hillslope diffusion coefficient for nodes
              below sea level [m²/yr].`,
			defaultVal: 0.05,
			flagsets:   []*pflag.FlagSet{cflCmd.Flags(), fluxCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "Kernel",
			usage: `
              Kernel selects how the local stable time step is calculated:
              "geometry" uses vectorized operations over the edge lengths
              and "kernel" uses a single pass over them. Both give the same
              result.`,
			defaultVal: "geometry",
			flagsets:   []*pflag.FlagSet{cflCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "Partitions",
			usage: `
              Partitions is a list of the TOML files holding the TIN
              partitions handled by this process. Each partition is run
              in its own goroutine. Environment variables are expanded.`,
			shorthand:  "p",
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{cflCmd.Flags(), fluxCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "SeaLevel",
			usage: `
              SeaLevel is the constant sea level [m]. It is ignored if
              SeaLevelCurve is set.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{fluxCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "SeaLevelCurve",
			usage: `
              SeaLevelCurve maps simulation times [yr] to sea levels [m].
              The sea level is interpolated linearly between the given
              times and held constant outside of them. From the command
              line it is given as a JSON object, e.g. {"0":-120,"20000":0}.`,
			defaultVal: map[string]string{},
			flagsets:   []*pflag.FlagSet{fluxCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "StartTime",
			usage: `
              StartTime is the simulation time at the start of the run [yr].
              The flux command uses the sea level at this time.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{fluxCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "EndTime",
			usage: `
              EndTime is the simulation time at the end of the run [yr].`,
			defaultVal: 1000.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "OutputInterval",
			usage: `
              OutputInterval is the simulation time between status
              messages [yr]. If it is 0, no status messages are written.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "OutputDir",
			usage: `
              OutputDir is the directory where the partitions are saved,
              with their final elevations, at the end of the run.`,
			shorthand:  "o",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "LogFile",
			usage: `
              LogFile is the path to a file where log messages are written
              in addition to standard error.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Verbose",
			usage: `
              Verbose specifies whether to write debugging messages,
              including the local and global stable time step of each
              partition.`,
			shorthand:  "v",
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Coordinator",
			usage: `
              Coordinator is the address ("host:port") of a collective
              coordinator started with the coordinator command. If it is
              set, this process handles a single partition as rank Rank
              of a group of Size processes. If it is not set, the
              partitions are reduced within this process.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{cflCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "Rank",
			usage: `
              Rank is the rank of this process in the group when using a
              Coordinator.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{cflCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "Size",
			usage: `
              Size is the number of processes in the group when using a
              Coordinator.`,
			defaultVal: 1,
			flagsets:   []*pflag.FlagSet{cflCmd.Flags(), runCmd.Flags(), coordinatorCmd.Flags()},
		},
		{
			name: "RPCPort",
			usage: `
              RPCPort specifies the port the coordinator listens on.`,
			defaultVal: collective.RPCPort,
			flagsets:   []*pflag.FlagSet{coordinatorCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("HILLSLOPE")
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch v := option.defaultVal.(type) {
			case string:
				set.StringP(option.name, option.shorthand, v, option.usage)
			case []string:
				set.StringSliceP(option.name, option.shorthand, v, option.usage)
			case bool:
				set.BoolP(option.name, option.shorthand, v, option.usage)
			case int:
				set.IntP(option.name, option.shorthand, v, option.usage)
			case float64:
				set.Float64P(option.name, option.shorthand, v, option.usage)
			case map[string]string:
				b := bytes.NewBuffer(nil)
				json.NewEncoder(b).Encode(v)
				set.StringP(option.name, option.shorthand, b.String(), option.usage)
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(cflCmd)
	Root.AddCommand(fluxCmd)
	Root.AddCommand(runCmd)
	Root.AddCommand(coordinatorCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("hillslope: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// logFile is the currently open LogFile, if any.
var logFile *os.File

// setLogging configures the standard logger according to the Verbose and
// LogFile settings.
func setLogging() error {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339Nano,
	})
	if Cfg.GetBool("Verbose") {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	path := os.ExpandEnv(Cfg.GetString("LogFile"))
	if path == "" {
		logrus.SetOutput(os.Stderr)
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("hillslope: creating log file: %v", err)
	}
	logFile = f
	logrus.SetOutput(io.MultiWriter(os.Stderr, f))
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "hillslope",
	Short: "A linear hillslope diffusion model for partitioned TINs.",
	Long: `hillslope calculates the stable time step and sediment flux of linear
hillslope diffusion on a triangulated irregular network (TIN) that has been
split into partitions, and runs hillslope-only landscape evolution simulations.
Use the subcommands specified below to access the model functionality.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'HILLSLOPE_var' where 'var' is the
name of the variable to be set.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		if err := setConfig(); err != nil {
			return err
		}
		return setLogging()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of hillslope.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("hillslope v%s\n", hillslope.Version)
	},
	DisableAutoGenTag: true,
}

var cflCmd = &cobra.Command{
	Use:   "cfl",
	Short: "Calculate the stable time step.",
	Long: `cfl calculates the largest stable hillslope diffusion time step
across all partitions of the TIN: the partitions handled by this process and,
when a Coordinator is used, those of the other processes in the group.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := LoadConfig(Cfg)
		if err != nil {
			return err
		}
		cfl, err := CFL(cmd.Context(), c)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "stable time step: %g yr\n", cfl)
		return nil
	},
	DisableAutoGenTag: true,
}

var fluxCmd = &cobra.Command{
	Use:   "flux",
	Short: "Calculate the sediment flux.",
	Long: `flux calculates the hillslope sediment flux [m/yr] of each node of
each partition at the sea level at StartTime, and prints it as
'index flux' lines following a '# partition' header.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := LoadConfig(Cfg)
		if err != nil {
			return err
		}
		flux, err := Flux(c)
		if err != nil {
			return err
		}
		for i, f := range flux {
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", c.Partitions[i])
			for j, v := range f {
				fmt.Fprintf(cmd.OutOrStdout(), "%d %g\n", j, v)
			}
		}
		return nil
	},
	DisableAutoGenTag: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the model.",
	Long: `run runs a hillslope diffusion simulation from StartTime to EndTime,
using the global stable time step at every iteration, and saves each
partition with its final elevations in OutputDir.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := LoadConfig(Cfg)
		if err != nil {
			return err
		}
		return Run(cmd.Context(), c, logrus.StandardLogger().Out)
	},
	DisableAutoGenTag: true,
}

var coordinatorCmd = &cobra.Command{
	Use:   "coordinator",
	Short: "Start a collective coordinator.",
	Long: `coordinator starts a server that performs the collective reductions
for a group of Size hillslope processes, each started with the Coordinator,
Rank, and Size options.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := collective.NewCoordinator(Cfg.GetInt("Size"))
		if err != nil {
			return err
		}
		return collective.Listen(c, Cfg.GetString("RPCPort"))
	},
	DisableAutoGenTag: true,
}
