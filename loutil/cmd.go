/*
Copyright © 2023 the LO authors.
This file is part of LO.

LO is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

LO is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with LO.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package loutil holds the command-line interface for LO.
package loutil

import (
	"fmt"

	"github.com/lnashier/viper"
	"github.com/salishsea/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to LO.
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
			name: "verbose",
			usage: `
              verbose turns on debug logging.`,
			shorthand:  "v",
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "LogFile",
			usage: `
              LogFile is the path to a file that log messages are written to in
              addition to standard error. It can include environment variables.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "OutputRoot",
			usage: `
              OutputRoot is the model output root directory, which holds the
              tef2 extractions and river files. It can include environment variables.`,
			defaultVal: "${HOME}/LO_output",
			flagsets:   []*pflag.FlagSet{budgetCmd.Flags(), bulkplotCmd.Flags()},
		},
		{
			name: "RegionsFile",
			usage: `
              RegionsFile is the path to the TOML file defining the segments,
              sections, control volumes and section groups.`,
			defaultVal: "${HOME}/LO_output/tef2/regions.toml",
			flagsets:   []*pflag.FlagSet{budgetCmd.Flags(), bulkplotCmd.Flags()},
		},
		{
			name: "gridname",
			usage: `
              gridname is the name of the model grid, e.g. cas6.`,
			shorthand:  "g",
			defaultVal: "cas6",
			flagsets:   []*pflag.FlagSet{budgetCmd.Flags(), bulkplotCmd.Flags()},
		},
		{
			name: "tag",
			usage: `
              tag is the model forcing tag, e.g. v3.`,
			shorthand:  "t",
			defaultVal: "v3",
			flagsets:   []*pflag.FlagSet{budgetCmd.Flags(), bulkplotCmd.Flags()},
		},
		{
			name: "ex_name",
			usage: `
              ex_name is the model executable name, e.g. lo8b.`,
			shorthand:  "x",
			defaultVal: "lo8b",
			flagsets:   []*pflag.FlagSet{budgetCmd.Flags(), bulkplotCmd.Flags()},
		},
		{
			name: "testing",
			usage: `
              testing processes only the first year and control volume and
              saves no figures.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{budgetCmd.Flags()},
		},
		{
			name: "Budget.Years",
			usage: `
              Budget.Years are the years to calculate budgets for.`,
			defaultVal: []int{2017, 2018, 2019},
			flagsets:   []*pflag.FlagSet{budgetCmd.Flags()},
		},
		{
			name: "Budget.Volumes",
			usage: `
              Budget.Volumes are the names of the control volumes in RegionsFile
              to calculate budgets for.`,
			defaultVal: []string{"Salish_Sea", "Puget_Sound"},
			flagsets:   []*pflag.FlagSet{budgetCmd.Flags()},
		},
		{
			name: "Budget.InstantaneousRate",
			usage: `
              Budget.InstantaneousRate specifies whether the rates of change of
              volume and net salt are taken from the extracted instantaneous rates
              rather than calculated by finite differences of the daily series.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{budgetCmd.Flags()},
		},
		{
			name: "Budget.RiverOffset",
			usage: `
              Budget.RiverOffset is the time added to the river flow times before
              they are matched to the budget times.`,
			defaultVal: lo.DefaultRiverOffset.String(),
			flagsets:   []*pflag.FlagSet{budgetCmd.Flags()},
		},
		{
			name: "Budget.RiverUnits",
			usage: `
              Budget.RiverUnits are the units of the river flow files, e.g.
              m3/s, cfs, ft3/s or L/day.`,
			defaultVal: lo.FlowM3s,
			flagsets:   []*pflag.FlagSet{budgetCmd.Flags()},
		},
		{
			name: "Budget.SaveFigures",
			usage: `
              Budget.SaveFigures specifies whether budget plots are written.`,
			defaultVal: true,
			flagsets:   []*pflag.FlagSet{budgetCmd.Flags()},
		},
		{
			name: "Bulk.Start",
			usage: `
              Bulk.Start is the first day of the extraction to plot, in the
              form 2006.01.02.`,
			defaultVal: "2018.01.01",
			flagsets:   []*pflag.FlagSet{bulkplotCmd.Flags()},
		},
		{
			name: "Bulk.End",
			usage: `
              Bulk.End is the last day of the extraction to plot, in the
              form 2006.01.02.`,
			defaultVal: "2018.12.31",
			flagsets:   []*pflag.FlagSet{bulkplotCmd.Flags()},
		},
		{
			name: "Forcing.Fields",
			usage: `
              Forcing.Fields is the NetCDF file of interpolated ocean fields
              that the climatology file is made from.`,
			defaultVal: "ocean_fields.nc",
			flagsets:   []*pflag.FlagSet{clmCmd.Flags()},
		},
		{
			name: "Forcing.OutputDir",
			usage: `
              Forcing.OutputDir is the directory the forcing files are written
              to. The initial and boundary files are made from the climatology
              file in this directory.`,
			defaultVal: ".",
			flagsets:   []*pflag.FlagSet{clmCmd.Flags(), iniCmd.Flags(), bryCmd.Flags()},
		},
		{
			name: "Obs.InputDir",
			usage: `
              Obs.InputDir is the directory holding one directory per cruise,
              each containing a *labupcast* workbook.`,
			defaultVal: "${HOME}/LO_data/obs/nanoos",
			flagsets:   []*pflag.FlagSet{obsCmd.Flags()},
		},
		{
			name: "Obs.OutputDir",
			usage: `
              Obs.OutputDir is the directory the processed observations are
              written to.`,
			defaultVal: "${HOME}/LO_output/obs/nanoos/bottle",
			flagsets:   []*pflag.FlagSet{obsCmd.Flags()},
		},
		{
			name: "Obs.Years",
			usage: `
              Obs.Years are the years to process observations for.`,
			defaultVal: []int{2017, 2018, 2019},
			flagsets:   []*pflag.FlagSet{obsCmd.Flags()},
		},
		{
			name: "Grid.ConfigFile",
			usage: `
              Grid.ConfigFile is the TOML file of grid definitions.`,
			defaultVal: "${HOME}/LO_output/pgrid/grids.toml",
			flagsets:   []*pflag.FlagSet{gridCmd.Flags()},
		},
		{
			name: "Grid.Name",
			usage: `
              Grid.Name is the name of the grid in Grid.ConfigFile to make.`,
			defaultVal: "cas7",
			flagsets:   []*pflag.FlagSet{gridCmd.Flags()},
		},
		{
			name: "Grid.OutputFile",
			usage: `
              Grid.OutputFile is the path the grid file is written to.
              It can include environment variables.`,
			defaultVal: "grid.nc",
			flagsets:   []*pflag.FlagSet{gridCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("LO")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
			case []string:
				set.StringSliceP(option.name, option.shorthand, option.defaultVal.([]string), option.usage)
			case bool:
				set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
			case []int:
				set.IntSliceP(option.name, option.shorthand, option.defaultVal.([]int), option.usage)
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
	Root.AddCommand(budgetCmd)
	Root.AddCommand(bulkplotCmd)
	Root.AddCommand(forcingCmd)
	forcingCmd.AddCommand(clmCmd, iniCmd, bryCmd)
	Root.AddCommand(obsCmd)
	Root.AddCommand(gridCmd)
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "lo",
	Short: "Post-processing and forcing tools for a regional ocean model.",
	Long: `lo calculates volume and salt budgets from TEF extractions, plots
transport across combined sections, writes ocean forcing files, processes
shipboard observations and makes model grids.
Use the subcommands specified below to access this functionality.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'LO_var' where 'var' is the
name of the variable to be set. Many configuration variables are additionally
allowed to contain environment variables within them.`,
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
	Long:  "version prints the version number of this version of LO.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("LO v%s\n", lo.Version)
	},
	DisableAutoGenTag: true,
}

var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Calculate volume and salt budgets.",
	Long: `budget calculates the volume and salt budgets of the configured
control volumes for each configured year and writes tables, plots and a
summary of the budget errors to tef2/salt_budget_plots.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, l, err := budgetConfig(Cfg)
		if err != nil {
			return err
		}
		s, err := c.Run(l, Cfg.GetBool("testing"))
		if err != nil {
			return err
		}
		return s.Write(cmd.OutOrStdout())
	},
	DisableAutoGenTag: true,
}

var bulkplotCmd = &cobra.Command{
	Use:   "bulkplot",
	Short: "Plot transport across combined sections.",
	Long: `bulkplot combines the sections of each section group in RegionsFile
and plots the combined two-layer transport and salinity with a map of the
sections.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		l, r, err := bulkConfig(Cfg)
		if err != nil {
			return err
		}
		return l.PlotGroups(r)
	},
	DisableAutoGenTag: true,
}

var forcingCmd = &cobra.Command{
	Use:   "forcing",
	Short: "Write ocean forcing files.",
	Long: `forcing writes ROMS climatology, initial condition and boundary
condition files. Use the subcommands specified below to choose the file.`,
	DisableAutoGenTag: true,
}

var clmCmd = &cobra.Command{
	Use:   "clm",
	Short: "Write the climatology file.",
	Long: `clm reads the interpolated ocean fields in Forcing.Fields and writes
them to ocean_clm.nc in Forcing.OutputDir.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Climatology(expand(Cfg.GetString("Forcing.Fields")), expand(Cfg.GetString("Forcing.OutputDir")))
	},
	DisableAutoGenTag: true,
}

var iniCmd = &cobra.Command{
	Use:   "ini",
	Short: "Write the initial condition file.",
	Long: `ini writes the first time of ocean_clm.nc in Forcing.OutputDir to
ocean_ini.nc.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Initial(expand(Cfg.GetString("Forcing.OutputDir")))
	},
	DisableAutoGenTag: true,
}

var bryCmd = &cobra.Command{
	Use:   "bry",
	Short: "Write the boundary condition file.",
	Long: `bry writes the edges of ocean_clm.nc in Forcing.OutputDir to
ocean_bry.nc.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Boundary(expand(Cfg.GetString("Forcing.OutputDir")))
	},
	DisableAutoGenTag: true,
}

var obsCmd = &cobra.Command{
	Use:   "obs",
	Short: "Process bottle observations.",
	Long: `obs processes the CTD and bottle workbooks under Obs.InputDir for each
of Obs.Years and writes one table of samples and one table of casts per year
to Obs.OutputDir.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		years, err := toIntSliceE(Cfg.Get("Obs.Years"))
		if err != nil {
			return fmt.Errorf("lo: reading Obs.Years: %v", err)
		}
		return Observations(expand(Cfg.GetString("Obs.InputDir")), expand(Cfg.GetString("Obs.OutputDir")), years)
	},
	DisableAutoGenTag: true,
}

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Make a model grid.",
	Long: `grid makes the grid named Grid.Name in Grid.ConfigFile, including its
bathymetry, and writes it to Grid.OutputFile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Grid(expand(Cfg.GetString("Grid.ConfigFile")), Cfg.GetString("Grid.Name"), expand(Cfg.GetString("Grid.OutputFile")))
	},
	DisableAutoGenTag: true,
}
