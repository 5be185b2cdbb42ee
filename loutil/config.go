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

package loutil

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/lnashier/viper"
	"github.com/salishsea/lo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
)

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(expand(cfgpath))
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("lo: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// logFile is the currently open log file, if any.
var logFile *os.File

// setLogging configures the standard logger from the verbose and
// LogFile options.
func setLogging() error {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	logrus.SetLevel(logrus.InfoLevel)
	if Cfg.GetBool("verbose") {
		logrus.SetLevel(logrus.DebugLevel)
	}
	if logFile != nil {
		logFile.Close()
		logFile = nil
		logrus.SetOutput(os.Stderr)
	}
	if p := expand(Cfg.GetString("LogFile")); p != "" {
		f, err := os.Create(p)
		if err != nil {
			return fmt.Errorf("lo: creating log file: %v", err)
		}
		logFile = f
		logrus.SetOutput(io.MultiWriter(os.Stderr, f))
	}
	return nil
}

// expand expands environment variables and removes surrounding space.
func expand(s string) string {
	return strings.TrimSpace(os.ExpandEnv(s))
}

// expandStringSlice expands the environment variables in a slice of strings.
func expandStringSlice(s []string) []string {
	o := make([]string, len(s))
	for i, v := range s {
		o[i] = expand(v)
	}
	return o
}

// toIntSliceE returns a slice of ints from a viper value, accounting for
// the fact that it is a string if it was set from a command line argument.
func toIntSliceE(s interface{}) ([]int, error) {
	switch v := s.(type) {
	case string:
		var o []int
		if err := json.Unmarshal([]byte(v), &o); err != nil {
			return nil, err
		}
		return o, nil
	case []interface{}:
		o := make([]int, len(v))
		for i, val := range v {
			x, err := cast.ToIntE(val)
			if err != nil {
				return nil, err
			}
			o[i] = x
		}
		return o, nil
	default:
		return cast.ToIntSliceE(s)
	}
}

// regions reads the regions file named in cfg.
func regions(cfg *viper.Viper) (*lo.Regions, error) {
	return lo.ReadRegions(expand(cfg.GetString("RegionsFile")))
}

// budgetConfig unmarshals a viper configuration for a set of budget
// calculations and the loader of their inputs.
func budgetConfig(cfg *viper.Viper) (*lo.BudgetConfig, *lo.Loader, error) {
	years, err := toIntSliceE(cfg.Get("Budget.Years"))
	if err != nil {
		return nil, nil, fmt.Errorf("lo: reading Budget.Years: %v", err)
	}
	offset, err := cast.ToDurationE(cfg.Get("Budget.RiverOffset"))
	if err != nil {
		return nil, nil, fmt.Errorf("lo: reading Budget.RiverOffset: %v", err)
	}
	r, err := regions(cfg)
	if err != nil {
		return nil, nil, err
	}
	c := &lo.BudgetConfig{
		Gridname:             cfg.GetString("gridname"),
		Tag:                  cfg.GetString("tag"),
		ExName:               cfg.GetString("ex_name"),
		Years:                years,
		Regions:              r,
		Volumes:              expandStringSlice(cfg.GetStringSlice("Budget.Volumes")),
		UseInstantaneousRate: cfg.GetBool("Budget.InstantaneousRate"),
		RiverOffset:          offset,
		SaveFigures:          cfg.GetBool("Budget.SaveFigures"),
		Log:                  logrus.StandardLogger(),
	}
	for _, v := range c.Volumes {
		if _, err := r.Volume(v); err != nil {
			return nil, nil, err
		}
	}
	l := lo.NewLoader(expand(cfg.GetString("OutputRoot")), r)
	l.RiverUnits = cfg.GetString("Budget.RiverUnits")
	if err := lo.CheckFlowUnits(l.RiverUnits); err != nil {
		return nil, nil, err
	}
	return c, l, nil
}

// bulkConfig unmarshals a viper configuration for section group plots.
func bulkConfig(cfg *viper.Viper) (*lo.Loader, lo.RunID, error) {
	run, err := lo.ParseRun(cfg.GetString("gridname"), cfg.GetString("tag"), cfg.GetString("ex_name"),
		cfg.GetString("Bulk.Start"), cfg.GetString("Bulk.End"))
	if err != nil {
		return nil, run, err
	}
	r, err := regions(cfg)
	if err != nil {
		return nil, run, err
	}
	if len(r.Groups) == 0 {
		return nil, run, fmt.Errorf("lo: no section groups in %s", cfg.GetString("RegionsFile"))
	}
	return lo.NewLoader(expand(cfg.GetString("OutputRoot")), r), run, nil
}

// elapsed logs the time taken since start.
func elapsed(start time.Time, what string) {
	logrus.WithField("duration", time.Since(start).Round(time.Millisecond)).Info(what)
}
