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

// Package pgrid generates model grids and their bathymetry.
package pgrid

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/ctessum/geom"
)

// Definition holds the choices that define a grid.
type Definition struct {
	// Bounds are the west, east, south and north edges [degrees] of a
	// grid with uniform resolution Res [m].
	Bounds []float64
	Res    float64

	// Lons, XRes, Lats and YRes define a stretched grid whose resolution
	// [m] varies linearly between the breakpoints [degrees]. They are used
	// when Bounds is empty.
	Lons, XRes []float64
	Lats, YRes []float64

	// Topo lists the bathymetry sources, relative to the topography
	// directory. Later sources take precedence.
	Topo []string

	// Analytical makes an idealized estuary bathymetry instead of reading
	// Topo.
	Analytical bool

	NudgingEdges []string
	NudgingDays  []float64

	UseZOffset bool
	ZOffset    float64

	// MinDepth [m, positive down] is the least depth of a water cell.
	MinDepth float64

	// TrimGrid removes the last row or column of a grid with an odd
	// number of rows or columns.
	TrimGrid bool
}

// DefaultDefinition returns the choices used unless a grid overrides them.
func DefaultDefinition() *Definition {
	return &Definition{
		NudgingEdges: []string{"north", "south", "east", "west"},
		NudgingDays:  []float64{3, 60},
		UseZOffset:   true,
		ZOffset:      -1.3,
		MinDepth:     4,
		TrimGrid:     true,
	}
}

var nudgingEdges = map[string]bool{"north": true, "south": true, "east": true, "west": true}

// Check returns an error if d is not a usable grid definition.
func (d *Definition) Check() error {
	switch {
	case len(d.Bounds) != 0:
		if len(d.Bounds) != 4 {
			return fmt.Errorf("pgrid: Bounds must have 4 values, not %d", len(d.Bounds))
		}
		if d.Bounds[1] <= d.Bounds[0] || d.Bounds[3] <= d.Bounds[2] {
			return fmt.Errorf("pgrid: invalid bounds %v", d.Bounds)
		}
		if d.Res <= 0 {
			return fmt.Errorf("pgrid: resolution must be positive")
		}
	case len(d.Lons) != 0:
		if err := checkBreaks(d.Lons, d.XRes); err != nil {
			return err
		}
		if err := checkBreaks(d.Lats, d.YRes); err != nil {
			return err
		}
	default:
		return fmt.Errorf("pgrid: grid needs either Bounds or Lons and Lats")
	}
	if !d.Analytical && len(d.Topo) == 0 {
		return fmt.Errorf("pgrid: no bathymetry sources")
	}
	for _, e := range d.NudgingEdges {
		if !nudgingEdges[e] {
			return fmt.Errorf("pgrid: invalid nudging edge %q", e)
		}
	}
	if len(d.NudgingDays) != 2 {
		return fmt.Errorf("pgrid: NudgingDays must have 2 values")
	}
	return nil
}

// Area returns the lon/lat extent of the grid.
func (d *Definition) Area() *geom.Bounds {
	if len(d.Bounds) == 4 {
		return &geom.Bounds{
			Min: geom.Point{X: d.Bounds[0], Y: d.Bounds[2]},
			Max: geom.Point{X: d.Bounds[1], Y: d.Bounds[3]},
		}
	}
	return &geom.Bounds{
		Min: geom.Point{X: d.Lons[0], Y: d.Lats[0]},
		Max: geom.Point{X: d.Lons[len(d.Lons)-1], Y: d.Lats[len(d.Lats)-1]},
	}
}

// Config holds a set of grid definitions.
type Config struct {
	// TopoDir is the directory holding the bathymetry sources.
	TopoDir string

	Grids map[string]*Definition
}

// ReadConfig reads grid definitions in TOML format from r. Values not
// given for a grid take their defaults from DefaultDefinition.
// Environment variables in TopoDir are expanded.
func ReadConfig(r io.Reader) (*Config, error) {
	var raw struct {
		TopoDir string
		Grid    map[string]toml.Primitive
	}
	md, err := toml.DecodeReader(r, &raw)
	if err != nil {
		return nil, fmt.Errorf("pgrid: reading grid definitions: %v", err)
	}
	c := &Config{
		TopoDir: os.ExpandEnv(raw.TopoDir),
		Grids:   make(map[string]*Definition),
	}
	for name, p := range raw.Grid {
		d := DefaultDefinition()
		if err := md.PrimitiveDecode(p, d); err != nil {
			return nil, fmt.Errorf("pgrid: grid %s: %v", name, err)
		}
		if err := d.Check(); err != nil {
			return nil, fmt.Errorf("%v (grid %s)", err, name)
		}
		c.Grids[name] = d
	}
	return c, nil
}

// ReadConfigFile reads grid definitions from the named file.
func ReadConfigFile(path string) (*Config, error) {
	f, err := os.Open(os.ExpandEnv(path))
	if err != nil {
		return nil, fmt.Errorf("pgrid: opening grid definitions: %w", err)
	}
	defer f.Close()
	return ReadConfig(f)
}

// Definition returns the named grid definition.
func (c *Config) Definition(name string) (*Definition, error) {
	d, ok := c.Grids[name]
	if !ok {
		return nil, fmt.Errorf("pgrid: unknown grid %q; choices are %v", name, c.Names())
	}
	return d, nil
}

// Names returns the sorted grid names.
func (c *Config) Names() []string {
	o := make([]string, 0, len(c.Grids))
	for n := range c.Grids {
		o = append(o, n)
	}
	sort.Strings(o)
	return o
}

// TopoPaths returns the full paths of the bathymetry sources of d.
func (c *Config) TopoPaths(d *Definition) []string {
	o := make([]string, len(d.Topo))
	for i, t := range d.Topo {
		t = os.ExpandEnv(t)
		if !filepath.IsAbs(t) {
			t = filepath.Join(c.TopoDir, t)
		}
		o[i] = t
	}
	return o
}
