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
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/salishsea/lo/forcing"
	"github.com/salishsea/lo/obs"
	"github.com/salishsea/lo/pgrid"
	"github.com/sirupsen/logrus"
)

// Forcing file names.
const (
	ClimatologyFile = "ocean_clm.nc"
	InitialFile     = "ocean_ini.nc"
	BoundaryFile    = "ocean_bry.nc"
)

// Climatology reads the ocean fields in fieldsFile and writes them to
// the climatology file in outDir.
func Climatology(fieldsFile, outDir string) error {
	start := time.Now()
	r, err := os.Open(fieldsFile)
	if err != nil {
		return fmt.Errorf("lo: opening fields file: %w", err)
	}
	defer r.Close()
	f, err := forcing.ReadFields(r)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, os.ModePerm); err != nil {
		return fmt.Errorf("lo: creating forcing directory: %v", err)
	}
	w, err := os.Create(filepath.Join(outDir, ClimatologyFile))
	if err != nil {
		return fmt.Errorf("lo: creating climatology file: %v", err)
	}
	if err := forcing.WriteClimatology(w, f); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	elapsed(start, "wrote climatology")
	return nil
}

// derive writes a file in dir made from the climatology file in dir.
func derive(dir, name string, write func(clm, w *os.File) error) error {
	start := time.Now()
	clm, err := os.Open(filepath.Join(dir, ClimatologyFile))
	if err != nil {
		return fmt.Errorf("lo: opening climatology file: %w", err)
	}
	defer clm.Close()
	w, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("lo: creating %s: %v", name, err)
	}
	if err := write(clm, w); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	elapsed(start, "wrote "+name)
	return nil
}

// Initial writes the initial condition file in dir.
func Initial(dir string) error {
	return derive(dir, InitialFile, func(clm, w *os.File) error {
		return forcing.WriteInitial(clm, w)
	})
}

// Boundary writes the boundary condition file in dir.
func Boundary(dir string) error {
	return derive(dir, BoundaryFile, func(clm, w *os.File) error {
		return forcing.WriteBoundary(clm, w)
	})
}

// Observations processes the bottle workbooks in inDir for each year.
func Observations(inDir, outDir string, years []int) error {
	start := time.Now()
	p := obs.NewProcessor()
	if err := p.Run(inDir, outDir, years); err != nil {
		return err
	}
	elapsed(start, "processed observations")
	return nil
}

// Grid makes the named grid from the definitions in configFile and
// writes it to outFile.
func Grid(configFile, name, outFile string) error {
	start := time.Now()
	c, err := pgrid.ReadConfigFile(configFile)
	if err != nil {
		return err
	}
	g, err := c.Make(name, logrus.StandardLogger())
	if err != nil {
		return err
	}
	w, err := os.Create(outFile)
	if err != nil {
		return fmt.Errorf("lo: creating grid file: %v", err)
	}
	if err := g.Write(w); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	elapsed(start, "wrote grid")
	return nil
}
