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

package lo

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// WriteTables writes the budget tables of b for the given year to dir as
// misc_df_<year>_<volume>.csv, vol_df_..., salt_df_... and salt_qe_df_....
func (b *Budget) WriteTables(dir string, year int) error {
	for _, t := range []struct {
		prefix string
		t      *Table
	}{
		{"misc_df", b.Misc},
		{"vol_df", b.Vol},
		{"salt_df", b.Salt},
		{"salt_qe_df", b.SaltQe},
	} {
		path := filepath.Join(dir, fmt.Sprintf("%s_%d_%s.csv", t.prefix, year, fileName(b.Volume)))
		if err := WriteTableFile(path, t.t); err != nil {
			return err
		}
	}
	return nil
}

// fileName returns name with spaces replaced by underscores.
func fileName(name string) string {
	return strings.Replace(name, " ", "_", -1)
}

// ErrorSummary holds the relative volume and salt budget errors, in
// percent, of a set of control volumes and years.
type ErrorSummary struct {
	Volumes []string
	Years   []int

	vol, salt map[int]map[string]float64
}

// NewErrorSummary returns an empty summary.
func NewErrorSummary() *ErrorSummary {
	return &ErrorSummary{
		vol:  make(map[int]map[string]float64),
		salt: make(map[int]map[string]float64),
	}
}

// Add records the errors of budget b for year.
func (s *ErrorSummary) Add(year int, b *Budget) {
	if _, ok := s.vol[year]; !ok {
		s.vol[year] = make(map[string]float64)
		s.salt[year] = make(map[string]float64)
		s.Years = append(s.Years, year)
		sort.Ints(s.Years)
	}
	var seen bool
	for _, v := range s.Volumes {
		if v == b.Volume {
			seen = true
			break
		}
	}
	if !seen {
		s.Volumes = append(s.Volumes, b.Volume)
	}
	s.vol[year][b.Volume] = b.VolRelErr * 100
	s.salt[year][b.Volume] = b.SaltRelErr * 100
}

// Get returns the volume and salt errors in percent for the given year and
// control volume. ok is false if no budget was recorded.
func (s *ErrorSummary) Get(year int, volume string) (vol, salt float64, ok bool) {
	vv, ok := s.vol[year][volume]
	if !ok {
		return 0, 0, false
	}
	return vv, s.salt[year][volume], true
}

// Write writes s to w in CSV format with one row per year and the columns
// "<volume> vol" and "<volume> salt" for each control volume. Missing
// entries are left empty.
func (s *ErrorSummary) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	header := []string{"year"}
	for _, v := range s.Volumes {
		header = append(header, v+" vol", v+" salt")
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("lo: writing error summary: %v", err)
	}
	for _, y := range s.Years {
		line := []string{strconv.Itoa(y)}
		for _, v := range s.Volumes {
			vv, ss, ok := s.Get(y, v)
			if !ok {
				line = append(line, "", "")
				continue
			}
			line = append(line, strconv.FormatFloat(vv, 'f', 2, 64), strconv.FormatFloat(ss, 'f', 2, 64))
		}
		if err := cw.Write(line); err != nil {
			return fmt.Errorf("lo: writing error summary: %v", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Run calculates the budgets of every configured control volume and
// year, writes the budget tables, plots and a summary of the errors to
// the budget output directory of l, and returns the summary.
// In testing mode only the first year and control volume are processed
// and no plots are written.
func (c *BudgetConfig) Run(l *Loader, testing bool) (*ErrorSummary, error) {
	if c.Regions == nil {
		return nil, fmt.Errorf("lo: no control volume definitions")
	}
	years, vols := c.Years, c.Volumes
	if len(years) == 0 || len(vols) == 0 {
		return nil, fmt.Errorf("lo: budget requires at least one year and one control volume")
	}
	if testing {
		years, vols = years[:1], vols[:1]
	}
	dir := l.BudgetDir()
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("lo: creating budget output directory: %v", err)
	}
	summary := NewErrorSummary()
	for _, year := range years {
		r := YearRun(c.Gridname, c.Tag, c.ExName, year)
		for _, vn := range vols {
			cv, err := c.Regions.Volume(vn)
			if err != nil {
				return nil, err
			}
			in, err := l.Load(r, cv)
			if err != nil {
				return nil, err
			}
			b, err := c.Compute(cv, in)
			if err != nil {
				return nil, fmt.Errorf("lo: %s %d: %v", vn, year, err)
			}
			if err := b.WriteTables(dir, year); err != nil {
				return nil, err
			}
			if c.SaveFigures && !testing {
				png := filepath.Join(dir, fmt.Sprintf("vol_salt_budget_%d_%s.png", year, fileName(cv.Name)))
				if err := b.PlotFile(png, year); err != nil {
					return nil, err
				}
			}
			summary.Add(year, b)
		}
	}

	f, err := os.Create(filepath.Join(dir, "budget_errors.csv"))
	if err != nil {
		return nil, fmt.Errorf("lo: creating error summary file: %v", err)
	}
	if err := summary.Write(f); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	c.log().WithFields(logrus.Fields{
		"years":   len(years),
		"volumes": len(vols),
		"dir":     dir,
	}).Info("budget calculations complete")
	return summary, nil
}
