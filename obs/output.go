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

package obs

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sirupsen/logrus"
)

// Write writes one line per sample to w in CSV format.
func (d *Dataset) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	header := append([]string{"cid", "cruise", "time", "lat", "lon", "name"}, d.Columns...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("obs: writing samples: %v", err)
	}
	for _, s := range d.Samples {
		line := []string{
			strconv.Itoa(s.CID),
			s.Cruise,
			s.Time.Format(timeLayout),
			formatFloat(s.Lat),
			formatFloat(s.Lon),
			s.Name,
		}
		for _, c := range d.Columns {
			v, ok := s.Values[c]
			if !ok {
				v = math.NaN()
			}
			line = append(line, formatFloat(v))
		}
		if err := cw.Write(line); err != nil {
			return fmt.Errorf("obs: writing samples: %v", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Casts returns the first sample of each cast, in cast order.
func (d *Dataset) Casts() []*Sample {
	var o []*Sample
	seen := make(map[int]bool)
	for _, s := range d.Samples {
		if !seen[s.CID] {
			seen[s.CID] = true
			o = append(o, s)
		}
	}
	return o
}

// WriteInfo writes one line per cast to w in CSV format.
func (d *Dataset) WriteInfo(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"cid", "lon", "lat", "time", "name", "cruise"}); err != nil {
		return fmt.Errorf("obs: writing cast info: %v", err)
	}
	for _, s := range d.Casts() {
		err := cw.Write([]string{
			strconv.Itoa(s.CID),
			formatFloat(s.Lon),
			formatFloat(s.Lat),
			s.Time.Format(timeLayout),
			s.Name,
			s.Cruise,
		})
		if err != nil {
			return fmt.Errorf("obs: writing cast info: %v", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Missing values are written as empty cells.
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Run processes the workbooks for each year found under inDir and
// writes <year>.csv and info_<year>.csv to outDir. Years without
// workbooks are skipped.
func (p *Processor) Run(inDir, outDir string, years []int) error {
	if err := os.MkdirAll(outDir, os.ModePerm); err != nil {
		return fmt.Errorf("obs: creating output directory: %v", err)
	}
	for _, year := range years {
		files, err := Workbooks(inDir, year)
		if err != nil {
			return fmt.Errorf("obs: finding workbooks: %v", err)
		}
		if len(files) == 0 {
			p.Log.WithField("year", year).Warn("no workbooks found")
			continue
		}
		d, err := p.Process(files)
		if err != nil {
			return err
		}
		if err := writeFile(filepath.Join(outDir, fmt.Sprintf("%d.csv", year)), d.Write); err != nil {
			return err
		}
		if err := writeFile(filepath.Join(outDir, fmt.Sprintf("info_%d.csv", year)), d.WriteInfo); err != nil {
			return err
		}
		p.Log.WithFields(logrus.Fields{
			"year":    year,
			"casts":   len(d.Casts()),
			"samples": len(d.Samples),
		}).Info("wrote observations")
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("obs: %v", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
