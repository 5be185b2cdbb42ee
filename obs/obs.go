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

// Package obs processes shipboard CTD and bottle observations into
// per-cast tables.
package obs

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ctessum/requestcache"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/tealeg/xlsx"
)

// Spreadsheet column names.
const (
	colCruise  = "CRUISE_ID"
	colDate    = "DATE_UTC"
	colTime    = "TIME_UTC"
	colLat     = "LATITUDE_DEC"
	colLon     = "LONGITUDE_DEC"
	colStation = "STATION_NO"
	colP       = "CTDPRS_DBAR"
	colPT      = "CTDTMP_DEG_C_ITS90"
	colSP      = "CTDSAL_PSS78"
	colDO      = "OXYGEN_avg_mg_L"
)

// requiredColumns must be present in every workbook.
var requiredColumns = []string{colCruise, colDate, colTime, colLat, colLon, colStation, colP, colPT, colSP}

// optionalColumns maps spreadsheet columns that are copied to the output
// to their output names.
var optionalColumns = []struct{ in, out string }{
	{"NITRATE_UMOL_L", "NO3 (uM)"},
	{"NITRITE_UMOL_L", "NO2 (uM)"},
	{"AMMONIUM_UMOL_L", "NH4 (uM)"},
	{"PHOSPHATE_UMOL_L", "PO4 (uM)"},
	{"SILICATE_UMOL_L", "SiO4 (uM)"},
	{"CTD FLU (mg/m3)", "Fluor (ug/L)"},
	{"CHLA avg (ug/l)", "ChlA (ug/L)"},
	{"PHAEOPIGMENT avg (ug/l)", "Phaeo (ug/L)"},
	{"TA_UMOL_KG", "TA (umol/kg)"},
	{"DIC_UMOL_KG", "DIC (umol/kg)"},
	{"SECCHI DEPTH (m)", "Secchi (m)"},
}

// Derived output column names.
const (
	ColZ  = "z"
	ColCT = "CT"
	ColSA = "SA"
	ColDO = "DO (uM)"
)

// Sample is one bottle sample.
type Sample struct {
	// CID identifies the cast.
	CID    int
	Cruise string
	Time   time.Time

	Lat, Lon float64

	// Name is the station name.
	Name string

	// Values holds the measured and derived quantities, keyed by output
	// column name. Missing values are NaN.
	Values map[string]float64
}

// Dataset holds the samples of a set of cruises.
type Dataset struct {
	// Columns are the names of the Values present, in output order.
	Columns []string
	Samples []*Sample
}

// Processor reads CTD and bottle workbooks.
type Processor struct {
	Log logrus.FieldLogger
}

// NewProcessor returns a processor that logs to the standard logger.
func NewProcessor() *Processor {
	return &Processor{Log: logrus.StandardLogger()}
}

// workbookCache holds previously opened workbooks.
var workbookCache *requestcache.Cache

var loadWorkbookCacheOnce sync.Once

// loadWorkbook opens a workbook, using a cache to avoid reading the same
// file more than once.
func loadWorkbook(fileName string) (*xlsx.File, error) {
	loadWorkbookCacheOnce.Do(func() {
		workbookCache = requestcache.NewCache(func(ctx context.Context, req interface{}) (interface{}, error) {
			f, err := xlsx.OpenFile(req.(string))
			if err != nil {
				return nil, fmt.Errorf("obs: opening xlsx file: %v", err)
			}
			return f, nil
		}, runtime.GOMAXPROCS(-1), requestcache.Memory(100))
	})
	r := workbookCache.NewRequest(context.Background(), fileName, fileName)
	fI, err := r.Result()
	if err != nil {
		return nil, err
	}
	return fI.(*xlsx.File), nil
}

// Workbooks returns the cast workbook for each directory under dir whose
// name contains year.
func Workbooks(dir string, year int) ([]string, error) {
	dirs, err := filepath.Glob(filepath.Join(dir, fmt.Sprintf("*%d*", year)))
	if err != nil {
		return nil, err
	}
	sort.Strings(dirs)
	var o []string
	for _, d := range dirs {
		files, err := filepath.Glob(filepath.Join(d, "*labupcast*"))
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			continue
		}
		sort.Strings(files)
		o = append(o, files[0])
	}
	return o, nil
}

// ReadWorkbook reads the samples in the first sheet of the named workbook.
// Rows with no data or no valid time are skipped. Casts are identified by
// station, numbered from cid0 in order of appearance; the position and
// time of every sample in a cast are set to those of its first sample.
func (p *Processor) ReadWorkbook(fileName string, cid0 int) (*Dataset, error) {
	f, err := loadWorkbook(fileName)
	if err != nil {
		return nil, err
	}
	if len(f.Sheets) == 0 {
		return nil, fmt.Errorf("obs: %s has no sheets", fileName)
	}
	s := f.Sheets[0]

	cols := make(map[string]int)
	for c := 0; c < s.MaxCol; c++ {
		if name := strings.TrimSpace(s.Cell(0, c).Value); name != "" {
			cols[name] = c
		}
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("obs: %s: missing column %s", fileName, name)
		}
	}
	d := &Dataset{Columns: []string{ColZ, ColCT, ColSA}}
	_, hasDO := cols[colDO]
	if hasDO {
		d.Columns = append(d.Columns, ColDO)
	}
	var optional []struct{ in, out string }
	for _, c := range optionalColumns {
		if _, ok := cols[c.in]; ok {
			optional = append(optional, c)
			d.Columns = append(d.Columns, c.out)
		}
	}

	log := p.Log.WithField("file", filepath.Base(fileName))
	cid := make(map[string]int)
	castStart := make(map[int]*Sample)
	for r := 1; r < s.MaxRow; r++ {
		text := func(col string) string {
			c, ok := cols[col]
			if !ok {
				return ""
			}
			return strings.TrimSpace(s.Cell(r, c).Value)
		}
		num := func(col string) float64 {
			v, err := cast.ToFloat64E(text(col))
			if err != nil {
				return math.NaN()
			}
			return v
		}
		if emptyRow(s, r, s.MaxCol) {
			continue
		}
		t, err := parseTime(text(colDate), text(colTime), f.Date1904)
		if err != nil {
			log.WithField("row", r+1).Debug("skipping row with invalid time")
			continue
		}
		smp := &Sample{
			Cruise: text(colCruise),
			Time:   t,
			Lat:    num(colLat),
			Lon:    num(colLon),
			Name:   text(colStation),
			Values: make(map[string]float64),
		}
		id, ok := cid[smp.Name]
		if !ok {
			id = cid0 + len(cid)
			cid[smp.Name] = id
		}
		smp.CID = id
		if first, ok := castStart[id]; ok {
			if dt := smp.Time.Sub(first.Time); dt > 24*time.Hour || dt < -24*time.Hour {
				log.WithFields(logrus.Fields{
					"station": smp.Name,
					"days":    int(dt.Hours() / 24),
				}).Warn("cast spans more than one day")
			}
			smp.Lon, smp.Lat, smp.Time = first.Lon, first.Lat, first.Time
		} else {
			castStart[id] = smp
		}

		pressure, pt, sp := num(colP), num(colPT), num(colSP)
		sa := SAFromSP(sp)
		smp.Values[ColSA] = sa
		smp.Values[ColCT] = CTFromPT(sa, pt)
		smp.Values[ColZ] = ZFromP(pressure, smp.Lat)
		if hasDO {
			smp.Values[ColDO] = oxygenMgLToUM * num(colDO)
		}
		for _, c := range optional {
			smp.Values[c.out] = num(c.in)
		}
		d.Samples = append(d.Samples, smp)
	}
	log.WithField("casts", len(cid)).Info("processed casts")
	return d, nil
}

// emptyRow returns whether every cell in row r is empty.
func emptyRow(s *xlsx.Sheet, r, ncol int) bool {
	for c := 0; c < ncol; c++ {
		if strings.TrimSpace(s.Cell(r, c).Value) != "" {
			return false
		}
	}
	return true
}

const timeLayout = "2006-01-02 15:04:05"

// parseTime returns the time given by a date and a time of day cell. Each
// may be text or an Excel serial date number.
func parseTime(date, tod string, date1904 bool) (time.Time, error) {
	if d, err := cast.ToFloat64E(date); err == nil && date != "" {
		day := xlsx.TimeFromExcelTime(math.Floor(d), date1904)
		if f, err := cast.ToFloat64E(tod); err == nil && tod != "" && f < 1 {
			return xlsx.TimeFromExcelTime(math.Floor(d)+f, date1904).Round(time.Second), nil
		}
		date = day.Format("2006-01-02")
	}
	if len(date) < 10 || len(tod) < 8 {
		return time.Time{}, fmt.Errorf("obs: invalid time %q %q", date, tod)
	}
	return time.Parse(timeLayout, date[:10]+" "+tod[:8])
}

// Merge combines datasets, sorts the samples by time and renumbers the
// casts so that the cast ID increases with cast time. Cruise names are
// trimmed.
func Merge(ds ...*Dataset) *Dataset {
	o := new(Dataset)
	have := make(map[string]bool)
	for _, d := range ds {
		for _, c := range d.Columns {
			if !have[c] {
				have[c] = true
				o.Columns = append(o.Columns, c)
			}
		}
		o.Samples = append(o.Samples, d.Samples...)
	}
	sort.SliceStable(o.Samples, func(i, j int) bool {
		return o.Samples[i].Time.Before(o.Samples[j].Time)
	})
	cid := -1
	var last time.Time
	for i, s := range o.Samples {
		if i == 0 || !s.Time.Equal(last) {
			cid++
			last = s.Time
		}
		s.CID = cid
		s.Cruise = strings.TrimSpace(s.Cruise)
	}
	return o
}

// Process reads the named workbooks and merges their samples.
func (p *Processor) Process(files []string) (*Dataset, error) {
	var ds []*Dataset
	cid0 := 0
	for _, f := range files {
		d, err := p.ReadWorkbook(f, cid0)
		if err != nil {
			return nil, err
		}
		for _, s := range d.Samples {
			if s.CID >= cid0 {
				cid0 = s.CID + 1
			}
		}
		ds = append(ds, d)
	}
	return Merge(ds...), nil
}
