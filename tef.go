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
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// RunID identifies a model run and the date range of an extraction.
type RunID struct {
	Gridname, Tag, ExName string
	Start, End            time.Time
}

// YearRun returns the RunID covering January 1 through December 31 of year.
func YearRun(gridname, tag, exName string, year int) RunID {
	return RunID{
		Gridname: gridname,
		Tag:      tag,
		ExName:   exName,
		Start:    time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:      time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC),
	}
}

const dateStringFormat = "2006.01.02"

// ParseRun returns the RunID for the extraction between the dates ds0
// and ds1, given in the form "2006.01.02".
func ParseRun(gridname, tag, exName, ds0, ds1 string) (RunID, error) {
	start, err := time.Parse(dateStringFormat, ds0)
	if err != nil {
		return RunID{}, fmt.Errorf("lo: invalid start date: %v", err)
	}
	end, err := time.Parse(dateStringFormat, ds1)
	if err != nil {
		return RunID{}, fmt.Errorf("lo: invalid end date: %v", err)
	}
	if end.Before(start) {
		return RunID{}, fmt.Errorf("lo: end date %s is before start date %s", ds1, ds0)
	}
	return RunID{Gridname: gridname, Tag: tag, ExName: exName, Start: start, End: end}, nil
}

// Gtag returns the grid and tag name, e.g. "cas6_v3".
func (r RunID) Gtag() string { return r.Gridname + "_" + r.Tag }

// Gtagex returns the grid, tag and experiment name, e.g. "cas6_v3_lo8b".
func (r RunID) Gtagex() string { return r.Gtag() + "_" + r.ExName }

// DateRange returns the start and end dates in the form used in
// directory names.
func (r RunID) DateRange() (ds0, ds1 string) {
	return r.Start.Format(dateStringFormat), r.End.Format(dateStringFormat)
}

// Name returns the extraction run name, e.g. "cas6_v3_lo8b_2018.01.01_2018.12.31".
func (r RunID) Name() string {
	ds0, ds1 := r.DateRange()
	return r.Gtagex() + "_" + ds0 + "_" + ds1
}

// Layout locates the extraction files under an output root directory.
type Layout struct {
	// Root is the model output root directory.
	Root string
}

// TEFDir returns the directory holding all TEF extractions.
func (l Layout) TEFDir() string { return filepath.Join(l.Root, "tef2") }

// RunDir returns the extraction directory of run r.
func (l Layout) RunDir(r RunID) string { return filepath.Join(l.TEFDir(), r.Name()) }

// FluxFile returns the path of a segment flux table, e.g. "daily_segment_volume".
func (l Layout) FluxFile(r RunID, name string) string {
	return filepath.Join(l.RunDir(r), "flux", name+".csv")
}

// BulkFile returns the path of the two-layer bulk table of a section.
func (l Layout) BulkFile(r RunID, section string) string {
	return filepath.Join(l.RunDir(r), "bulk", section+".csv")
}

// RiverFile returns the path of the river flow table for the grid and
// date range of r.
func (l Layout) RiverFile(r RunID) string {
	ds0, ds1 := r.DateRange()
	return filepath.Join(l.Root, "river", r.Gtag()+"_"+ds0+"_"+ds1+".csv")
}

// BudgetDir returns the directory budget tables and plots are written to.
func (l Layout) BudgetDir() string { return filepath.Join(l.TEFDir(), "salt_budget_plots") }

// BulkPlotDir returns the directory combined-section plots are written to.
func (l Layout) BulkPlotDir(r RunID) string {
	ds0, ds1 := r.DateRange()
	return filepath.Join(l.TEFDir(), "bulk_plots_2_"+ds0+"_"+ds1)
}

// Bulk two-layer table column names.
const (
	colQp     = "q_p"    // transport in the positive section direction [m3/s]
	colQm     = "q_m"    // transport in the negative section direction [m3/s]
	colSaltP  = "salt_p" // salinity of the positive transport [g/kg]
	colSaltM  = "salt_m" // salinity of the negative transport [g/kg]
	colQprism = "qprism" // tidal prism flow [m3/s]
	colFnet   = "fnet"   // tidal energy flux [W]
	colSSH    = "ssh"    // section mean sea surface height [m]
)

// Bulk holds the two-layer total exchange flow time series of a section,
// in the orientation of the section itself.
type Bulk struct {
	Section
	*Table
}

// SectionTransport holds the transports through a section oriented into
// a control volume.
type SectionTransport struct {
	Index []time.Time

	Qin, Qout   []float64 // volume transport [m3/s]
	QSin, QSout []float64 // salt transport [g/kg m3/s]
	Qprism      []float64 // tidal prism flow [m3/s]
	Ftide       []float64 // tidal energy flux into the volume [W]
}

// Orient returns the transports through b with inward direction given by
// sign. For sign 1 the positive-direction layer is the inflow; for sign
// -1 the negative-direction layer becomes the inflow and both layers
// change sign. Missing values are counted as zero transport.
func (b *Bulk) Orient(sign int) (*SectionTransport, error) {
	if sign != 1 && sign != -1 {
		return nil, fmt.Errorf("lo: section %s: invalid sign %d", b.Name, sign)
	}
	get := func(name string) ([]float64, error) {
		v, err := b.Column(name)
		if err != nil {
			return nil, fmt.Errorf("lo: section %s: %v", b.Name, err)
		}
		return v, nil
	}
	var cols [6][]float64
	for i, n := range []string{colQp, colQm, colSaltP, colSaltM, colQprism, colFnet} {
		v, err := get(n)
		if err != nil {
			return nil, err
		}
		cols[i] = v
	}
	qp, qm, sp, sm, qprism, fnet := cols[0], cols[1], cols[2], cols[3], cols[4], cols[5]

	n := b.Len()
	o := &SectionTransport{
		Index:  b.Index,
		Qin:    make([]float64, n),
		Qout:   make([]float64, n),
		QSin:   make([]float64, n),
		QSout:  make([]float64, n),
		Qprism: make([]float64, n),
		Ftide:  make([]float64, n),
	}
	s := float64(sign)
	for i := 0; i < n; i++ {
		p, m := zeroNaN(qp[i]), zeroNaN(qm[i])
		qsp, qsm := p*zeroNaN(sp[i]), m*zeroNaN(sm[i])
		if sign == 1 {
			o.Qin[i], o.Qout[i] = p, m
			o.QSin[i], o.QSout[i] = qsp, qsm
		} else {
			o.Qin[i], o.Qout[i] = -m, -p
			o.QSin[i], o.QSout[i] = -qsm, -qsp
		}
		o.Qprism[i] = zeroNaN(qprism[i])
		o.Ftide[i] = s * zeroNaN(fnet[i])
	}
	return o, nil
}

func zeroNaN(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

// Loader reads extraction files for the budget calculations.
type Loader struct {
	Layout
	Regions *Regions

	// RiverUnits are the flow units of the river files, e.g. "m3/s" or "cfs".
	RiverUnits string

	Log logrus.FieldLogger
}

// NewLoader returns a loader for extractions under root.
func NewLoader(root string, regions *Regions) *Loader {
	return &Loader{
		Layout:     Layout{Root: root},
		Regions:    regions,
		RiverUnits: FlowM3s,
		Log:        logrus.StandardLogger(),
	}
}

// Segment flux table names.
const (
	DailyVolume    = "daily_segment_volume"
	DailyNetSalt   = "daily_segment_net_salt"
	DailyVT        = "daily_segment_vt"
	DailySVT       = "daily_segment_svt"
	HourlyVolume   = "hourly_segment_volume"
	HourlySalinity = "hourly_segment_salinity"
)

// LoadBulk reads the bulk table of the named section for run r.
func (l *Loader) LoadBulk(r RunID, section string) (*Bulk, error) {
	s, err := l.Regions.Section(section)
	if err != nil {
		return nil, err
	}
	t, err := ReadTableFile(l.BulkFile(r, section))
	if err != nil {
		return nil, err
	}
	return &Bulk{Section: *s, Table: t}, nil
}

// Load reads everything needed to compute the budgets of cv for run r.
// Any missing file is a fatal error.
func (l *Loader) Load(r RunID, cv *ControlVolume) (*BudgetInputs, error) {
	in := new(BudgetInputs)
	var segs []string
	for _, v := range []struct {
		name string
		dst  **Table
	}{
		{DailyVolume, &in.Volume},
		{DailyNetSalt, &in.NetSalt},
		{DailyVT, &in.VT},
		{DailySVT, &in.SVT},
		{HourlyVolume, &in.HourlyVolume},
		{HourlySalinity, &in.HourlySalinity},
	} {
		t, err := ReadTableFile(l.FluxFile(r, v.name))
		if err != nil {
			return nil, err
		}
		if segs == nil {
			segs = cv.SegmentNames(t.Names())
		}
		if *v.dst, err = t.Select(segs); err != nil {
			return nil, fmt.Errorf("lo: %s, %s: %v", cv.Name, v.name, err)
		}
	}
	in.Segments = segs

	for _, name := range cv.SectionNames() {
		b, err := l.LoadBulk(r, name)
		if err != nil {
			return nil, err
		}
		in.Sections = append(in.Sections, b)
	}

	rivers, err := l.Regions.Rivers(segs)
	if err != nil {
		return nil, fmt.Errorf("lo: %s: %v", cv.Name, err)
	}
	in.RiverNames = rivers
	if in.Rivers, err = ReadRiverFile(l.RiverFile(r), l.RiverUnits); err != nil {
		return nil, err
	}
	l.Log.WithFields(logrus.Fields{
		"volume":   cv.Name,
		"run":      r.Name(),
		"segments": len(segs),
		"sections": len(in.Sections),
		"rivers":   len(rivers),
	}).Debug("loaded budget inputs")
	return in, nil
}
