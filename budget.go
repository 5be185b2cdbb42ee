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
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// BudgetConfig holds the configuration of a set of volume and salt
// budget calculations.
type BudgetConfig struct {
	// Gridname, Tag and ExName identify the model run.
	Gridname, Tag, ExName string

	// Years are the years to calculate budgets for.
	Years []int

	// Regions holds the control volume definitions.
	Regions *Regions

	// Volumes are the names of the control volumes to calculate budgets for.
	Volumes []string

	// UseInstantaneousRate specifies whether the rates of change of volume
	// and net salt are taken from the extracted instantaneous rate series
	// (true) or calculated by centered finite differences of the daily
	// volume and net salt series (false). The hourly mean salinity is only
	// used when UseInstantaneousRate is true.
	UseInstantaneousRate bool

	// RiverOffset is added to the times of the river flow series before
	// they are matched to the budget time index.
	RiverOffset time.Duration

	// SaveFigures specifies whether budget plots are written.
	SaveFigures bool

	Log logrus.FieldLogger
}

// DefaultRiverOffset moves daily river flows to the middle of the day.
const DefaultRiverOffset = 12 * time.Hour

func (c *BudgetConfig) log() logrus.FieldLogger {
	if c.Log == nil {
		return logrus.StandardLogger()
	}
	return c.Log
}

// BudgetInputs holds the extracted time series needed to calculate the
// budgets of one control volume.
type BudgetInputs struct {
	// Segments are the member segments of the control volume.
	Segments []string

	// Volume [m3], NetSalt [g/kg m3], VT [m3/s] and SVT [g/kg m3/s] are
	// daily low-passed series with one column per segment.
	Volume, NetSalt, VT, SVT *Table

	// HourlyVolume [m3] and HourlySalinity [g/kg] are hourly series with
	// one column per segment.
	HourlyVolume, HourlySalinity *Table

	// Sections are the bulk tables of the boundary sections.
	Sections []*Bulk

	// RiverNames are the rivers draining into the control volume and
	// Rivers holds their flows [m3/s].
	RiverNames []string
	Rivers     *Table
}

// check returns an error if a table needed by the budget calculation is
// missing.
func (in *BudgetInputs) check(rate bool) error {
	tables := []struct {
		name string
		t    *Table
	}{
		{DailyVolume, in.Volume},
		{DailyNetSalt, in.NetSalt},
	}
	if rate {
		tables = append(tables, []struct {
			name string
			t    *Table
		}{
			{DailyVT, in.VT},
			{DailySVT, in.SVT},
			{HourlyVolume, in.HourlyVolume},
			{HourlySalinity, in.HourlySalinity},
		}...)
	}
	for _, t := range tables {
		if t.t == nil {
			return fmt.Errorf("lo: budget input %s is missing", t.name)
		}
	}
	for i, s := range in.Sections {
		if s == nil || s.Table == nil {
			return fmt.Errorf("lo: budget input section %d is missing", i)
		}
	}
	return nil
}

// SignWarning records a boundary section whose recorded inward sign
// differs from the one given in the control volume definition.
type SignWarning struct {
	Section        string
	Recorded, Used int
}

// Degeneracy records a ratio whose denominator was zero or not finite.
// The affected values are set to NaN.
type Degeneracy struct {
	Quantity string
	Rows     int
}

// Budget holds the volume and salt budgets of a control volume.
type Budget struct {
	Volume string

	// Misc holds quantities that are not budget terms: Qprism, Ftide, V,
	// Smean, Sin, Sout, Qe, Qnet, DS and Sbar.
	Misc *Table

	// Vol holds the volume budget terms Qin, Qout, Qr, dV_dt and Error [m3/s].
	Vol *Table

	// Salt holds the salt budget terms QSin, QSout, dSnet_dt and Error
	// [g/kg m3/s].
	Salt *Table

	// SaltQe holds the salt budget expressed with the exchange flow:
	// dSnet_dt, QeDS, -QrSbar and Error [g/kg m3/s].
	SaltQe *Table

	// VolRelErr, SaltRelErr and SaltQeRelErr are the mean errors divided by
	// the mean of Qr, QSin and QeDS, respectively.
	VolRelErr, SaltRelErr, SaltQeRelErr float64

	SignWarnings []SignWarning
	Degeneracies []Degeneracy
}

// Compute calculates the volume and salt budgets of control volume cv
// from the data in in. The budget time index is the index of the daily
// net salt series; all other series are matched to it by time.
func (c *BudgetConfig) Compute(cv *ControlVolume, in *BudgetInputs) (*Budget, error) {
	log := c.log().WithField("volume", cv.Name)
	if err := in.check(c.UseInstantaneousRate); err != nil {
		return nil, fmt.Errorf("lo: %s: %v", cv.Name, err)
	}
	idx := in.NetSalt.Index
	n := len(idx)
	b := &Budget{
		Volume: cv.Name,
		Misc:   NewTable(idx),
		Vol:    NewTable(idx),
		Salt:   NewTable(idx),
		SaltQe: NewTable(idx),
	}

	sects, err := b.orientSections(cv, in.Sections, idx, log)
	if err != nil {
		return nil, err
	}

	// Miscellaneous quantities summed over the sections.
	qprism, ftide := make([]float64, n), make([]float64, n)
	qin, qout := make([]float64, n), make([]float64, n)
	qsin, qsout := make([]float64, n), make([]float64, n)
	for _, s := range sects {
		floats.Add(qprism, s.Qprism)
		floats.Add(ftide, s.Ftide)
		floats.Add(qin, s.Qin)
		floats.Add(qout, s.Qout)
		floats.Add(qsin, s.QSin)
		floats.Add(qsout, s.QSout)
	}
	v, err := sumAligned(in.Volume, in.Segments, idx)
	if err != nil {
		return nil, err
	}
	sn, err := sumAligned(in.NetSalt, in.Segments, idx)
	if err != nil {
		return nil, err
	}

	var smean []float64
	if c.UseInstantaneousRate {
		if smean, err = b.hourlyMeanSalinity(in, idx); err != nil {
			return nil, err
		}
	} else {
		smean = b.divide(sn, v, "Smean")
	}

	// Volume budget.
	qr, err := c.riverFlow(in, idx)
	if err != nil {
		return nil, err
	}
	if len(in.RiverNames) > 0 && allNaN(qr) {
		log.WithField("offset", c.RiverOffset).Warn("no river flow times match the budget index")
	}
	var dvdt, dsdt []float64
	if c.UseInstantaneousRate {
		if dvdt, err = sumAligned(in.VT, in.Segments, idx); err != nil {
			return nil, err
		}
		if dsdt, err = sumAligned(in.SVT, in.Segments, idx); err != nil {
			return nil, err
		}
	} else {
		dvdt = centeredDifference(idx, v)
		dsdt = centeredDifference(idx, sn)
	}
	volErr := make([]float64, n)
	for i := range volErr {
		volErr[i] = dvdt[i] - qin[i] - qout[i] - qr[i]
	}

	// Salt budget.
	saltErr := make([]float64, n)
	for i := range saltErr {
		saltErr[i] = dsdt[i] - qsin[i] - qsout[i]
	}
	sin := b.divide(qsin, qin, "Sin")
	sout := b.divide(qsout, qout, "Sout")

	// Salt budget in terms of the exchange flow Qe and the salinity
	// difference DS between inflow and outflow.
	qe, qnet := make([]float64, n), make([]float64, n)
	ds, sbar := make([]float64, n), make([]float64, n)
	qeds, qrsbar, qeErr := make([]float64, n), make([]float64, n), make([]float64, n)
	for i := 0; i < n; i++ {
		qe[i] = (qin[i] - qout[i]) / 2
		qnet[i] = -(qout[i] + qin[i])
		ds[i] = sin[i] - sout[i]
		sbar[i] = (sin[i] + sout[i]) / 2
		qeds[i] = qe[i] * ds[i]
		qrsbar[i] = -qnet[i] * sbar[i]
		qeErr[i] = dsdt[i] - qeds[i] - qrsbar[i]
	}

	for _, col := range []struct {
		t    *Table
		name string
		v    []float64
	}{
		{b.Misc, "Qprism", qprism},
		{b.Misc, "Ftide", ftide},
		{b.Misc, "V", v},
		{b.Misc, "Smean", smean},
		{b.Misc, "Sin", sin},
		{b.Misc, "Sout", sout},
		{b.Misc, "Qe", qe},
		{b.Misc, "Qnet", qnet},
		{b.Misc, "DS", ds},
		{b.Misc, "Sbar", sbar},
		{b.Vol, "Qin", qin},
		{b.Vol, "Qout", qout},
		{b.Vol, "Qr", qr},
		{b.Vol, "dV_dt", dvdt},
		{b.Vol, "Error", volErr},
		{b.Salt, "QSin", qsin},
		{b.Salt, "QSout", qsout},
		{b.Salt, "dSnet_dt", dsdt},
		{b.Salt, "Error", saltErr},
		{b.SaltQe, "dSnet_dt", dsdt},
		{b.SaltQe, "QeDS", qeds},
		{b.SaltQe, "-QrSbar", qrsbar},
		{b.SaltQe, "Error", qeErr},
	} {
		if err := col.t.Set(col.name, col.v); err != nil {
			return nil, err
		}
	}

	b.VolRelErr = b.relativeError(volErr, qr, "VolRelErr")
	b.SaltRelErr = b.relativeError(saltErr, qsin, "SaltRelErr")
	b.SaltQeRelErr = b.relativeError(qeErr, qeds, "SaltQeRelErr")

	for _, d := range b.Degeneracies {
		log.WithFields(logrus.Fields{
			"quantity": d.Quantity,
			"rows":     d.Rows,
		}).Warn("division by zero; values set to NaN")
	}
	log.WithFields(logrus.Fields{
		"vol_err_pct":  b.VolRelErr * 100,
		"salt_err_pct": b.SaltRelErr * 100,
	}).Info("calculated budget")
	return b, nil
}

// orientSections orients the boundary section transports into cv and
// matches them to idx.
func (b *Budget) orientSections(cv *ControlVolume, bulks []*Bulk, idx []time.Time, log logrus.FieldLogger) ([]*SectionTransport, error) {
	have := make(map[string]bool, len(bulks))
	var o []*SectionTransport
	for _, bulk := range bulks {
		sign, ok := cv.Sections[bulk.Name]
		if !ok {
			return nil, fmt.Errorf("lo: section %s is not on the boundary of %s", bulk.Name, cv.Name)
		}
		have[bulk.Name] = true
		if bulk.InSign != sign {
			log.WithFields(logrus.Fields{
				"section":  bulk.Name,
				"recorded": bulk.InSign,
				"used":     sign,
			}).Warn("potential sign error")
			b.SignWarnings = append(b.SignWarnings, SignWarning{Section: bulk.Name, Recorded: bulk.InSign, Used: sign})
		}
		st, err := bulk.Orient(sign)
		if err != nil {
			return nil, err
		}
		a := st.align(idx)
		if allNaN(a.Qin) {
			log.WithField("section", bulk.Name).Warn("no section times match the budget index")
		}
		o = append(o, a)
	}
	for _, name := range cv.SectionNames() {
		if !have[name] {
			return nil, fmt.Errorf("lo: no transport data for section %s of %s", name, cv.Name)
		}
	}
	return o, nil
}

// align returns a copy of s matched to the times in idx.
func (s *SectionTransport) align(idx []time.Time) *SectionTransport {
	return &SectionTransport{
		Index:  idx,
		Qin:    alignSeries(s.Index, s.Qin, idx),
		Qout:   alignSeries(s.Index, s.Qout, idx),
		QSin:   alignSeries(s.Index, s.QSin, idx),
		QSout:  alignSeries(s.Index, s.QSout, idx),
		Qprism: alignSeries(s.Index, s.Qprism, idx),
		Ftide:  alignSeries(s.Index, s.Ftide, idx),
	}
}

// hourlyMeanSalinity returns the volume-weighted mean salinity of the
// segments, low-pass filtered and matched to idx.
func (b *Budget) hourlyMeanSalinity(in *BudgetInputs, idx []time.Time) ([]float64, error) {
	nh := in.HourlyVolume.Len()
	if in.HourlySalinity.Len() != nh {
		return nil, fmt.Errorf("lo: hourly volume has %d rows but hourly salinity has %d", nh, in.HourlySalinity.Len())
	}
	sv, vol := make([]float64, nh), make([]float64, nh)
	for _, seg := range in.Segments {
		vh, err := in.HourlyVolume.Column(seg)
		if err != nil {
			return nil, err
		}
		sh, err := in.HourlySalinity.Column(seg)
		if err != nil {
			return nil, err
		}
		for i := range vh {
			if x := sh[i] * vh[i]; !math.IsNaN(x) {
				sv[i] += x
			}
			if !math.IsNaN(vh[i]) {
				vol[i] += vh[i]
			}
		}
	}
	smeanh := b.divide(sv, vol, "Smean")
	ti, daily := dailyFromHourly(in.HourlyVolume.Index, smeanh)
	return alignSeries(ti, daily, idx), nil
}

// riverFlow returns the total flow of the rivers of in, matched to idx.
func (c *BudgetConfig) riverFlow(in *BudgetInputs, idx []time.Time) ([]float64, error) {
	if len(in.RiverNames) == 0 {
		return make([]float64, len(idx)), nil
	}
	if in.Rivers == nil {
		return nil, fmt.Errorf("lo: no river flow data for rivers %v", in.RiverNames)
	}
	q, err := in.Rivers.SumRows(in.RiverNames)
	if err != nil {
		return nil, err
	}
	shifted := in.Rivers.Shift(c.RiverOffset)
	return alignSeries(shifted.Index, q, idx), nil
}

// sumAligned sums the named columns of t and matches the result to idx.
func sumAligned(t *Table, names []string, idx []time.Time) ([]float64, error) {
	s, err := t.SumRows(names)
	if err != nil {
		return nil, err
	}
	return alignSeries(t.Index, s, idx), nil
}

// centeredDifference returns the centered time derivative of v [units/s].
// The first and last values are NaN.
func centeredDifference(idx []time.Time, v []float64) []float64 {
	o := make([]float64, len(v))
	for i := range o {
		if i == 0 || i == len(v)-1 {
			o[i] = math.NaN()
			continue
		}
		o[i] = (v[i+1] - v[i-1]) / idx[i+1].Sub(idx[i-1]).Seconds()
	}
	return o
}

// minDenominator is the magnitude below which a denominator is treated
// as zero.
const minDenominator = 1e-12

func degenerate(d float64) bool {
	return math.IsNaN(d) || math.IsInf(d, 0) || math.Abs(d) < minDenominator
}

// allNaN reports whether x is not empty and all of its values are NaN.
func allNaN(x []float64) bool {
	for _, v := range x {
		if !math.IsNaN(v) {
			return false
		}
	}
	return len(x) > 0
}

// divide returns num/den element by element. Elements with a degenerate
// denominator are NaN and are recorded as a Degeneracy of the
// given quantity.
func (b *Budget) divide(num, den []float64, quantity string) []float64 {
	o := make([]float64, len(num))
	var bad int
	for i := range o {
		if degenerate(den[i]) {
			o[i] = math.NaN()
			bad++
			continue
		}
		o[i] = num[i] / den[i]
	}
	if bad > 0 {
		b.Degeneracies = append(b.Degeneracies, Degeneracy{Quantity: quantity, Rows: bad})
	}
	return o
}

// relativeError returns the mean of err divided by the mean of forcing,
// ignoring NaN values. A forcing with no valid values is degenerate.
func (b *Budget) relativeError(err, forcing []float64, quantity string) float64 {
	den := nanMean(forcing)
	if degenerate(den) {
		b.Degeneracies = append(b.Degeneracies, Degeneracy{Quantity: quantity, Rows: 1})
		return math.NaN()
	}
	return nanMean(err) / den
}

// nanMean returns the mean of the non-NaN values of x, or NaN if there are
// none.
func nanMean(x []float64) float64 {
	v := make([]float64, 0, len(x))
	for _, xx := range x {
		if !math.IsNaN(xx) {
			v = append(v, xx)
		}
	}
	if len(v) == 0 {
		return math.NaN()
	}
	return stat.Mean(v, nil)
}
