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
	"errors"
	"math"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

var day0 = time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)

func dailyIndex(n int) []time.Time {
	o := make([]time.Time, n)
	for i := range o {
		o[i] = day0.Add(time.Duration(i) * 24 * time.Hour)
	}
	return o
}

func mustSet(t *testing.T, tb *Table, name string, v []float64) {
	t.Helper()
	if err := tb.Set(name, v); err != nil {
		t.Fatal(err)
	}
}

func series(n int, f func(i int) float64) []float64 {
	o := make([]float64, n)
	for i := range o {
		o[i] = f(i)
	}
	return o
}

func constant(n int, v float64) []float64 {
	return series(n, func(int) float64 { return v })
}

func testBulk(t *testing.T, s Section, idx []time.Time, qp, qm, sp, sm []float64) *Bulk {
	n := len(idx)
	tb := NewTable(idx)
	mustSet(t, tb, colQp, qp)
	mustSet(t, tb, colQm, qm)
	mustSet(t, tb, colSaltP, sp)
	mustSet(t, tb, colSaltM, sm)
	mustSet(t, tb, colQprism, constant(n, 1000))
	mustSet(t, tb, colFnet, constant(n, 2e6))
	mustSet(t, tb, colSSH, constant(n, 0.1))
	return &Bulk{Section: s, Table: tb}
}

func testRegions() *Regions {
	return &Regions{
		Segments: []Segment{
			{Name: "A", Rivers: []string{"r1"}},
			{Name: "B", Rivers: []string{"r2", "r1"}},
			{Name: "C"},
		},
		Sections: []Section{
			{Name: "s1", InSign: 1, Lon0: -123, Lat0: 48, Lon1: -123, Lat1: 48.2},
			{Name: "s2", InSign: -1, Lon0: -122.8, Lat0: 47.9, Lon1: -122.6, Lat1: 47.9},
			{Name: "s3", InSign: 1, Lon0: -122.5, Lat0: 48.1, Lon1: -122.5, Lat1: 48.3},
		},
		Volumes: []ControlVolume{
			{Name: "basin", Segments: []string{"A", "B"}, Sections: map[string]int{"s1": 1, "s2": -1, "s3": 1}},
		},
		Groups: []SectionGroup{
			{Name: "s1_s3", Sections: map[string]int{"s1": 1, "s3": -1}},
		},
	}
}

// hourlyTables returns hourly volume and salinity tables that start 36
// hours before day0, so that the daily samples of the filtered series
// fall on the daily index.
func hourlyTables(t *testing.T, days int, segs []string, vol, salt float64) (v, s *Table) {
	nh := 24*days + 48
	idx := make([]time.Time, nh)
	for i := range idx {
		idx[i] = day0.Add(time.Duration(i-36) * time.Hour)
	}
	v, s = NewTable(idx), NewTable(idx)
	for _, seg := range segs {
		mustSet(t, v, seg, constant(nh, vol))
		mustSet(t, s, seg, constant(nh, salt))
	}
	return v, s
}

// varyingInputs returns budget inputs for control volume "basin" with
// series that change from day to day.
func varyingInputs(t *testing.T, n int) (*ControlVolume, *BudgetInputs) {
	r := testRegions()
	cv, err := r.Volume("basin")
	if err != nil {
		t.Fatal(err)
	}
	idx := dailyIndex(n)
	segs := []string{"A", "B"}
	in := &BudgetInputs{
		Segments:   segs,
		Volume:     NewTable(idx),
		NetSalt:    NewTable(idx),
		VT:         NewTable(idx),
		SVT:        NewTable(idx),
		RiverNames: []string{"r1", "r2"},
	}
	for j, seg := range segs {
		fj := float64(j + 1)
		mustSet(t, in.Volume, seg, series(n, func(i int) float64 { return fj*1e9 + 1e6*float64(i*i) }))
		mustSet(t, in.NetSalt, seg, series(n, func(i int) float64 { return fj*3e10 + 2e7*float64(i*i) - 1e6*float64(i) }))
		mustSet(t, in.VT, seg, series(n, func(i int) float64 { return fj * 10 * math.Sin(float64(i)) }))
		mustSet(t, in.SVT, seg, series(n, func(i int) float64 { return fj * 300 * math.Cos(float64(i)) }))
	}
	in.HourlyVolume, in.HourlySalinity = hourlyTables(t, n, segs, 1e9, 30)

	// River flows are recorded at midnight.
	ridx := make([]time.Time, n)
	for i := range ridx {
		ridx[i] = idx[i].Add(-12 * time.Hour)
	}
	in.Rivers = NewTable(ridx)
	mustSet(t, in.Rivers, "r1", series(n, func(i int) float64 { return 50 + float64(i) }))
	mustSet(t, in.Rivers, "r2", series(n, func(i int) float64 { return 20 + 2*float64(i%3) }))

	for _, name := range cv.SectionNames() {
		s, _ := r.Section(name)
		k := float64(len(in.Sections) + 1)
		in.Sections = append(in.Sections, testBulk(t, *s, idx,
			series(n, func(i int) float64 { return k*1000 + 10*float64(i) }),
			series(n, func(i int) float64 { return -k*900 - 5*float64(i) }),
			series(n, func(i int) float64 { return 31 + 0.01*float64(i) }),
			series(n, func(i int) float64 { return 29 - 0.02*float64(i) }),
		))
	}
	return cv, in
}

func closeTo(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(1, math.Abs(a)+math.Abs(b))
}

func column(t *testing.T, tb *Table, name string) []float64 {
	t.Helper()
	v, err := tb.Column(name)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func testConfig() *BudgetConfig {
	logger, _ := logtest.NewNullLogger()
	return &BudgetConfig{RiverOffset: DefaultRiverOffset, Log: logger}
}

func TestBudgetResidual(t *testing.T) {
	const n = 10
	for _, rate := range []bool{false, true} {
		cv, in := varyingInputs(t, n)
		c := testConfig()
		c.UseInstantaneousRate = rate
		b, err := c.Compute(cv, in)
		if err != nil {
			t.Fatal(err)
		}

		v, _ := in.Volume.SumRows(in.Segments)
		vt, _ := in.VT.SumRows(in.Segments)
		var qin, qout, qr [n]float64
		for _, bulk := range in.Sections {
			qp, qm := column(t, bulk.Table, colQp), column(t, bulk.Table, colQm)
			for i := 0; i < n; i++ {
				if cv.Sections[bulk.Name] == 1 {
					qin[i] += qp[i]
					qout[i] += qm[i]
				} else {
					qin[i] -= qm[i]
					qout[i] -= qp[i]
				}
			}
		}
		r1, r2 := column(t, in.Rivers, "r1"), column(t, in.Rivers, "r2")
		for i := 0; i < n; i++ {
			qr[i] = r1[i] + r2[i]
		}

		e := column(t, b.Vol, "Error")
		for i := 0; i < n; i++ {
			var dvdt float64
			if rate {
				dvdt = vt[i]
			} else if i == 0 || i == n-1 {
				if !math.IsNaN(e[i]) {
					t.Errorf("rate=%v row %d: error should be NaN at the ends but is %g", rate, i, e[i])
				}
				continue
			} else {
				dvdt = (v[i+1] - v[i-1]) / (2 * 86400)
			}
			want := dvdt - (qin[i] + qout[i]) - qr[i]
			if !closeTo(e[i], want) {
				t.Errorf("rate=%v row %d: volume error %g, want %g", rate, i, e[i], want)
			}
		}
	}
}

func TestSaltQeResidual(t *testing.T) {
	const n = 8
	cv, in := varyingInputs(t, n)
	c := testConfig()
	c.UseInstantaneousRate = true
	b, err := c.Compute(cv, in)
	if err != nil {
		t.Fatal(err)
	}
	dsdt := column(t, b.Salt, "dSnet_dt")
	qsin, qsout := column(t, b.Salt, "QSin"), column(t, b.Salt, "QSout")
	qin, qout := column(t, b.Vol, "Qin"), column(t, b.Vol, "Qout")
	e := column(t, b.SaltQe, "Error")
	saltErr := column(t, b.Salt, "Error")
	for i := 0; i < n; i++ {
		sin, sout := qsin[i]/qin[i], qsout[i]/qout[i]
		qe := (qin[i] - qout[i]) / 2
		qnet := -(qin[i] + qout[i])
		ds, sbar := sin-sout, (sin+sout)/2
		want := dsdt[i] - qe*ds - (-qnet * sbar)
		if !closeTo(e[i], want) {
			t.Errorf("row %d: Qe salt error %g, want %g", i, e[i], want)
		}
		if want := dsdt[i] - qsin[i] - qsout[i]; !closeTo(saltErr[i], want) {
			t.Errorf("row %d: salt error %g, want %g", i, saltErr[i], want)
		}
	}
}

func TestRelativeError(t *testing.T) {
	const n = 12
	cv, in := varyingInputs(t, n)
	c := testConfig()
	b, err := c.Compute(cv, in)
	if err != nil {
		t.Fatal(err)
	}
	for _, tc := range []struct {
		name         string
		have         float64
		table        *Table
		err, forcing string
	}{
		{"vol", b.VolRelErr, b.Vol, "Error", "Qr"},
		{"salt", b.SaltRelErr, b.Salt, "Error", "QSin"},
		{"qe", b.SaltQeRelErr, b.SaltQe, "Error", "QeDS"},
	} {
		want := nanMean(column(t, tc.table, tc.err)) / nanMean(column(t, tc.table, tc.forcing))
		if math.IsNaN(want) || tc.have != want {
			t.Errorf("%s: relative error %g, want %g", tc.name, tc.have, want)
		}
	}
}

// permute returns a copy of tb with its rows in the order given by perm.
func permute(t *testing.T, tb *Table, perm []int) *Table {
	idx := make([]time.Time, len(perm))
	for i, p := range perm {
		idx[i] = tb.Index[p]
	}
	o := NewTable(idx)
	for _, name := range tb.Names() {
		v := column(t, tb, name)
		mustSet(t, o, name, series(len(perm), func(i int) float64 { return v[perm[i]] }))
	}
	return o
}

func TestRelativeErrorRowOrder(t *testing.T) {
	const n = 9
	cv, in := varyingInputs(t, n)
	c := testConfig()
	c.UseInstantaneousRate = true
	b1, err := c.Compute(cv, in)
	if err != nil {
		t.Fatal(err)
	}

	perm := []int{4, 0, 8, 2, 7, 1, 6, 3, 5}
	in.Volume = permute(t, in.Volume, perm)
	in.NetSalt = permute(t, in.NetSalt, perm)
	in.VT = permute(t, in.VT, perm)
	in.SVT = permute(t, in.SVT, perm)
	in.Rivers = permute(t, in.Rivers, perm)
	for _, bulk := range in.Sections {
		bulk.Table = permute(t, bulk.Table, perm)
	}
	b2, err := c.Compute(cv, in)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range [][2]float64{
		{b1.VolRelErr, b2.VolRelErr},
		{b1.SaltRelErr, b2.SaltRelErr},
		{b1.SaltQeRelErr, b2.SaltQeRelErr},
	} {
		if different(v[0], v[1], 1e-12) {
			t.Errorf("relative error changed with row order: %g != %g", v[0], v[1])
		}
	}
	e1, e2 := column(t, b1.Vol, "Error"), column(t, b2.Vol, "Error")
	for i, p := range perm {
		if !closeTo(e2[i], e1[p]) {
			t.Errorf("row %d: error %g, want %g", i, e2[i], e1[p])
		}
	}
}

// constantInflow returns inputs in which three sections carry a net
// inflow of 100 m3/s into a control volume of constant volume with no
// rivers.
func constantInflow(t *testing.T, n int) (*ControlVolume, *BudgetInputs) {
	r := testRegions()
	cv := &ControlVolume{Name: "box", Segments: []string{"C"}, Sections: map[string]int{"s1": 1, "s2": -1, "s3": 1}}
	idx := dailyIndex(n)
	in := &BudgetInputs{
		Segments: []string{"C"},
		Volume:   NewTable(idx),
		NetSalt:  NewTable(idx),
		VT:       NewTable(idx),
		SVT:      NewTable(idx),
		Rivers:   NewTable(idx),
	}
	mustSet(t, in.Volume, "C", constant(n, 5e9))
	mustSet(t, in.NetSalt, "C", constant(n, 1.5e11))
	mustSet(t, in.VT, "C", constant(n, 0))
	mustSet(t, in.SVT, "C", constant(n, 0))
	in.HourlyVolume, in.HourlySalinity = hourlyTables(t, n, in.Segments, 5e9, 30)
	flows := map[string][2]float64{
		"s1": {60, 0},   // 60 in
		"s2": {0, -30},  // 30 in through a negative section
		"s3": {20, -10}, // 10 net in
	}
	for _, name := range cv.SectionNames() {
		s, _ := r.Section(name)
		f := flows[name]
		in.Sections = append(in.Sections, testBulk(t, *s, idx,
			constant(n, f[0]), constant(n, f[1]), constant(n, 30), constant(n, 30)))
	}
	return cv, in
}

func TestConstantInflow(t *testing.T) {
	const n = 6
	for _, rate := range []bool{true, false} {
		cv, in := constantInflow(t, n)
		c := testConfig()
		c.UseInstantaneousRate = rate
		b, err := c.Compute(cv, in)
		if err != nil {
			t.Fatal(err)
		}
		e := column(t, b.Vol, "Error")
		for i := 0; i < n; i++ {
			if !rate && (i == 0 || i == n-1) {
				continue
			}
			if e[i] != -100 {
				t.Errorf("rate=%v row %d: volume error %g, want -100", rate, i, e[i])
			}
		}
		if !math.IsNaN(b.VolRelErr) {
			t.Errorf("rate=%v: relative error with no river flow should be NaN, got %g", rate, b.VolRelErr)
		}
		var flagged bool
		for _, d := range b.Degeneracies {
			if d.Quantity == "VolRelErr" {
				flagged = true
			}
		}
		if !flagged {
			t.Errorf("rate=%v: zero river flow should be flagged, got %+v", rate, b.Degeneracies)
		}
	}
}

func TestSignMismatch(t *testing.T) {
	const n = 4
	idx := dailyIndex(n)
	s := Section{Name: "s2", InSign: -1}
	cv := &ControlVolume{Name: "box", Segments: []string{"C"}, Sections: map[string]int{"s2": 1}}
	in := &BudgetInputs{
		Segments: []string{"C"},
		Volume:   NewTable(idx),
		NetSalt:  NewTable(idx),
		VT:       NewTable(idx),
		SVT:      NewTable(idx),
		Sections: []*Bulk{testBulk(t, s, idx, constant(n, 80), constant(n, -50), constant(n, 31), constant(n, 29))},
	}
	for _, tb := range []*Table{in.Volume, in.NetSalt, in.VT, in.SVT} {
		mustSet(t, tb, "C", constant(n, 1))
	}
	in.HourlyVolume, in.HourlySalinity = hourlyTables(t, n, in.Segments, 1, 30)

	logger, hook := logtest.NewNullLogger()
	c := &BudgetConfig{UseInstantaneousRate: true, Log: logger}
	b, err := c.Compute(cv, in)
	if err != nil {
		t.Fatal(err)
	}
	var warned bool
	for _, e := range hook.Entries {
		if e.Level == logrus.WarnLevel && e.Message == "potential sign error" && e.Data["section"] == "s2" {
			warned = true
		}
	}
	if !warned {
		t.Error("no sign warning was logged")
	}
	if len(b.SignWarnings) != 1 || b.SignWarnings[0] != (SignWarning{Section: "s2", Recorded: -1, Used: 1}) {
		t.Errorf("sign warnings: %+v", b.SignWarnings)
	}
	qin, qout := column(t, b.Vol, "Qin"), column(t, b.Vol, "Qout")
	if qin[0] != 80 || qout[0] != -50 {
		t.Errorf("caller sign not used: Qin=%g, Qout=%g", qin[0], qout[0])
	}
}

func TestSmean(t *testing.T) {
	const n = 6
	cv, in := constantInflow(t, n)
	for _, rate := range []bool{false, true} {
		c := testConfig()
		c.UseInstantaneousRate = rate
		b, err := c.Compute(cv, in)
		if err != nil {
			t.Fatal(err)
		}
		smean := column(t, b.Misc, "Smean")
		last := n
		if rate {
			// The filtered series does not reach the last day.
			last = n - 1
			if !math.IsNaN(smean[n-1]) {
				t.Errorf("last filtered mean salinity should be NaN, got %g", smean[n-1])
			}
		}
		for i := 0; i < last; i++ {
			if different(smean[i], 30, 1e-12) {
				t.Errorf("rate=%v row %d: Smean = %g, want 30", rate, i, smean[i])
			}
		}
	}
}

func TestZeroInflowSalinity(t *testing.T) {
	const n = 3
	idx := dailyIndex(n)
	cv := &ControlVolume{Name: "box", Segments: []string{"C"}, Sections: map[string]int{"s1": 1}}
	in := &BudgetInputs{
		Segments: []string{"C"},
		Volume:   NewTable(idx),
		NetSalt:  NewTable(idx),
		VT:       NewTable(idx),
		SVT:      NewTable(idx),
		Sections: []*Bulk{testBulk(t, Section{Name: "s1", InSign: 1}, idx,
			constant(n, 0), constant(n, -10), constant(n, math.NaN()), constant(n, 30))},
	}
	for _, tb := range []*Table{in.Volume, in.NetSalt, in.VT, in.SVT} {
		mustSet(t, tb, "C", constant(n, 1))
	}
	in.HourlyVolume, in.HourlySalinity = hourlyTables(t, n, in.Segments, 1, 30)
	b, err := testConfig().Compute(cv, in)
	if err != nil {
		t.Fatal(err)
	}
	sin := column(t, b.Misc, "Sin")
	for i, v := range sin {
		if !math.IsNaN(v) {
			t.Errorf("row %d: Sin = %g, want NaN", i, v)
		}
	}
	want := Degeneracy{Quantity: "Sin", Rows: n}
	var found bool
	for _, d := range b.Degeneracies {
		if d == want {
			found = true
		}
	}
	if !found {
		t.Errorf("degeneracies %+v do not include %+v", b.Degeneracies, want)
	}
}

func TestMissingSection(t *testing.T) {
	cv, in := varyingInputs(t, 3)
	in.Sections = in.Sections[1:]
	if _, err := testConfig().Compute(cv, in); err == nil {
		t.Error("missing section data should be an error")
	}
}

func TestMissingInputs(t *testing.T) {
	for _, tc := range []struct {
		name  string
		rate  bool
		clear func(in *BudgetInputs)
		fail  bool
	}{
		{"net salt", false, func(in *BudgetInputs) { in.NetSalt = nil }, true},
		{"volume", true, func(in *BudgetInputs) { in.Volume = nil }, true},
		{"hourly volume", true, func(in *BudgetInputs) { in.HourlyVolume = nil }, true},
		{"hourly salinity", true, func(in *BudgetInputs) { in.HourlySalinity = nil }, true},
		{"svt", true, func(in *BudgetInputs) { in.SVT = nil }, true},
		{"section", false, func(in *BudgetInputs) { in.Sections[1] = nil }, true},
		{"hourly unused", false, func(in *BudgetInputs) { in.HourlyVolume, in.HourlySalinity = nil, nil }, false},
	} {
		cv, in := varyingInputs(t, 5)
		tc.clear(in)
		c := testConfig()
		c.UseInstantaneousRate = tc.rate
		_, err := c.Compute(cv, in)
		if tc.fail && err == nil {
			t.Errorf("%s: missing input should be an error", tc.name)
		} else if !tc.fail && err != nil {
			t.Errorf("%s: %v", tc.name, err)
		}
	}
}

func hasDegeneracy(b *Budget, quantity string) bool {
	for _, d := range b.Degeneracies {
		if d.Quantity == quantity {
			return true
		}
	}
	return false
}

func warned(hook *logtest.Hook, msg string) bool {
	for _, e := range hook.Entries {
		if e.Level == logrus.WarnLevel && e.Message == msg {
			return true
		}
	}
	return false
}

func TestMisalignedRivers(t *testing.T) {
	const n = 8
	cv, in := varyingInputs(t, n)
	logger, hook := logtest.NewNullLogger()
	// River flows are recorded at midnight, so with no offset none of
	// them fall on the budget index.
	c := &BudgetConfig{Log: logger}
	b, err := c.Compute(cv, in)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range column(t, b.Vol, "Qr") {
		if !math.IsNaN(v) {
			t.Errorf("row %d: Qr = %g, want NaN", i, v)
		}
	}
	if !math.IsNaN(b.VolRelErr) {
		t.Errorf("VolRelErr = %g, want NaN", b.VolRelErr)
	}
	if !hasDegeneracy(b, "VolRelErr") {
		t.Errorf("VolRelErr not flagged: %+v", b.Degeneracies)
	}
	if !warned(hook, "no river flow times match the budget index") {
		t.Error("no warning about river flow times")
	}
}

func TestMisalignedSection(t *testing.T) {
	const n = 8
	cv, in := varyingInputs(t, n)
	in.Sections[0].Table = in.Sections[0].Table.Shift(time.Hour)
	logger, hook := logtest.NewNullLogger()
	c := &BudgetConfig{RiverOffset: DefaultRiverOffset, Log: logger}
	b, err := c.Compute(cv, in)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"Sin", "Sout"} {
		for i, v := range column(t, b.Misc, name) {
			if !math.IsNaN(v) {
				t.Errorf("row %d: %s = %g, want NaN", i, name, v)
			}
		}
		want := Degeneracy{Quantity: name, Rows: n}
		var found bool
		for _, d := range b.Degeneracies {
			if d == want {
				found = true
			}
		}
		if !found {
			t.Errorf("degeneracies %+v do not include %+v", b.Degeneracies, want)
		}
	}
	if !math.IsNaN(b.SaltRelErr) || !hasDegeneracy(b, "SaltRelErr") {
		t.Errorf("SaltRelErr = %g, degeneracies %+v", b.SaltRelErr, b.Degeneracies)
	}
	if !warned(hook, "no section times match the budget index") {
		t.Error("no warning about section times")
	}
}

func writeTestRun(t *testing.T, root string, r RunID, cv *ControlVolume, in *BudgetInputs) *Loader {
	l := NewLoader(root, testRegions())
	logger, _ := logtest.NewNullLogger()
	l.Log = logger
	for _, dir := range []string{filepath.Dir(l.FluxFile(r, DailyVolume)), filepath.Dir(l.BulkFile(r, "s1")), filepath.Dir(l.RiverFile(r))} {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			t.Fatal(err)
		}
	}
	for name, tb := range map[string]*Table{
		DailyVolume:    in.Volume,
		DailyNetSalt:   in.NetSalt,
		DailyVT:        in.VT,
		DailySVT:       in.SVT,
		HourlyVolume:   in.HourlyVolume,
		HourlySalinity: in.HourlySalinity,
	} {
		if err := WriteTableFile(l.FluxFile(r, name), tb); err != nil {
			t.Fatal(err)
		}
	}
	for _, b := range in.Sections {
		if err := WriteTableFile(l.BulkFile(r, b.Name), b.Table); err != nil {
			t.Fatal(err)
		}
	}
	if err := WriteTableFile(l.RiverFile(r), in.Rivers); err != nil {
		t.Fatal(err)
	}
	return l
}

func TestLoader(t *testing.T) {
	const n = 7
	cv, in := varyingInputs(t, n)
	r := YearRun("cas6", "v0", "live", 2020)
	l := writeTestRun(t, t.TempDir(), r, cv, in)

	loaded, err := l.Load(r, cv)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded.Sections) != 3 {
		t.Fatalf("loaded %d sections, want 3", len(loaded.Sections))
	}
	if want := []string{"r1", "r2"}; len(loaded.RiverNames) != 2 || loaded.RiverNames[0] != want[0] || loaded.RiverNames[1] != want[1] {
		t.Errorf("rivers %v, want %v", loaded.RiverNames, want)
	}
	c := testConfig()
	b1, err := c.Compute(cv, in)
	if err != nil {
		t.Fatal(err)
	}
	b2, err := c.Compute(cv, loaded)
	if err != nil {
		t.Fatal(err)
	}
	if b1.VolRelErr != b2.VolRelErr || b1.SaltRelErr != b2.SaltRelErr {
		t.Errorf("loaded data gives different errors: %g, %g != %g, %g",
			b2.VolRelErr, b2.SaltRelErr, b1.VolRelErr, b1.SaltRelErr)
	}

	if err := os.Remove(l.BulkFile(r, "s2")); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Load(r, cv); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing bulk file: got error %v, want one matching os.ErrNotExist", err)
	}
}

func TestWriteTablesFileName(t *testing.T) {
	cv, in := constantInflow(t, 4)
	b, err := testConfig().Compute(cv, in)
	if err != nil {
		t.Fatal(err)
	}
	b.Volume = "Puget Sound"
	dir := t.TempDir()
	if err := b.WriteTables(dir, 2020); err != nil {
		t.Fatal(err)
	}
	for _, prefix := range []string{"misc_df", "vol_df", "salt_df", "salt_qe_df"} {
		if _, err := os.Stat(filepath.Join(dir, prefix+"_2020_Puget_Sound.csv")); err != nil {
			t.Error(err)
		}
	}
}

func TestRun(t *testing.T) {
	const n = 5
	cv, in := varyingInputs(t, n)
	r := YearRun("cas6", "v0", "live", 2020)
	root := t.TempDir()
	l := writeTestRun(t, root, r, cv, in)

	c := testConfig()
	c.Gridname, c.Tag, c.ExName = "cas6", "v0", "live"
	c.Years = []int{2020, 2021}
	c.Volumes = []string{"basin"}
	c.Regions = l.Regions
	c.SaveFigures = true
	sum, err := c.Run(l, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(sum.Years) != 1 || sum.Years[0] != 2020 {
		t.Errorf("testing mode processed years %v", sum.Years)
	}
	var files []string
	entries, err := os.ReadDir(l.BudgetDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		files = append(files, e.Name())
	}
	sort.Strings(files)
	want := []string{
		"budget_errors.csv",
		"misc_df_2020_basin.csv",
		"salt_df_2020_basin.csv",
		"salt_qe_df_2020_basin.csv",
		"vol_df_2020_basin.csv",
	}
	if len(files) != len(want) {
		t.Fatalf("output files %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("output file %d: %s, want %s", i, files[i], want[i])
		}
	}

	vol, err := ReadTableFile(filepath.Join(l.BudgetDir(), "vol_df_2020_basin.csv"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.Compute(cv, in)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range b.Vol.Names() {
		have, want := column(t, vol, name), column(t, b.Vol, name)
		for i := range want {
			if have[i] != want[i] && !(math.IsNaN(have[i]) && math.IsNaN(want[i])) {
				t.Errorf("%s row %d: %g != %g", name, i, have[i], want[i])
			}
		}
	}
}

func TestBudgetPlot(t *testing.T) {
	cv, in := varyingInputs(t, 10)
	b, err := testConfig().Compute(cv, in)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "budget.png")
	if err := b.PlotFile(path, 2020); err != nil {
		t.Fatal(err)
	}
	if fi, err := os.Stat(path); err != nil || fi.Size() == 0 {
		t.Errorf("plot file not written: %v", err)
	}
}

func different(a, b, tolerance float64) bool {
	if 2*math.Abs(a-b)/math.Abs(a+b) > tolerance || math.IsNaN(a) || math.IsNaN(b) {
		return true
	}
	return false
}
