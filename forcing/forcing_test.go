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

package forcing

import (
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

var testGrid = Grid{N: 2, NR: 4, NC: 5}

// testArray returns an array whose values encode their position.
func testArray(offset float64, shape ...int) *sparse.DenseArray {
	a := sparse.ZerosDense(shape...)
	for i := range a.Elements {
		a.Elements[i] = offset + float64(i)
	}
	return a
}

func testFields(t *testing.T) *Fields {
	g := testGrid
	f := NewFields(g, []float64{0, 86400})
	nt := len(f.Time)
	for _, v := range []struct {
		name  string
		shape []int
	}{
		{"zeta", []int{nt, g.NR, g.NC}},
		{"ubar", []int{nt, g.NR, g.NC - 1}},
		{"vbar", []int{nt, g.NR - 1, g.NC}},
		{"u", []int{nt, g.N, g.NR, g.NC - 1}},
		{"v", []int{nt, g.N, g.NR - 1, g.NC}},
		{"salt", []int{nt, g.N, g.NR, g.NC}},
		{"temp", []int{nt, g.N, g.NR, g.NC}},
	} {
		a := testArray(1000*float64(len(f.Vars)), v.shape...)
		if err := f.Add(v.name, a); err != nil {
			t.Fatal(err)
		}
	}
	// A masked point.
	f.Vars["salt"].Data.Elements[3] = math.NaN()
	if err := f.AddTracer("phytoplankton", "phytoplankton concentration", "millimole nitrogen meter-3",
		testArray(9000, nt, g.N, g.NR, g.NC)); err != nil {
		t.Fatal(err)
	}
	return f
}

func writeClm(t *testing.T, f *Fields) string {
	path := filepath.Join(t.TempDir(), "ocean_clm.nc")
	w, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := WriteClimatology(w, f); err != nil {
		t.Fatal(err)
	}
	return path
}

func openNC(t *testing.T, path string) (*os.File, *cdf.File) {
	r, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	f, err := cdf.Open(r)
	if err != nil {
		r.Close()
		t.Fatal(err)
	}
	return r, f
}

func sameValues(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] && !(math.IsNaN(a[i]) && math.IsNaN(b[i])) {
			return false
		}
	}
	return true
}

func TestAddShape(t *testing.T) {
	f := NewFields(testGrid, []float64{0})
	if err := f.Add("zeta", sparse.ZerosDense(1, 4, 4)); err == nil {
		t.Error("wrong shape should be an error")
	}
	if err := f.Add("ubar", sparse.ZerosDense(1, 4, 4)); err != nil {
		t.Error(err)
	}
	if err := f.Add("oxygen", sparse.ZerosDense(1, 4, 5)); err == nil {
		t.Error("unknown standard field should be an error")
	}
	if err := f.AddTracer("salt", "", "", sparse.ZerosDense(1, 2, 4, 5)); err == nil {
		t.Error("tracer with a standard name should be an error")
	}
}

func TestClimatology(t *testing.T) {
	f := testFields(t)
	path := writeClm(t, f)

	r, nc := openNC(t, path)
	defer r.Close()
	if ln := nc.Header.GetAttribute("salt", "long_name"); ln != "salinity climatology" {
		t.Errorf("salt long_name = %v", ln)
	}
	if fv := nc.Header.GetAttribute("salt", "_FillValue").([]float64); fv[0] != FillValue {
		t.Errorf("fill value %v", fv)
	}
	if d := nc.Header.Dimensions("ubar"); !reflect.DeepEqual(d, []string{"v2d_time", "eta_u", "xi_u"}) {
		t.Errorf("ubar dimensions %v", d)
	}
	if units := nc.Header.GetAttribute("v3d_time", "units"); units != TimeUnits {
		t.Errorf("time units %v", units)
	}

	have, err := ReadFields(r)
	if err != nil {
		t.Fatal(err)
	}
	if have.Grid != f.Grid || !sameValues(have.Time, f.Time) {
		t.Errorf("grid %+v, time %v", have.Grid, have.Time)
	}
	if len(have.Vars) != len(f.Vars) {
		t.Errorf("read %d fields, want %d", len(have.Vars), len(f.Vars))
	}
	for name, want := range f.Vars {
		v, ok := have.Vars[name]
		if !ok {
			t.Errorf("missing field %s", name)
			continue
		}
		if !sameValues(v.Data.Elements, want.Data.Elements) {
			t.Errorf("field %s values differ", name)
		}
		if v.LongName != want.LongName || v.Units != want.Units {
			t.Errorf("field %s attributes %q %q, want %q %q", name, v.LongName, v.Units, want.LongName, want.Units)
		}
	}
}

func TestClimatologyMissingField(t *testing.T) {
	f := NewFields(testGrid, []float64{0})
	w, err := os.Create(filepath.Join(t.TempDir(), "clm.nc"))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := WriteClimatology(w, f); err == nil {
		t.Error("missing fields should be an error")
	}
}

func TestInitial(t *testing.T) {
	f := testFields(t)
	clmPath := writeClm(t, f)
	clm, err := os.Open(clmPath)
	if err != nil {
		t.Fatal(err)
	}
	defer clm.Close()

	iniPath := filepath.Join(t.TempDir(), "ocean_ini.nc")
	w, err := os.Create(iniPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteInitial(clm, w); err != nil {
		t.Fatal(err)
	}
	w.Close()

	r, ini := openNC(t, iniPath)
	defer r.Close()
	if l := ini.Header.Lengths("salt"); !reflect.DeepEqual(l, []int{1, 2, 4, 5}) {
		t.Errorf("salt lengths %v", l)
	}
	if ln := ini.Header.GetAttribute("salt", "long_name"); ln != "salinity" {
		t.Errorf("salt long_name = %q", ln)
	}
	salt, err := readVar(ini, "salt")
	if err != nil {
		t.Fatal(err)
	}
	want := f.Vars["salt"].Data.Elements[:2*4*5]
	if !sameValues(salt.Elements, want) {
		t.Errorf("salt = %v, want %v", salt.Elements, want)
	}
	tm, err := readVar(ini, "ocean_time")
	if err != nil {
		t.Fatal(err)
	}
	if len(tm.Elements) != 1 || tm.Elements[0] != 0 {
		t.Errorf("ocean_time = %v", tm.Elements)
	}
}

func TestBoundary(t *testing.T) {
	f := testFields(t)
	clmPath := writeClm(t, f)
	clm, err := os.Open(clmPath)
	if err != nil {
		t.Fatal(err)
	}
	defer clm.Close()

	bryPath := filepath.Join(t.TempDir(), "ocean_bry.nc")
	w, err := os.Create(bryPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteBoundary(clm, w); err != nil {
		t.Fatal(err)
	}
	w.Close()

	r, bry := openNC(t, bryPath)
	defer r.Close()
	for _, tc := range []struct {
		name string
		dims []string
	}{
		{"salt_north", []string{"salt_time", "s_rho", "xi_rho"}},
		{"salt_west", []string{"salt_time", "s_rho", "eta_rho"}},
		{"ubar_east", []string{"v2d_time", "eta_u"}},
		{"zeta_south", []string{"zeta_time", "xi_rho"}},
		{"phyt_north", []string{"ocean_time", "s_rho", "xi_rho"}},
		{"ocean_time", []string{"ocean_time"}},
	} {
		if d := bry.Header.Dimensions(tc.name); !reflect.DeepEqual(d, tc.dims) {
			t.Errorf("%s dimensions %v, want %v", tc.name, d, tc.dims)
		}
	}
	if bry.Header.Dimensions("salt") != nil {
		t.Error("full salt field should not be in the boundary file")
	}
	if ln := bry.Header.GetAttribute("ubar_east", "long_name"); ln != "vertically averaged u-momentum" {
		t.Errorf("ubar_east long_name = %q", ln)
	}

	g := testGrid
	salt := f.Vars["salt"].Data
	north, err := readVar(bry, "salt_north")
	if err != nil {
		t.Fatal(err)
	}
	for ti := 0; ti < 2; ti++ {
		for k := 0; k < g.N; k++ {
			for i := 0; i < g.NC; i++ {
				have, want := north.Get(ti, k, i), salt.Get(ti, k, g.NR-1, i)
				if have != want && !(math.IsNaN(have) && math.IsNaN(want)) {
					t.Errorf("salt_north[%d,%d,%d] = %g, want %g", ti, k, i, have, want)
				}
			}
		}
	}
	ubar := f.Vars["ubar"].Data
	east, err := readVar(bry, "ubar_east")
	if err != nil {
		t.Fatal(err)
	}
	for ti := 0; ti < 2; ti++ {
		for j := 0; j < g.NR; j++ {
			if have, want := east.Get(ti, j), ubar.Get(ti, j, g.NC-2); have != want {
				t.Errorf("ubar_east[%d,%d] = %g, want %g", ti, j, have, want)
			}
		}
	}
	// The masked salt point is in the south-west corner.
	south, err := readVar(bry, "salt_south")
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(south.Get(0, 0, 3)) {
		t.Errorf("masked value not preserved: %g", south.Get(0, 0, 3))
	}
}

func TestBoundaryName(t *testing.T) {
	for _, tc := range []struct{ v, want string }{
		{"salt", "salt_north"},
		{"phytoplankton", "phyt_north"},
		{"zooplankton", "zoop_north"},
		{"alkalinity", "Talk_north"},
	} {
		if n := BoundaryName(tc.v, Boundaries[0]); n != tc.want {
			t.Errorf("%s: %s, want %s", tc.v, n, tc.want)
		}
	}
}
