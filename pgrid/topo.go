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

package pgrid

import (
	"context"
	"fmt"
	"math"
	"os"
	"runtime"
	"sort"
	"sync"

	"github.com/ctessum/cdf"
	"github.com/ctessum/requestcache"
	"github.com/ctessum/sparse"
	"github.com/salishsea/lo/internal/hash"
)

// Topo is a gridded bathymetry source.
type Topo struct {
	// Lon and Lat are increasing.
	Lon, Lat []float64

	// Z [m, positive up] has shape [lat, lon].
	Z *sparse.DenseArray
}

var topoCache *requestcache.Cache

var loadTopoCacheOnce sync.Once

// LoadTopo reads the bathymetry source in the named NetCDF file, which
// must hold 1-D lon and lat variables and a 2-D z variable. Each file is
// read only once.
func LoadTopo(path string) (*Topo, error) {
	loadTopoCacheOnce.Do(func() {
		topoCache = requestcache.NewCache(func(ctx context.Context, req interface{}) (interface{}, error) {
			return readTopo(req.(string))
		}, runtime.GOMAXPROCS(-1), requestcache.Memory(20))
	})
	r := topoCache.NewRequest(context.Background(), path, hash.Key("topo", path))
	t, err := r.Result()
	if err != nil {
		return nil, err
	}
	return t.(*Topo), nil
}

func readTopo(path string) (*Topo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pgrid: opening bathymetry: %w", err)
	}
	defer f.Close()
	nc, err := cdf.Open(f)
	if err != nil {
		return nil, fmt.Errorf("pgrid: reading bathymetry %s: %v", path, err)
	}
	lon, err := readVar(nc, "lon")
	if err != nil {
		return nil, err
	}
	lat, err := readVar(nc, "lat")
	if err != nil {
		return nil, err
	}
	z, err := readVar(nc, "z")
	if err != nil {
		return nil, err
	}
	if len(z.Shape) != 2 || z.Shape[0] != len(lat.Elements) || z.Shape[1] != len(lon.Elements) {
		return nil, fmt.Errorf("pgrid: %s: z has shape %v but there are %d latitudes and %d longitudes",
			path, z.Shape, len(lat.Elements), len(lon.Elements))
	}
	t := &Topo{Lon: lon.Elements, Lat: lat.Elements, Z: z}
	if len(t.Lat) > 1 && t.Lat[0] > t.Lat[len(t.Lat)-1] {
		t.flipLat()
	}
	if !sort.Float64sAreSorted(t.Lon) || !sort.Float64sAreSorted(t.Lat) {
		return nil, fmt.Errorf("pgrid: %s: coordinates must be monotonic", path)
	}
	return t, nil
}

// flipLat reverses the latitude order.
func (t *Topo) flipLat() {
	ny, nx := t.Z.Shape[0], t.Z.Shape[1]
	z := sparse.ZerosDense(ny, nx)
	lat := make([]float64, ny)
	for j := 0; j < ny; j++ {
		lat[j] = t.Lat[ny-1-j]
		for i := 0; i < nx; i++ {
			z.Set(t.Z.Get(ny-1-j, i), j, i)
		}
	}
	t.Lat, t.Z = lat, z
}

// readVar reads a numeric variable.
func readVar(f *cdf.File, name string) (*sparse.DenseArray, error) {
	dims := f.Header.Lengths(name)
	if len(dims) == 0 {
		return nil, fmt.Errorf("pgrid: variable %s not in file", name)
	}
	r := f.Reader(name, nil, nil)
	buf := r.Zero(-1)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("pgrid: reading variable %s: %v", name, err)
	}
	data := sparse.ZerosDense(dims...)
	switch b := buf.(type) {
	case []float64:
		copy(data.Elements, b)
	case []float32:
		for i, v := range b {
			data.Elements[i] = float64(v)
		}
	case []int16:
		for i, v := range b {
			data.Elements[i] = float64(v)
		}
	case []int32:
		for i, v := range b {
			data.Elements[i] = float64(v)
		}
	default:
		return nil, fmt.Errorf("pgrid: variable %s has unsupported type %T", name, buf)
	}
	return data, nil
}

// bracket returns the index of the interval of increasing v holding x
// and the fractional position of x within it.
func bracket(v []float64, x float64) (int, float64, bool) {
	n := len(v)
	if n < 2 || x < v[0] || x > v[n-1] {
		return 0, 0, false
	}
	i := sort.SearchFloat64s(v, x)
	if i == 0 {
		i = 1
	}
	return i - 1, (x - v[i-1]) / (v[i] - v[i-1]), true
}

// At returns the bilinearly interpolated height at (lon, lat), or NaN
// outside of the source.
func (t *Topo) At(lon, lat float64) float64 {
	i, fx, ok := bracket(t.Lon, lon)
	if !ok {
		return math.NaN()
	}
	j, fy, ok := bracket(t.Lat, lat)
	if !ok {
		return math.NaN()
	}
	z00, z01 := t.Z.Get(j, i), t.Z.Get(j, i+1)
	z10, z11 := t.Z.Get(j+1, i), t.Z.Get(j+1, i+1)
	return (1-fy)*((1-fx)*z00+fx*z01) + fy*((1-fx)*z10+fx*z11)
}

// CombineBathymetry returns the height at each grid point from the
// sources. Finite values from later sources replace those from earlier
// ones; points covered by no source are NaN.
func CombineBathymetry(lon, lat *sparse.DenseArray, sources []*Topo) *sparse.DenseArray {
	z := sparse.ZerosDense(lon.Shape...)
	for i := range z.Elements {
		z.Elements[i] = math.NaN()
	}
	for _, t := range sources {
		for i := range z.Elements {
			if v := t.At(lon.Elements[i], lat.Elements[i]); !math.IsNaN(v) {
				z.Elements[i] = v
			}
		}
	}
	return z
}

// WriteTopo writes a bathymetry source to w in the format read by
// LoadTopo.
func WriteTopo(w *os.File, t *Topo) error {
	h := cdf.NewHeader([]string{"lat", "lon"}, []int{len(t.Lat), len(t.Lon)})
	h.AddVariable("lon", []string{"lon"}, []float64{0})
	h.AddVariable("lat", []string{"lat"}, []float64{0})
	h.AddVariable("z", []string{"lat", "lon"}, []float64{0})
	h.AddAttribute("z", "units", "m")
	h.Define()
	f, err := cdf.Create(w, h)
	if err != nil {
		return fmt.Errorf("pgrid: creating bathymetry file: %v", err)
	}
	for name, v := range map[string][]float64{"lon": t.Lon, "lat": t.Lat, "z": t.Z.Elements} {
		if err := writeVar(f, name, v); err != nil {
			return err
		}
	}
	return cdf.UpdateNumRecs(w)
}
