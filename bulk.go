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

	"github.com/ctessum/geom"
)

// CombinedSection holds the two-layer transports of a group of sections
// added together with consistent flow directions.
type CombinedSection struct {
	Name string

	// Sections are the member sections and Signs the sign each one was
	// combined with.
	Sections []Section
	Signs    map[string]int

	// Table holds the columns q_p, q_m [m3/s], salt_q_p, salt_q_m
	// [g/kg m3/s], salt_p, salt_m [g/kg], qprism, qnet [m3/s], fnet [W] and
	// ssh [m].
	*Table
}

// Combined section column names that are not in the bulk tables.
const (
	colQnet   = "qnet"
	colSaltQp = "salt_q_p"
	colSaltQm = "salt_q_m"
)

// CombineSections adds the transports of bulks together. Each section is
// oriented with its sign in signs, as in Bulk.Orient, before summing; the
// tidal prism flow, net flow and energy flux are summed with the same
// signs and the surface height is averaged. The layer salinities are the
// combined salt transports divided by the combined volume transports.
// Missing values are counted as zero. All series are matched to the
// times of the first section.
func CombineSections(name string, bulks []*Bulk, signs map[string]int) (*CombinedSection, error) {
	if len(bulks) == 0 {
		return nil, fmt.Errorf("lo: section group %s has no sections", name)
	}
	idx := bulks[0].Index
	n := len(idx)
	cs := &CombinedSection{Name: name, Signs: make(map[string]int), Table: NewTable(idx)}
	qp, qm := make([]float64, n), make([]float64, n)
	sqp, sqm := make([]float64, n), make([]float64, n)
	qprism, qnet, fnet, ssh := make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n)
	nsect := float64(len(bulks))
	for _, b := range bulks {
		sign, ok := signs[b.Name]
		if !ok {
			return nil, fmt.Errorf("lo: section group %s: no sign for section %s", name, b.Name)
		}
		st, err := b.Orient(sign)
		if err != nil {
			return nil, err
		}
		st = st.align(idx)
		h, err := b.Align(colSSH, idx)
		if err != nil {
			return nil, fmt.Errorf("lo: section %s: %v", b.Name, err)
		}
		var bqnet []float64
		if b.Has(colQnet) {
			if bqnet, err = b.Align(colQnet, idx); err != nil {
				return nil, err
			}
		}
		s := float64(sign)
		for i := 0; i < n; i++ {
			qp[i] += zeroNaN(st.Qin[i])
			qm[i] += zeroNaN(st.Qout[i])
			sqp[i] += zeroNaN(st.QSin[i])
			sqm[i] += zeroNaN(st.QSout[i])
			qprism[i] += s * zeroNaN(st.Qprism[i])
			// Ftide already carries the sign.
			fnet[i] += zeroNaN(st.Ftide[i])
			if bqnet != nil {
				qnet[i] += s * zeroNaN(bqnet[i])
			} else {
				qnet[i] += zeroNaN(st.Qin[i]) + zeroNaN(st.Qout[i])
			}
			ssh[i] += zeroNaN(h[i]) / nsect
		}
		cs.Sections = append(cs.Sections, b.Section)
		cs.Signs[b.Name] = sign
	}
	for _, c := range []struct {
		name string
		v    []float64
	}{
		{colQp, qp},
		{colQm, qm},
		{colSaltQp, sqp},
		{colSaltQm, sqm},
		{colSaltP, ratio(sqp, qp)},
		{colSaltM, ratio(sqm, qm)},
		{colQprism, qprism},
		{colQnet, qnet},
		{colFnet, fnet},
		{colSSH, ssh},
	} {
		if err := cs.Set(c.name, c.v); err != nil {
			return nil, err
		}
	}
	return cs, nil
}

// ratio returns a/b element by element, with NaN where b is zero.
func ratio(a, b []float64) []float64 {
	o := make([]float64, len(a))
	for i := range o {
		if degenerate(b[i]) {
			o[i] = math.NaN()
		} else {
			o[i] = a[i] / b[i]
		}
	}
	return o
}

// LoadGroup reads the bulk tables of the sections in g for run r and
// combines them.
func (l *Loader) LoadGroup(r RunID, g *SectionGroup) (*CombinedSection, error) {
	var bulks []*Bulk
	for _, name := range g.SectionNames() {
		b, err := l.LoadBulk(r, name)
		if err != nil {
			return nil, err
		}
		bulks = append(bulks, b)
	}
	return CombineSections(g.Name, bulks, g.Sections)
}

// Bounds returns the lon/lat bounds of the member section lines.
func (cs *CombinedSection) Bounds() *geom.Bounds {
	b := geom.NewBounds()
	for _, s := range cs.Sections {
		b.Extend(s.Line().Bounds())
	}
	return b
}

// Line returns the section as a line from its first to its last point.
func (s Section) Line() geom.LineString {
	return geom.LineString{{X: s.Lon0, Y: s.Lat0}, {X: s.Lon1, Y: s.Lat1}}
}

// InwardTick returns a short line from the middle of s pointing in the
// direction of flow that has the given sign, with the
// longitude component scaled for the latitude.
func (s Section) InwardTick(sign int) geom.LineString {
	dx, dy := s.Lon1-s.Lon0, s.Lat1-s.Lat0
	xm, ym := (s.Lon0+s.Lon1)/2, (s.Lat0+s.Lat1)/2
	sg := float64(sign)
	return geom.LineString{
		{X: xm, Y: ym},
		{X: xm - sg*dy/2, Y: ym + sg*math.Cos(math.Pi*ym/180)*dx/2},
	}
}
