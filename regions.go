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
	"os"
	"sort"

	"github.com/BurntSushi/toml"
)

// AllSegments is a control volume segment entry that selects every
// segment present in the extracted data.
const AllSegments = "*"

// Segment is a named sub-region of the model domain.
type Segment struct {
	Name string

	// Rivers lists the river sources that drain into the segment.
	Rivers []string
}

// Section is an oriented transect through the model domain.
type Section struct {
	Name string

	// InSign is the recorded sign convention of the section: +1 if flow
	// in the positive section direction goes into the region it bounds,
	// -1 otherwise.
	InSign int

	// Lon0, Lat0, Lon1 and Lat1 are the section end points [degrees].
	Lon0, Lat0, Lon1, Lat1 float64
}

// ControlVolume is a named aggregate of segments enclosed by sections.
type ControlVolume struct {
	Name string

	// Segments are the member segment names. A single entry of "*"
	// selects all segments.
	Segments []string

	// Sections maps each boundary section name to the sign indicating which
	// direction of flow through the section is into the control volume.
	Sections map[string]int
}

// SectionGroup is a set of sections whose transports are combined,
// each with the sign that makes the flow directions consistent.
type SectionGroup struct {
	Name     string
	Sections map[string]int
}

// Regions holds the segment, section and control volume definitions
// for a model grid.
type Regions struct {
	Segments []Segment       `toml:"Segment"`
	Sections []Section       `toml:"Section"`
	Volumes  []ControlVolume `toml:"Volume"`
	Groups   []SectionGroup  `toml:"Group"`
}

// ReadRegions reads region definitions from a TOML file.
func ReadRegions(filename string) (*Regions, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("lo: the regions file you have specified, %v, does not "+
			"appear to exist: %w", filename, err)
	}
	defer f.Close()
	r := new(Regions)
	if _, err := toml.DecodeReader(f, r); err != nil {
		return nil, fmt.Errorf("lo: there has been an error parsing the regions file: %v", err)
	}
	if err := r.Check(); err != nil {
		return nil, err
	}
	return r, nil
}

// Check checks the consistency of the definitions in r.
func (r *Regions) Check() error {
	segs := make(map[string]bool)
	for _, s := range r.Segments {
		if segs[s.Name] {
			return fmt.Errorf("lo: duplicate segment %s", s.Name)
		}
		segs[s.Name] = true
	}
	sects := make(map[string]bool)
	for _, s := range r.Sections {
		if sects[s.Name] {
			return fmt.Errorf("lo: duplicate section %s", s.Name)
		}
		if s.InSign != 1 && s.InSign != -1 {
			return fmt.Errorf("lo: section %s has sign %d; it must be 1 or -1", s.Name, s.InSign)
		}
		sects[s.Name] = true
	}
	vols := make(map[string]bool)
	for _, v := range r.Volumes {
		if vols[v.Name] {
			return fmt.Errorf("lo: duplicate control volume %s", v.Name)
		}
		vols[v.Name] = true
		if len(v.Segments) == 0 {
			return fmt.Errorf("lo: control volume %s has no segments", v.Name)
		}
		for _, s := range v.Segments {
			if s != AllSegments && !segs[s] {
				return fmt.Errorf("lo: control volume %s: undefined segment %s", v.Name, s)
			}
		}
		for s, sign := range v.Sections {
			if !sects[s] {
				return fmt.Errorf("lo: control volume %s: undefined section %s", v.Name, s)
			}
			if sign != 1 && sign != -1 {
				return fmt.Errorf("lo: control volume %s: section %s has sign %d; it must be 1 or -1", v.Name, s, sign)
			}
		}
	}
	groups := make(map[string]bool)
	for _, g := range r.Groups {
		if groups[g.Name] {
			return fmt.Errorf("lo: duplicate section group %s", g.Name)
		}
		groups[g.Name] = true
		if len(g.Sections) == 0 {
			return fmt.Errorf("lo: section group %s has no sections", g.Name)
		}
		for s, sign := range g.Sections {
			if !sects[s] {
				return fmt.Errorf("lo: section group %s: undefined section %s", g.Name, s)
			}
			if sign != 1 && sign != -1 {
				return fmt.Errorf("lo: section group %s: section %s has sign %d; it must be 1 or -1", g.Name, s, sign)
			}
		}
	}
	return nil
}

// Group returns the section group with the given name.
func (r *Regions) Group(name string) (*SectionGroup, error) {
	for i, g := range r.Groups {
		if g.Name == name {
			return &r.Groups[i], nil
		}
	}
	return nil, fmt.Errorf("lo: undefined section group %s", name)
}

// Volume returns the control volume with the given name.
func (r *Regions) Volume(name string) (*ControlVolume, error) {
	for i, v := range r.Volumes {
		if v.Name == name {
			return &r.Volumes[i], nil
		}
	}
	return nil, fmt.Errorf("lo: undefined control volume %s", name)
}

// Section returns the section with the given name.
func (r *Regions) Section(name string) (*Section, error) {
	for i, s := range r.Sections {
		if s.Name == name {
			return &r.Sections[i], nil
		}
	}
	return nil, fmt.Errorf("lo: undefined section %s", name)
}

// Rivers returns the rivers draining into the given segments, in segment
// order and without repeats.
func (r *Regions) Rivers(segments []string) ([]string, error) {
	bySeg := make(map[string][]string, len(r.Segments))
	for _, s := range r.Segments {
		bySeg[s.Name] = s.Rivers
	}
	var o []string
	seen := make(map[string]bool)
	for _, s := range segments {
		rivers, ok := bySeg[s]
		if !ok {
			return nil, fmt.Errorf("lo: undefined segment %s", s)
		}
		for _, rr := range rivers {
			if !seen[rr] {
				seen[rr] = true
				o = append(o, rr)
			}
		}
	}
	return o, nil
}

// SegmentNames returns the member segments of v. available lists the
// segments present in the data and is used when v selects all segments.
func (v *ControlVolume) SegmentNames(available []string) []string {
	for _, s := range v.Segments {
		if s == AllSegments {
			o := make([]string, len(available))
			copy(o, available)
			return o
		}
	}
	return v.Segments
}

// SectionNames returns the boundary section names of v in sorted order.
func (v *ControlVolume) SectionNames() []string { return sortedKeys(v.Sections) }

// SectionNames returns the section names of g in sorted order.
func (g *SectionGroup) SectionNames() []string { return sortedKeys(g.Sections) }

func sortedKeys(m map[string]int) []string {
	o := make([]string, 0, len(m))
	for s := range m {
		o = append(o, s)
	}
	sort.Strings(o)
	return o
}
