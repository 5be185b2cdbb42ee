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
	"math"
	"os"
	"strconv"
	"time"
)

// Table is a time-indexed set of named float64 columns. Missing values
// are represented as NaN.
type Table struct {
	// Index holds the time of each row.
	Index []time.Time

	names []string
	cols  map[string][]float64
}

// NewTable creates an empty table with the given row index.
func NewTable(index []time.Time) *Table {
	return &Table{
		Index: index,
		cols:  make(map[string][]float64),
	}
}

// Len returns the number of rows in t.
func (t *Table) Len() int { return len(t.Index) }

// Names returns the column names in insertion order.
func (t *Table) Names() []string {
	o := make([]string, len(t.names))
	copy(o, t.names)
	return o
}

// Has returns whether t has a column with the given name.
func (t *Table) Has(name string) bool {
	_, ok := t.cols[name]
	return ok
}

// Set adds or replaces column name. The length of v must match the
// length of the index.
func (t *Table) Set(name string, v []float64) error {
	if len(v) != len(t.Index) {
		return fmt.Errorf("lo: column %s has length %d but table has %d rows", name, len(v), len(t.Index))
	}
	if _, ok := t.cols[name]; !ok {
		t.names = append(t.names, name)
	}
	t.cols[name] = v
	return nil
}

// Column returns the values of the named column. The returned slice is
// shared with the table.
func (t *Table) Column(name string) ([]float64, error) {
	v, ok := t.cols[name]
	if !ok {
		return nil, fmt.Errorf("lo: table has no column %s", name)
	}
	return v, nil
}

// Select returns a new table holding only the named columns, in the
// given order.
func (t *Table) Select(names []string) (*Table, error) {
	o := NewTable(t.Index)
	for _, n := range names {
		v, err := t.Column(n)
		if err != nil {
			return nil, err
		}
		if err := o.Set(n, v); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// SumRows returns, for each row, the sum over the named columns.
// NaN values are skipped, so a row with no valid values sums to zero.
func (t *Table) SumRows(names []string) ([]float64, error) {
	o := make([]float64, len(t.Index))
	for _, n := range names {
		v, err := t.Column(n)
		if err != nil {
			return nil, err
		}
		for i, x := range v {
			if !math.IsNaN(x) {
				o[i] += x
			}
		}
	}
	return o, nil
}

// Shift returns a copy of t with every index value moved by d.
// Column data is shared with t.
func (t *Table) Shift(d time.Duration) *Table {
	idx := make([]time.Time, len(t.Index))
	for i, tt := range t.Index {
		idx[i] = tt.Add(d)
	}
	o := NewTable(idx)
	o.names = t.Names()
	for n, v := range t.cols {
		o.cols[n] = v
	}
	return o
}

// Align returns the values of column name at the times in index.
// Times that are not present in t give NaN.
func (t *Table) Align(name string, index []time.Time) ([]float64, error) {
	v, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	return alignSeries(t.Index, v, index), nil
}

// alignSeries matches values v, indexed by from, to the times in to.
func alignSeries(from []time.Time, v []float64, to []time.Time) []float64 {
	pos := make(map[int64]int, len(from))
	for i, t := range from {
		pos[t.UnixNano()] = i
	}
	o := make([]float64, len(to))
	for i, t := range to {
		if j, ok := pos[t.UnixNano()]; ok {
			o[i] = v[j]
		} else {
			o[i] = math.NaN()
		}
	}
	return o
}

const tableTimeFormat = time.RFC3339Nano

// WriteTable writes t to w in CSV format. The first column holds the
// index times and floating point values are written with the minimum
// number of digits needed to read them back exactly.
func WriteTable(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	header := append([]string{"time"}, t.names...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("lo: writing table: %v", err)
	}
	line := make([]string, len(header))
	for i, tt := range t.Index {
		line[0] = tt.UTC().Format(tableTimeFormat)
		for j, n := range t.names {
			line[j+1] = strconv.FormatFloat(t.cols[n][i], 'g', -1, 64)
		}
		if err := cw.Write(line); err != nil {
			return fmt.Errorf("lo: writing table: %v", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("lo: writing table: %v", err)
	}
	return nil
}

// ReadTable reads a table in the format written by WriteTable.
// Empty cells are read as NaN.
func ReadTable(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("lo: reading table header: %v", err)
	}
	if len(header) == 0 || header[0] != "time" {
		return nil, fmt.Errorf("lo: first table column must be `time`, got %v", header)
	}
	var index []time.Time
	cols := make([][]float64, len(header)-1)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("lo: reading table line %d: %v", line, err)
		}
		tt, err := time.Parse(tableTimeFormat, rec[0])
		if err != nil {
			return nil, fmt.Errorf("lo: reading table line %d: %v", line, err)
		}
		index = append(index, tt)
		for j, s := range rec[1:] {
			v := math.NaN()
			if s != "" {
				v, err = strconv.ParseFloat(s, 64)
				if err != nil {
					return nil, fmt.Errorf("lo: reading table line %d, column %s: %v", line, header[j+1], err)
				}
			}
			cols[j] = append(cols[j], v)
		}
	}
	t := NewTable(index)
	for j, n := range header[1:] {
		if cols[j] == nil {
			cols[j] = []float64{}
		}
		if err := t.Set(n, cols[j]); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// ReadTableFile reads a table from the named file. A missing file gives an
// error that matches os.ErrNotExist.
func ReadTableFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("lo: opening table: %w", err)
	}
	defer f.Close()
	t, err := ReadTable(f)
	if err != nil {
		return nil, fmt.Errorf("%v (file %s)", err, path)
	}
	return t, nil
}

// WriteTableFile writes t to the named file, overwriting any existing file.
func WriteTableFile(path string, t *Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("lo: creating table file: %v", err)
	}
	if err := WriteTable(f, t); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
