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
	"os"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

const (
	budgetPlotWidth  = 11 * vg.Inch
	budgetPlotHeight = 8 * vg.Inch
)

// seriesXYs returns the finite values of v, multiplied by scale, against
// the index times in seconds since the Unix epoch.
func seriesXYs(idx []time.Time, v []float64, scale float64) plotter.XYs {
	var n int
	for _, y := range v {
		if !math.IsNaN(y) && !math.IsInf(y, 0) {
			n++
		}
	}
	xy := make(plotter.XYs, n)
	var j int
	for i, y := range v {
		if math.IsNaN(y) || math.IsInf(y, 0) {
			continue
		}
		xy[j].X = float64(idx[i].Unix())
		xy[j].Y = y * scale
		j++
	}
	return xy
}

// tablePlot returns a time series plot of the named columns of t.
func tablePlot(t *Table, names []string, scale float64, title, ylabel string) (*plot.Plot, error) {
	p, err := plot.New()
	if err != nil {
		return nil, err
	}
	p.Title.Text = title
	p.Y.Label.Text = ylabel
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	var lines []interface{}
	for _, n := range names {
		v, err := t.Column(n)
		if err != nil {
			return nil, err
		}
		xy := seriesXYs(t.Index, v, scale)
		if len(xy) == 0 {
			continue
		}
		lines = append(lines, n, xy)
	}
	if err := plotutil.AddLines(p, lines...); err != nil {
		return nil, err
	}
	return p, nil
}

// Plot draws the volume and salt budgets of b for the given year, one
// panel above the other.
func (b *Budget) Plot(year int) (*vgimg.Canvas, error) {
	vol, err := tablePlot(b.Vol, b.Vol.Names(), 1e-3,
		fmt.Sprintf("%d %s: Volume Budget (Mean Error/Qr = %.2f%%)", year, b.Volume, b.VolRelErr*100),
		"Transport (10^3 m3/s)")
	if err != nil {
		return nil, fmt.Errorf("lo: plotting volume budget: %v", err)
	}
	salt, err := tablePlot(b.Salt, b.Salt.Names(), 1e-3,
		fmt.Sprintf("Salt Budget (Mean Error/QSin = %.2f%%)", b.SaltRelErr*100),
		"Salt transport (10^3 g/kg m3/s)")
	if err != nil {
		return nil, fmt.Errorf("lo: plotting salt budget: %v", err)
	}

	c := vgimg.NewWith(vgimg.UseWH(budgetPlotWidth, budgetPlotHeight), vgimg.UseDPI(96))
	dc := draw.New(c)
	tiles := draw.Tiles{
		Rows:      2,
		Cols:      1,
		PadTop:    vg.Points(4),
		PadBottom: vg.Points(4),
		PadLeft:   vg.Points(4),
		PadRight:  vg.Points(8),
		PadY:      4 * vg.Millimeter,
	}
	vol.Draw(tiles.At(dc, 0, 0))
	salt.Draw(tiles.At(dc, 0, 1))
	return c, nil
}

// PlotFile writes the budget plot of b for the given year to a PNG file.
func (b *Budget) PlotFile(path string, year int) error {
	c, err := b.Plot(year)
	if err != nil {
		return err
	}
	return writePNG(path, c)
}

func writePNG(path string, c *vgimg.Canvas) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("lo: creating plot file: %v", err)
	}
	if _, err = (vgimg.PngCanvas{Canvas: c}).WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("lo: writing plot file: %v", err)
	}
	return f.Close()
}
