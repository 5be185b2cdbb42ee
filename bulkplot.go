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
	"image/color"
	"os"
	"path/filepath"

	"github.com/ctessum/geom"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

const (
	bulkPlotWidth  = 14 * vg.Inch
	bulkPlotHeight = 7 * vg.Inch
	mapPad         = 0.1 // degrees
)

var (
	inflowColor  = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	outflowColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
)

// Plot draws the inflow and outflow transports and salinities of cs next
// to a map of its sections.
func (cs *CombinedSection) Plot() (*vgimg.Canvas, error) {
	q, err := cs.layerPlot(colQp, colQm, 1e-3, "Transport (10^3 m3/s)")
	if err != nil {
		return nil, err
	}
	q.Title.Text = cs.Name
	s, err := cs.layerPlot(colSaltP, colSaltM, 1, "Salinity (g/kg)")
	if err != nil {
		return nil, err
	}
	m, err := cs.mapPlot()
	if err != nil {
		return nil, err
	}

	c := vgimg.NewWith(vgimg.UseWH(bulkPlotWidth, bulkPlotHeight), vgimg.UseDPI(96))
	dc := draw.New(c)
	left := draw.Crop(dc, 0, -bulkPlotWidth/3, 0, 0)
	right := draw.Crop(dc, bulkPlotWidth*2/3, 0, 0, 0)
	tiles := draw.Tiles{
		Rows:      2,
		Cols:      1,
		PadTop:    vg.Points(4),
		PadBottom: vg.Points(4),
		PadLeft:   vg.Points(4),
		PadY:      4 * vg.Millimeter,
	}
	q.Draw(tiles.At(left, 0, 0))
	s.Draw(tiles.At(left, 0, 1))
	m.Draw(draw.Crop(right, 4*vg.Millimeter, -vg.Points(4), vg.Points(4), -vg.Points(4)))
	return c, nil
}

// layerPlot plots the positive and negative layer columns of cs.
func (cs *CombinedSection) layerPlot(pos, neg string, scale float64, ylabel string) (*plot.Plot, error) {
	p, err := plot.New()
	if err != nil {
		return nil, err
	}
	p.Y.Label.Text = ylabel
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	p.Add(plotter.NewGrid())
	for _, l := range []struct {
		name string
		c    color.Color
	}{{pos, inflowColor}, {neg, outflowColor}} {
		v, err := cs.Column(l.name)
		if err != nil {
			return nil, err
		}
		xy := seriesXYs(cs.Index, v, scale)
		if len(xy) == 0 {
			continue
		}
		line, err := plotter.NewLine(xy)
		if err != nil {
			return nil, err
		}
		line.Color = l.c
		line.Width = vg.Points(2)
		p.Add(line)
		p.Legend.Add(l.name, line)
	}
	return p, nil
}

// mapPlot draws the section lines of cs, a marker at each section's first
// point and a tick pointing in the direction of combined positive flow.
func (cs *CombinedSection) mapPlot() (*plot.Plot, error) {
	p, err := plot.New()
	if err != nil {
		return nil, err
	}
	p.X.Label.Text = "Longitude (deg)"
	p.Y.Label.Text = "Latitude (deg)"
	for _, s := range cs.Sections {
		line, err := plotter.NewLine(lineXYs(s.Line()))
		if err != nil {
			return nil, err
		}
		line.Color = color.RGBA{G: 191, B: 191, A: 255}
		line.Width = vg.Points(3)
		start, err := plotter.NewScatter(plotter.XYs{{X: s.Lon0, Y: s.Lat0}})
		if err != nil {
			return nil, err
		}
		start.GlyphStyle.Shape = draw.CircleGlyph{}
		start.GlyphStyle.Color = color.RGBA{G: 128, A: 255}
		start.GlyphStyle.Radius = vg.Points(4)
		tick, err := plotter.NewLine(lineXYs(s.InwardTick(cs.Signs[s.Name])))
		if err != nil {
			return nil, err
		}
		tick.Color = inflowColor
		p.Add(line, start, tick)
	}
	b := cs.Bounds()
	p.X.Min, p.X.Max = b.Min.X-mapPad, b.Max.X+mapPad
	p.Y.Min, p.Y.Max = b.Min.Y-mapPad, b.Max.Y+mapPad
	return p, nil
}

func lineXYs(l geom.LineString) plotter.XYs {
	xy := make(plotter.XYs, len(l))
	for i, pt := range l {
		xy[i].X, xy[i].Y = pt.X, pt.Y
	}
	return xy
}

// PlotGroups combines and plots every section group in l.Regions for run
// r, writing one PNG file per group to the bulk plot directory.
func (l *Loader) PlotGroups(r RunID) error {
	dir := l.BulkPlotDir(r)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("lo: creating bulk plot directory: %v", err)
	}
	for i := range l.Regions.Groups {
		g := &l.Regions.Groups[i]
		cs, err := l.LoadGroup(r, g)
		if err != nil {
			return err
		}
		c, err := cs.Plot()
		if err != nil {
			return fmt.Errorf("lo: plotting section group %s: %v", g.Name, err)
		}
		if err := writePNG(filepath.Join(dir, g.Name+".png"), c); err != nil {
			return err
		}
		l.Log.WithFields(logrus.Fields{
			"group":    g.Name,
			"sections": len(cs.Sections),
		}).Info("plotted section group")
	}
	return nil
}
