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
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
)

// godinKernel returns the weights of the Godin tidal filter: successive
// 24, 24 and 25 hour running means, 71 hours long.
func godinKernel() []float64 {
	return convolve(convolve(boxcar(24), boxcar(24)), boxcar(25))
}

func boxcar(n int) []float64 {
	o := make([]float64, n)
	for i := range o {
		o[i] = 1 / float64(n)
	}
	return o
}

// convolve returns the full discrete convolution of a and b.
func convolve(a, b []float64) []float64 {
	o := make([]float64, len(a)+len(b)-1)
	for i, av := range a {
		for j, bv := range b {
			o[i+j] += av * bv
		}
	}
	return o
}

// GodinFilter low-pass filters an hourly series with the Godin filter.
// The output has the same length as x; the first and last 35 values,
// where the filter window extends past the data, are NaN.
func GodinFilter(x []float64) []float64 {
	k := godinKernel()
	half := len(k) / 2
	o := make([]float64, len(x))
	for i := range o {
		if i < half || i >= len(x)-half {
			o[i] = math.NaN()
			continue
		}
		// The kernel is symmetric, so the convolution is a dot product.
		o[i] = floats.Dot(k, x[i-half:i+half+1])
	}
	return o
}

// godinPad is the number of hours dropped from the start of a filtered
// series before sampling it daily.
const godinPad = 36

// dailyFromHourly filters hourly series x with the Godin filter and
// samples it every 24 hours starting at hour 36, stopping 37 hours before
// the end of the record.
func dailyFromHourly(index []time.Time, x []float64) ([]time.Time, []float64) {
	f := GodinFilter(x)
	var ti []time.Time
	var o []float64
	for i := godinPad; i < len(x)-(godinPad+1); i += 24 {
		ti = append(ti, index[i])
		o = append(o, f[i])
	}
	return ti, o
}
