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

package obs

import "math"

// SAFromSP returns the reference-composition Absolute Salinity [g/kg]
// for Practical Salinity sp.
func SAFromSP(sp float64) float64 {
	return sp * 35.16504 / 35
}

// cp0 is the TEOS-10 reference specific heat capacity of seawater
// [J/(kg K)].
const cp0 = 3991.86795711963

// CTFromPT returns the Conservative Temperature [deg C] of seawater with
// Absolute Salinity sa [g/kg] and potential temperature pt [deg C]
// referenced to 0 dbar, from the TEOS-10 polynomial for potential
// enthalpy.
func CTFromPT(sa, pt float64) float64 {
	const sfac = 0.0248826675584615
	x2 := sfac * sa
	x := math.Sqrt(x2)
	y := pt * 0.025

	potEnthalpy := 61.01362420681071 +
		y*(168776.46138048015+
			y*(-2735.2785605119625+y*(2574.2164453821433+
				y*(-1536.6644434977543+y*(545.7340497931629+
					(-50.91091728474331-18.30489878927802*y)*y))))) +
		x2*(268.5520265845071+
			y*(-12019.028203559312+y*(3734.858026725145+
				y*(-2046.7671145057618+y*(465.28655623826234+
					(-0.6370820302376359-10.650848542359153*y)*y)))) +
			x*(937.2099110620707+
				y*(588.1802812170108+y*(248.39476522971285+
					(-3.871557904936333-2.6268019854268356*y)*y)) +
				x*(-1687.914374187449+
					x*(246.9598888781377+x*(123.59576582457964-48.5891069025409*x)) +
					y*(936.3206544460336+y*(-942.7827304544439+
						y*(369.4389437509002+(-33.83664947895248-9.987880382780322*y)*y))))))

	return potEnthalpy / cp0
}

// Depth returns the depth [m] at pressure p [dbar] and latitude lat
// [degrees] from the UNESCO (1983) formula.
func Depth(p, lat float64) float64 {
	x := math.Sin(lat / 57.29578)
	x *= x
	gr := 9.780318*(1.0+(5.2788e-3+2.36e-5*x)*x) + 1.092e-6*p
	return (((-1.82e-15*p+2.279e-10)*p-2.2512e-5)*p + 9.72659) * p / gr
}

// ZFromP returns the height [m, positive up] at pressure p [dbar] and
// latitude lat.
func ZFromP(p, lat float64) float64 { return -Depth(p, lat) }

// oxygenMgLToUM converts dissolved oxygen from mg/L to µmol/L.
const oxygenMgLToUM = 1000.0 / 32
