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

// Package lo holds the post-processing core of the LO ocean model tools:
// time-indexed tables of extracted segment and section quantities, the
// definitions of segments, sections and control volumes, and the volume and
// salt budget accountant built on top of them.
package lo

// Version gives the version number.
const Version = "1.0.0"
