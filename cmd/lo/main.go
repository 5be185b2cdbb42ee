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

// Command lo is a command-line interface for the LO ocean model
// post-processing and forcing tools.
package main

import (
	"os"

	"github.com/salishsea/lo/loutil"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := loutil.Root.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
