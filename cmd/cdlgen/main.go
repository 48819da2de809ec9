/*
Copyright © 2019 the InMAP authors.
This file is part of CDL.

CDL is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

CDL is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with CDL.  If not, see <http://www.gnu.org/licenses/>.
*/

// Command cdlgen translates CDL dataset descriptions into netCDF files.
package main

import (
	"fmt"
	"os"

	"github.com/spatialmodel/cdl/cdlutil"
)

func main() {
	if err := cdlutil.Root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
}
