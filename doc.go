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

// Package cdl parses dataset descriptions written in CDL, the netCDF
// definition language, and delivers the described dataset to a Sink.
// The ncf subpackage provides the Sink that writes classic netCDF files;
// the cdlutil subpackage wires the two together behind a command-line
// interface.
//
// A CDL description declares a dataset's dimensions, its variables with
// their attributes, and optionally the variables' data:
//
//	netcdf example {
//	dimensions:
//		time = unlimited;
//		len = 4;
//	variables:
//		float t(time);
//			t:units = "seconds";
//		char names(time, len);
//	data:
//		t = 0.5, 1.5, _, 3.5;
//		names = "ab", "cd", "ef", "gh";
//	}
//
// Constants carry their netCDF type in their lexical shape: 1b is a byte,
// 1s a short, 1 an int, 1f a float and 1.0 (or 1d) a double. The '_'
// placeholder in a data list stands for the variable's fill value, and
// short data lists are padded with it.
package cdl
