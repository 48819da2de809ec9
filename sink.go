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

package cdl

import "fmt"

// Format selects the on-disk flavor of the generated dataset.
type Format int

const (
	// NetCDF3Classic is the classic 32-bit-offset format.
	NetCDF3Classic Format = iota + 1
	// NetCDF3_64Bit is the classic format with 64-bit offsets.
	NetCDF3_64Bit
	// NetCDF4 and NetCDF4Classic are HDF5-backed formats. They are
	// recognized so that callers get a clear error rather than a file in
	// the wrong format.
	NetCDF4
	NetCDF4Classic
)

var formatNames = map[Format]string{
	NetCDF3Classic: "netcdf3_classic",
	NetCDF3_64Bit:  "netcdf3_64bit",
	NetCDF4:        "netcdf4",
	NetCDF4Classic: "netcdf4_classic",
}

func (f Format) String() string {
	if s, ok := formatNames[f]; ok {
		return s
	}
	return fmt.Sprintf("<format %d>", int(f))
}

// ParseFormat converts a format name from the command line or a
// configuration file into a Format.
func ParseFormat(s string) (Format, error) {
	for f, name := range formatNames {
		if s == name {
			return f, nil
		}
	}
	return 0, fmt.Errorf("cdl: unknown dataset format %q", s)
}

// A Sink receives the parsed contents of a CDL dataset in declaration order:
// dimensions first, then variables and attributes, then variable data.
// Close is called exactly once, whether or not parsing succeeded, and must
// finalize the output when the dataset was complete.
type Sink interface {
	// AddDimension declares a dimension. A length of 0 marks the record
	// (unlimited) dimension.
	AddDimension(name string, length int) error

	// AddVariable declares a variable over previously declared dimensions.
	// An empty dims slice declares a scalar.
	AddVariable(name string, t DataType, dims []string) error

	// AddAttribute attaches an attribute to variable v, or to the dataset
	// itself when v is empty. val is one of int8, int16, int32, float32,
	// float64, []int8, []int16, []int32, []float32, []float64 or string.
	AddAttribute(v, name string, val interface{}) error

	// WriteData stores a variable's data. vals holds the variable's
	// elements as produced by the layout engine: a numeric slice for
	// numeric variables or a string for character variables.
	WriteData(name string, vals interface{}) error

	Close() error
}

// A SinkFactory opens a Sink writing the dataset to path.
type SinkFactory func(path string, format Format) (Sink, error)
