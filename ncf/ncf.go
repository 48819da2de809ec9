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

// Package ncf writes parsed CDL datasets to classic netCDF files.
package ncf

import (
	"fmt"
	"os"

	"github.com/ctessum/cdf"

	"github.com/spatialmodel/cdl"
)

// writer stores a dataset in a classic netCDF-3 file. The file header is
// staged while declarations arrive and frozen at the first data write, since
// the on-disk layout cannot change once data is in place. CDL's declaration
// order guarantees all structure is known by then.
type writer struct {
	path string

	dims    []string
	lengths []int

	h     *cdf.Header
	f     *os.File
	cf    *cdf.File
	nrecs int
}

// New opens a sink writing a classic netCDF file at path. The netCDF-4
// formats need an HDF5 backing store and are rejected; 64-bit offsets are
// used automatically when the dataset is too large for the classic layout.
func New(path string, format cdl.Format) (cdl.Sink, error) {
	switch format {
	case cdl.NetCDF3Classic, cdl.NetCDF3_64Bit:
	case cdl.NetCDF4, cdl.NetCDF4Classic:
		return nil, fmt.Errorf("ncf: format %s requires an HDF5 backing store, which is not supported", format)
	default:
		return nil, fmt.Errorf("ncf: unknown dataset format %v", format)
	}
	return &writer{path: path}, nil
}

func (w *writer) header() *cdf.Header {
	if w.h == nil {
		w.h = cdf.NewHeader(w.dims, w.lengths)
	}
	return w.h
}

func (w *writer) AddDimension(name string, length int) error {
	if w.h != nil {
		return fmt.Errorf("ncf: dimension %s declared after variables", name)
	}
	w.dims = append(w.dims, name)
	w.lengths = append(w.lengths, length)
	return nil
}

// sampleFor returns a value of the native type that selects netCDF type t.
// The sample's contents are ignored.
func sampleFor(t cdl.DataType) (interface{}, error) {
	switch t {
	case cdl.Byte:
		return []uint8{}, nil
	case cdl.Char:
		return "", nil
	case cdl.Short:
		return []int16{}, nil
	case cdl.Int:
		return []int32{}, nil
	case cdl.Float:
		return []float32{}, nil
	case cdl.Double:
		return []float64{}, nil
	}
	return nil, fmt.Errorf("ncf: no netCDF representation for %s", t)
}

func (w *writer) AddVariable(name string, t cdl.DataType, dims []string) error {
	if w.cf != nil {
		return fmt.Errorf("ncf: variable %s declared after data was written", name)
	}
	sample, err := sampleFor(t)
	if err != nil {
		return err
	}
	w.header().AddVariable(name, dims, sample)
	return nil
}

func (w *writer) AddAttribute(v, name string, val interface{}) error {
	if w.cf != nil {
		return fmt.Errorf("ncf: attribute %s set after data was written", name)
	}
	w.header().AddAttribute(v, name, toNative(val))
	return nil
}

// toNative converts signed byte data to the unsigned representation the
// netCDF BYTE type is stored as. All other supported types pass through.
func toNative(val interface{}) interface{} {
	if b, ok := val.([]int8); ok {
		u := make([]uint8, len(b))
		for i, e := range b {
			u[i] = uint8(e)
		}
		return u
	}
	return val
}

func elemCount(val interface{}) int {
	switch v := val.(type) {
	case []uint8:
		return len(v)
	case string:
		return len(v)
	case []int16:
		return len(v)
	case []int32:
		return len(v)
	case []float32:
		return len(v)
	case []float64:
		return len(v)
	}
	return 0
}

// create freezes the header and writes it to a new file. Fixed-size
// variables are pre-filled so that the ones the dataset holds no data for
// come out holding their fill values.
func (w *writer) create() error {
	if w.cf != nil {
		return nil
	}
	h := w.header()
	h.Define()
	if errs := h.Check(); len(errs) > 0 {
		return fmt.Errorf("ncf: invalid dataset header for %s: %v", w.path, errs[0])
	}
	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("ncf: creating %s: %v", w.path, err)
	}
	cf, err := cdf.Create(f, h)
	if err != nil {
		f.Close()
		os.Remove(w.path)
		return fmt.Errorf("ncf: writing header of %s: %v", w.path, err)
	}
	w.f = f
	w.cf = cf
	for _, v := range h.Variables() {
		if !h.IsRecordVariable(v) {
			if err := cf.Fill(v); err != nil {
				return fmt.Errorf("ncf: filling variable %s: %v", v, err)
			}
		}
	}
	return nil
}

func (w *writer) WriteData(name string, vals interface{}) error {
	if err := w.create(); err != nil {
		return err
	}
	vals = toNative(vals)
	if w.h.IsRecordVariable(name) {
		per := 1
		for _, l := range w.h.Lengths(name)[1:] {
			per *= l
		}
		nrec := 0
		if per > 0 {
			nrec = elemCount(vals) / per
		}
		// Pre-fill the slabs this write extends the file into, so that
		// other record variables hold fill values in those records.
		for r := w.nrecs; r < nrec; r++ {
			if err := w.cf.FillRecord(r); err != nil {
				return fmt.Errorf("ncf: filling record %d: %v", r, err)
			}
		}
		if nrec > w.nrecs {
			w.nrecs = nrec
		}
	}
	wr := w.cf.Writer(name, nil, nil)
	if wr == nil {
		return fmt.Errorf("ncf: no variable %s in %s", name, w.path)
	}
	if _, err := wr.Write(vals); err != nil {
		return fmt.Errorf("ncf: writing data for variable %s: %v", name, err)
	}
	return nil
}

// Close finalizes the file, creating it first when the dataset held no data.
// The header's record count is stamped for compatibility with readers that
// trust it.
func (w *writer) Close() error {
	if err := w.create(); err != nil {
		return err
	}
	hasRecord := false
	for _, v := range w.h.Variables() {
		if w.h.IsRecordVariable(v) {
			hasRecord = true
			break
		}
	}
	if hasRecord {
		if err := cdf.UpdateNumRecs(w.f); err != nil {
			w.f.Close()
			return fmt.Errorf("ncf: updating record count of %s: %v", w.path, err)
		}
	}
	if err := w.f.Close(); err != nil {
		return fmt.Errorf("ncf: closing %s: %v", w.path, err)
	}
	return nil
}
