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

package ncf

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ctessum/cdf"

	"github.com/spatialmodel/cdl"
)

const testDataset = `
netcdf trip {
dimensions:
	time = unlimited;
	x = 2;
	len = 4;
variables:
	int v(time, x);
		v:_FillValue = -9;
	float f(x);
	char name(x, len);
	short s;
	byte b(x);
	:title = "round trip";
data:
	v = 1, 2, 3, 4;
	name = "ab", "cdef";
	s = 3s;
	b = 'a', -2b;
}`

// read pulls n elements of variable v spanning the index range begin..end
// (inclusive) out of the file.
func read(t *testing.T, cf *cdf.File, v string, begin, end []int, n int) interface{} {
	t.Helper()
	r := cf.Reader(v, begin, end)
	if r == nil {
		t.Fatalf("no variable %s", v)
	}
	buf := r.Zero(n)
	if _, err := r.Read(buf); err != nil {
		t.Fatalf("reading %s: %v", v, err)
	}
	return buf
}

func TestWriteDataset(t *testing.T) {
	dir, err := ioutil.TempDir("", "ncf")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "trip.nc")

	p := cdl.NewParser()
	p.NewSink = New
	p.OutputFile = path
	if err := p.ParseText(testDataset); err != nil {
		t.Fatal(err)
	}

	ff, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer ff.Close()
	cf, err := cdf.Open(ff)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("structure", func(t *testing.T) {
		if !cf.Header.IsRecordVariable("v") {
			t.Error("v should be a record variable")
		}
		if got := cf.Header.Lengths("v"); !reflect.DeepEqual(got, []int{0, 2}) {
			t.Errorf("lengths of v: got %v, want [0 2]", got)
		}
		fi, err := ff.Stat()
		if err != nil {
			t.Fatal(err)
		}
		if got := cf.Header.NumRecs(fi.Size()); got != 2 {
			t.Errorf("record count: got %d, want 2", got)
		}
	})

	t.Run("attributes", func(t *testing.T) {
		if got := cf.Header.GetAttribute("", "title"); got != "round trip" {
			t.Errorf("title: got %v", got)
		}
		if got := cf.Header.GetAttribute("v", "_FillValue"); !reflect.DeepEqual(got, []int32{-9}) {
			t.Errorf("v:_FillValue: got %v (%T)", got, got)
		}
	})

	t.Run("record data", func(t *testing.T) {
		got := read(t, cf, "v", nil, []int{1, 1}, 4)
		if !reflect.DeepEqual(got, []int32{1, 2, 3, 4}) {
			t.Errorf("v: got %v", got)
		}
	})

	t.Run("character data", func(t *testing.T) {
		got := read(t, cf, "name", nil, nil, 8).([]uint8)
		if string(got) != "ab\x00\x00cdef" {
			t.Errorf("name: got %q", string(got))
		}
	})

	t.Run("scalar data", func(t *testing.T) {
		got := read(t, cf, "s", nil, nil, 1)
		if !reflect.DeepEqual(got, []int16{3}) {
			t.Errorf("s: got %v", got)
		}
	})

	t.Run("byte data", func(t *testing.T) {
		got := read(t, cf, "b", nil, nil, 2).([]uint8)
		if got[0] != 'a' || int8(got[1]) != -2 {
			t.Errorf("b: got %v", got)
		}
	})

	t.Run("unwritten variable holds fill values", func(t *testing.T) {
		got := read(t, cf, "f", nil, nil, 2)
		want := []float32{cdl.FillFloat, cdl.FillFloat}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("f: got %v, want %v", got, want)
		}
	})
}

func TestHeaderOnlyDataset(t *testing.T) {
	dir, err := ioutil.TempDir("", "ncf")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "empty.nc")

	p := cdl.NewParser()
	p.NewSink = New
	p.OutputFile = path
	if err := p.ParseText(`netcdf empty {
dimensions: x = 3;
variables: double d(x);
:note = "no data section";
}`); err != nil {
		t.Fatal(err)
	}

	ff, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer ff.Close()
	cf, err := cdf.Open(ff)
	if err != nil {
		t.Fatal(err)
	}
	if got := cf.Header.GetAttribute("", "note"); got != "no data section" {
		t.Errorf("note: got %v", got)
	}
	got := read(t, cf, "d", nil, nil, 3)
	want := []float64{cdl.FillDouble, cdl.FillDouble, cdl.FillDouble}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("d: got %v, want %v", got, want)
	}
}

func TestRejectedFormats(t *testing.T) {
	for _, f := range []cdl.Format{cdl.NetCDF4, cdl.NetCDF4Classic} {
		if _, err := New("out.nc", f); err == nil {
			t.Errorf("format %s: expected an error", f)
		}
	}
}
