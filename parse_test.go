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

import (
	"reflect"
	"strings"
	"testing"
)

// testSink records everything the parser delivers.
type testSink struct {
	path   string
	dims   map[string]int
	vars   map[string][]string
	types  map[string]DataType
	atts   map[string]interface{} // keyed "var:att", ":att" for globals
	data   map[string]interface{}
	closed bool
}

func (s *testSink) AddDimension(name string, length int) error {
	s.dims[name] = length
	return nil
}

func (s *testSink) AddVariable(name string, t DataType, dims []string) error {
	s.vars[name] = dims
	s.types[name] = t
	return nil
}

func (s *testSink) AddAttribute(v, name string, val interface{}) error {
	s.atts[v+":"+name] = val
	return nil
}

func (s *testSink) WriteData(name string, vals interface{}) error {
	s.data[name] = vals
	return nil
}

func (s *testSink) Close() error {
	s.closed = true
	return nil
}

// testParser returns a parser delivering to an in-memory sink.
func testParser() (*Parser, *testSink) {
	s := &testSink{
		dims:  make(map[string]int),
		vars:  make(map[string][]string),
		types: make(map[string]DataType),
		atts:  make(map[string]interface{}),
		data:  make(map[string]interface{}),
	}
	p := NewParser()
	p.NewSink = func(path string, format Format) (Sink, error) {
		s.path = path
		return s, nil
	}
	return p, s
}

func parseText(t *testing.T, src string) *testSink {
	t.Helper()
	p, s := testParser()
	if err := p.ParseText(src); err != nil {
		t.Fatalf("parsing failed: %v", err)
	}
	if !s.closed {
		t.Fatal("sink was not closed")
	}
	return s
}

func TestParseDataset(t *testing.T) {
	s := parseText(t, `
netcdf example { // a test dataset
dimensions:
	time = unlimited;
	x = 2, len = 3;
variables:
	float t(time, x);
		t:units = "seconds";
		t:valid_range = 0f, 100f;
	int scale;
	char tag(len);
	:title = "example dataset";
data:
	t = 0.5, 1.5, 2.5, 3.5;
	scale = 7;
	tag = "ab";
}`)
	if s.path != "example.nc" {
		t.Errorf("output path: got %q, want %q", s.path, "example.nc")
	}
	wantDims := map[string]int{"time": 0, "x": 2, "len": 3}
	if !reflect.DeepEqual(s.dims, wantDims) {
		t.Errorf("dimensions: got %v, want %v", s.dims, wantDims)
	}
	if !reflect.DeepEqual(s.vars["t"], []string{"time", "x"}) || s.types["t"] != Float {
		t.Errorf("variable t: got %v %v", s.types["t"], s.vars["t"])
	}
	if len(s.vars["scale"]) != 0 || s.types["scale"] != Int {
		t.Errorf("variable scale: got %v %v", s.types["scale"], s.vars["scale"])
	}
	if got := s.atts["t:units"]; got != "seconds" {
		t.Errorf("t:units: got %v", got)
	}
	if got := s.atts["t:valid_range"]; !reflect.DeepEqual(got, []float32{0, 100}) {
		t.Errorf("t:valid_range: got %v", got)
	}
	if got := s.atts[":title"]; got != "example dataset" {
		t.Errorf("global title: got %v", got)
	}
	if got := s.data["t"]; !reflect.DeepEqual(got, []float32{0.5, 1.5, 2.5, 3.5}) {
		t.Errorf("data for t: got %v", got)
	}
	if got := s.data["scale"]; !reflect.DeepEqual(got, []int32{7}) {
		t.Errorf("data for scale: got %v", got)
	}
	if got := s.data["tag"]; got != "ab\x00" {
		t.Errorf("data for tag: got %q, want %q", got, "ab\x00")
	}
}

func TestGlobalAttributesWithoutVariablesKeyword(t *testing.T) {
	s := parseText(t, `netcdf g {
:history = "created today";
:version = 2;
}`)
	if got := s.atts[":history"]; got != "created today" {
		t.Errorf("history: got %v", got)
	}
	if got := s.atts[":version"]; !reflect.DeepEqual(got, []int32{2}) {
		t.Errorf("version: got %v", got)
	}
}

func TestScalarIgnoresExtraValues(t *testing.T) {
	s := parseText(t, `netcdf s {
variables:
	int v;
data:
	v = 7, 8, 9;
}`)
	if got := s.data["v"]; !reflect.DeepEqual(got, []int32{7}) {
		t.Errorf("got %v, want [7]", got)
	}
}

func TestFillPadding(t *testing.T) {
	t.Run("default fill", func(t *testing.T) {
		s := parseText(t, `netcdf f {
dimensions: x = 3;
variables: int v(x); short w(x); double d(x);
data: v = 5; w = 5s; d = 5.0;
}`)
		if got := s.data["v"]; !reflect.DeepEqual(got, []int32{5, FillInt, FillInt}) {
			t.Errorf("int: got %v", got)
		}
		if got := s.data["w"]; !reflect.DeepEqual(got, []int16{5, FillShort, FillShort}) {
			t.Errorf("short: got %v", got)
		}
		if got := s.data["d"]; !reflect.DeepEqual(got, []float64{5, FillDouble, FillDouble}) {
			t.Errorf("double: got %v", got)
		}
	})

	t.Run("declared _FillValue", func(t *testing.T) {
		s := parseText(t, `netcdf f {
dimensions: x = 3;
variables:
	int v(x);
		v:_FillValue = -9;
data:
	v = 5, _;
}`)
		if got := s.data["v"]; !reflect.DeepEqual(got, []int32{5, -9, -9}) {
			t.Errorf("got %v, want [5 -9 -9]", got)
		}
	})

	t.Run("missing_value", func(t *testing.T) {
		s := parseText(t, `netcdf f {
dimensions: x = 2;
variables:
	float v(x);
		v:missing_value = -1f;
data:
	v = _;
}`)
		if got := s.data["v"]; !reflect.DeepEqual(got, []float32{-1, -1}) {
			t.Errorf("got %v, want [-1 -1]", got)
		}
	})
}

// The _FillValue attribute takes on its owning variable's type no matter how
// its constant was written.
func TestFillValueCoercion(t *testing.T) {
	s := parseText(t, `netcdf f {
variables:
	short v;
		v:_FillValue = -9;
}`)
	if got := s.atts["v:_FillValue"]; !reflect.DeepEqual(got, []int16{-9}) {
		t.Errorf("got %v (%T), want []int16{-9}", got, got)
	}
}

func TestRecordVariable(t *testing.T) {
	s := parseText(t, `netcdf r {
dimensions:
	time = unlimited;
	x = 2;
variables:
	int v(time, x);
data:
	v = 1, 2, 3, 4, 5, 6;
}`)
	if got := s.data["v"]; !reflect.DeepEqual(got, []int32{1, 2, 3, 4, 5, 6}) {
		t.Errorf("got %v", got)
	}
}

func TestRecordVariablePadding(t *testing.T) {
	// The first record write fixes the unlimited dimension's length, so a
	// shorter data list for another record variable is padded with fill
	// values to the current record count.
	s := parseText(t, `netcdf r {
dimensions:
	time = unlimited;
	x = 4;
variables:
	int u(time, x);
	int v(time, x);
data:
	u = 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12;
	v = 1, 2, 3, 4, 5, 6;
}`)
	want := []int32{1, 2, 3, 4, 5, 6,
		FillInt, FillInt, FillInt, FillInt, FillInt, FillInt}
	if got := s.data["v"]; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestRecordCountGrowth(t *testing.T) {
	// A longer data list grows the record count; later writes pad to the
	// grown count.
	s := parseText(t, `netcdf r {
dimensions:
	time = unlimited;
	x = 2;
variables:
	int u(time, x);
	int v(time, x);
	int w(time, x);
data:
	u = 1, 2;
	v = 1, 2, 3, 4;
	w = 5;
}`)
	if got := s.data["v"]; !reflect.DeepEqual(got, []int32{1, 2, 3, 4}) {
		t.Errorf("v: got %v", got)
	}
	want := []int32{5, FillInt, FillInt, FillInt}
	if got := s.data["w"]; !reflect.DeepEqual(got, want) {
		t.Errorf("w: got %v, want %v", got, want)
	}
}

func TestRecordLengthMismatch(t *testing.T) {
	p, _ := testParser()
	err := p.ParseText(`netcdf r {
dimensions: time = unlimited; x = 2;
variables: int v(time, x);
data: v = 1, 2, 3;
}`)
	if err == nil {
		t.Fatal("expected an error")
	}
	if _, ok := err.(*ContentError); !ok {
		t.Fatalf("got %T (%v), want *ContentError", err, err)
	}
	if want := "Record length 2 is not a factor of variable length 3"; !strings.Contains(err.Error(), want) {
		t.Errorf("got %q, want it to contain %q", err.Error(), want)
	}
}

func TestCharPacking(t *testing.T) {
	// Each string occupies one row of the last dimension, padded with NUL
	// and truncated at the row width.
	s := parseText(t, `netcdf c {
dimensions: n = 3, len = 4;
variables: char name(n, len);
data: name = "ab", "cdefgh";
}`)
	want := "ab\x00\x00cdef\x00\x00\x00\x00"
	if got := s.data["name"]; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCharFillPlaceholderIsVerbatim(t *testing.T) {
	s := parseText(t, `netcdf c {
dimensions: n = 2, len = 3;
variables: char name(n, len);
data: name = _, "ab";
}`)
	want := "_\x00\x00ab\x00"
	if got := s.data["name"]; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestEscapedVariableAttribute(t *testing.T) {
	// Attribute assignments resolve the owner by its de-escaped name,
	// the same form variable declarations register.
	s := parseText(t, `netcdf e {
variables:
	int a\+b;
	a\+b:units = "m";
}`)
	if _, ok := s.vars["a+b"]; !ok {
		t.Fatalf("variable a+b not declared: %v", s.vars)
	}
	if got := s.atts["a+b:units"]; !reflect.DeepEqual(got, "m") {
		t.Errorf("got %v, want %q", got, "m")
	}
}

func TestDataSectionAttribute(t *testing.T) {
	s := parseText(t, `netcdf d {
variables:
	int v;
data:
	v:note = "set late";
	v = 1;
}`)
	if got := s.atts["v:note"]; got != "set late" {
		t.Errorf("got %v", got)
	}
}

func TestContentErrors(t *testing.T) {
	tests := []struct {
		name, src, want string
	}{
		{
			"duplicate dimension",
			`netcdf e { dimensions: x = 2; x = 3; }`,
			"Duplicate declaration for dimension 'x'.",
		},
		{
			"two record dimensions",
			`netcdf e { dimensions: t = unlimited; u = unlimited; }`,
			"Only one UNLIMITED dimension is allowed.",
		},
		{
			"record dimension not first",
			`netcdf e {
dimensions: t = unlimited; x = 2;
variables: int v(x, t);
}`,
			"Unlimited dimension must be first",
		},
		{
			"undefined dimension",
			`netcdf e { variables: int v(nope); }`,
			"Dimension 'nope' of variable 'v' is not defined.",
		},
		{
			"undefined variable in data",
			`netcdf e { data: v = 1; }`,
			"Variable v is not defined or reference precedes definition.",
		},
		{
			"attribute before variable",
			`netcdf e { variables: v:units = "m"; }`,
			"Variable v is not defined or reference precedes definition.",
		},
		{
			"too many values",
			`netcdf e {
dimensions: x = 2;
variables: int v(x);
data: v = 1, 2, 3;
}`,
			"Too many values for variable 'v'",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			p, _ := testParser()
			err := p.ParseText(test.src)
			if err == nil {
				t.Fatal("expected an error")
			}
			if _, ok := err.(*ContentError); !ok {
				t.Fatalf("got %T (%v), want *ContentError", err, err)
			}
			if !strings.Contains(err.Error(), test.want) {
				t.Errorf("got %q, want it to contain %q", err.Error(), test.want)
			}
		})
	}
}

func TestSyntaxErrors(t *testing.T) {
	tests := []struct {
		name, src string
		line      int
	}{
		{"missing netcdf keyword", `{ }`, 1},
		{"missing brace", `netcdf e dimensions:`, 1},
		{"fill in attribute", "netcdf e {\nvariables:\nint v;\nv:a = _;\n}", 4},
		{"trailing garbage", "netcdf e {\n}\nextra", 3},
		{"missing semicolon", "netcdf e {\ndimensions:\nx = 2\n}", 4},
		{"short dimension length", "netcdf e {\ndimensions:\nx = 5s;\n}", 3},
		{"float dimension length", "netcdf e {\ndimensions:\nx = 4f;\n}", 3},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			p, _ := testParser()
			err := p.ParseText(test.src)
			se, ok := err.(*SyntaxError)
			if !ok {
				t.Fatalf("got %T (%v), want *SyntaxError", err, err)
			}
			if se.Line != test.line {
				t.Errorf("error on line %d, want line %d: %v", se.Line, test.line, se)
			}
		})
	}
}

func TestOutputPath(t *testing.T) {
	p, s := testParser()
	p.OutputFile = "custom/out.nc"
	if err := p.ParseText(`netcdf ignored { }`); err != nil {
		t.Fatal(err)
	}
	if s.path != "custom/out.nc" || p.OutputPath() != "custom/out.nc" {
		t.Errorf("got %q and %q, want custom/out.nc", s.path, p.OutputPath())
	}
}

func TestDefaultOutputName(t *testing.T) {
	p, s := testParser()
	if err := p.ParseText(`netcdf sample\.data { }`); err != nil {
		t.Fatal(err)
	}
	if s.path != "sample.data.nc" {
		t.Errorf("got %q, want sample.data.nc", s.path)
	}
}

func TestDiagnosticsSurvive(t *testing.T) {
	p, _ := testParser()
	if err := p.ParseText("netcdf d { # }"); err != nil {
		t.Fatal(err)
	}
	if len(p.Diagnostics) != 1 {
		t.Fatalf("got %d diagnostics, want 1: %v", len(p.Diagnostics), p.Diagnostics)
	}
}
