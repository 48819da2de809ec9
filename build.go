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
	"github.com/sirupsen/logrus"
)

// dimension is one declared dimension. A record dimension has length 0 until
// the first data write fixes the record count.
type dimension struct {
	name   string
	length int
	record bool
}

// variable is one declared variable together with the bookkeeping the data
// layout engine needs: the element count in value units, the per-record
// element count for record variables, and the fill values named by its
// attributes.
type variable struct {
	name  string
	dtype DataType
	dims  []*dimension

	// varLen is the total number of value units the variable holds. For
	// character variables a value unit is one row of the last dimension,
	// since each string constant packs to that width. Record variables
	// leave varLen unset; it is inferred on the first write.
	varLen int
	// recLen is the number of value units in one record.
	recLen int
	// width is the character-packing width, 1 for numeric variables.
	width  int
	record bool

	fill    *Value // the _FillValue attribute, coerced to dtype
	missing *Value // the missing_value attribute

	atts map[string]bool
}

// builder accumulates dataset structure in declaration order and forwards it
// to the sink. It owns the cross-declaration checks: duplicate names, the
// single-record-dimension rule, and the record-dimension-first rule.
type builder struct {
	sink Sink
	log  *logrus.Logger

	dims       map[string]*dimension
	vars       map[string]*variable
	recordDim  *dimension
	globalAtts map[string]bool
}

func newBuilder(sink Sink, log *logrus.Logger) *builder {
	return &builder{
		sink:       sink,
		log:        log,
		dims:       make(map[string]*dimension),
		vars:       make(map[string]*variable),
		globalAtts: make(map[string]bool),
	}
}

func (b *builder) addDimension(name string, length int, record bool) error {
	if _, ok := b.dims[name]; ok {
		return contentErrf("Duplicate declaration for dimension '%s'.", name)
	}
	if record {
		if b.recordDim != nil {
			return contentErrf("Only one UNLIMITED dimension is allowed.")
		}
	} else if length <= 0 {
		return contentErrf("dimension %s must have positive length, got %d", name, length)
	}
	d := &dimension{name: name, length: length, record: record}
	b.dims[name] = d
	if record {
		b.recordDim = d
	}
	return b.sink.AddDimension(name, length)
}

func (b *builder) addVariable(name string, t DataType, dimNames []string) error {
	if _, ok := b.vars[name]; ok {
		return contentErrf("Duplicate declaration for variable '%s'.", name)
	}
	v := &variable{name: name, dtype: t, width: 1, atts: make(map[string]bool)}
	for i, dn := range dimNames {
		d, ok := b.dims[dn]
		if !ok {
			return contentErrf("Dimension '%s' of variable '%s' is not defined.", dn, name)
		}
		if d.record {
			if i != 0 {
				return contentErrf("Unlimited dimension must be first in the dimension list of variable '%s'.", name)
			}
			v.record = true
		}
		v.dims = append(v.dims, d)
	}
	if t == Char && len(v.dims) > 0 {
		last := v.dims[len(v.dims)-1]
		if !last.record {
			v.width = last.length
		}
	}
	// recLen counts value units in one record: the product of the
	// non-record dimension lengths, discounting the packing width.
	v.recLen = 1
	for _, d := range v.dims {
		if !d.record {
			v.recLen *= d.length
		}
	}
	v.recLen /= v.width
	if !v.record {
		v.varLen = v.recLen
	}
	b.vars[name] = v
	return b.sink.AddVariable(name, t, dimNames)
}

// addAttribute attaches an attribute. varName is empty for a global
// attribute. The _FillValue and missing_value attributes are additionally
// remembered as the owning variable's fill values for the layout engine.
func (b *builder) addAttribute(varName, attName string, vals []Value) error {
	var v *variable
	if varName != "" {
		var ok bool
		v, ok = b.vars[varName]
		if !ok {
			return contentErrf("Variable %s is not defined or reference precedes definition.", varName)
		}
	}
	if len(vals) == 0 {
		return contentErrf("attribute %s has no values", attName)
	}
	atts := b.globalAtts
	if v != nil {
		atts = v.atts
	}
	if atts[attName] {
		if varName == "" {
			return contentErrf("Duplicate declaration for global attribute '%s'.", attName)
		}
		return contentErrf("Duplicate declaration for attribute '%s' of variable '%s'.", attName, varName)
	}
	atts[attName] = true

	if v != nil && attName == "_FillValue" {
		cv, err := coerceValue(vals[0], v.dtype)
		if err != nil {
			return contentErrf("_FillValue for variable %s: %s", varName, err)
		}
		v.fill = &cv
		if v.dtype == Char {
			return b.sink.AddAttribute(varName, attName, cv.Text())
		}
		return b.sink.AddAttribute(varName, attName, nativeFromFloats(v.dtype, []float64{cv.Float64()}))
	}
	if v != nil && attName == "missing_value" && vals[0].isNumeric() {
		mv := vals[0]
		v.missing = &mv
	}

	native, _, err := nativeValues(vals)
	if err != nil {
		return contentErrf("attribute %s of variable %s: %s", attName, varName, err)
	}
	return b.sink.AddAttribute(varName, attName, native)
}

func (b *builder) lookupVariable(name string) (*variable, error) {
	v, ok := b.vars[name]
	if !ok {
		return nil, contentErrf("Variable %s is not defined or reference precedes definition.", name)
	}
	return v, nil
}

// writeData lays out vals for variable name and forwards the result to the
// sink.
func (b *builder) writeData(name string, vals []Value) error {
	v, err := b.lookupVariable(name)
	if err != nil {
		return err
	}
	native, err := b.layoutVarData(v, vals)
	if err != nil {
		return err
	}
	return b.sink.WriteData(name, native)
}
