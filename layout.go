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
	"strings"

	"github.com/ctessum/sparse"
)

// fillFor chooses the value used to pad a short data list and to substitute
// for the '_' placeholder: the variable's own _FillValue if it has one, then
// its missing_value, then the type's default fill.
func (v *variable) fillFor() Value {
	if v.fill != nil {
		return *v.fill
	}
	if v.missing != nil {
		return *v.missing
	}
	return defaultFill(v.dtype)
}

// layoutVarData turns the constant list for variable v into the native
// representation the sink stores: a numeric slice of v's element type, or a
// packed string for character variables.
//
// Scalars take the first constant and silently ignore the rest. For record
// variables the first write against the unlimited dimension fixes the record
// count from the list length, which must then be a whole number of records.
// Later record writes are measured against that count: short lists are
// padded with the fill value, longer lists grow the record count. Fixed-size
// variables are padded the same way.
func (b *builder) layoutVarData(v *variable, vals []Value) (interface{}, error) {
	if len(v.dims) == 0 {
		return b.layoutScalar(v, vals)
	}

	varLen := v.varLen
	if v.record {
		varLen = len(vals)
		if n := v.recLen * b.recordDim.length; n > varLen {
			varLen = n
		}
		if v.recLen == 0 || varLen%v.recLen != 0 {
			return nil, contentErrf("Record length %d is not a factor of variable length %d",
				v.recLen, varLen)
		}
		if n := varLen / v.recLen; n > b.recordDim.length {
			b.recordDim.length = n
		}
	} else if len(vals) > varLen {
		return nil, contentErrf("Too many values for variable '%s': %d given, %d allowed.",
			v.name, len(vals), varLen)
	}

	if v.dtype == Char {
		return b.layoutChars(v, vals, varLen)
	}
	return b.layoutNumbers(v, vals, varLen)
}

func (b *builder) layoutScalar(v *variable, vals []Value) (interface{}, error) {
	if len(vals) == 0 {
		return nil, contentErrf("no data given for variable '%s'", v.name)
	}
	val := vals[0]
	if v.dtype == Char {
		s, err := b.charCell(v, val, 1)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	f, err := b.numberCell(v, val)
	if err != nil {
		return nil, err
	}
	return nativeFromFloats(v.dtype, []float64{f}), nil
}

// layoutNumbers stages the elements of a numeric variable in a dense array
// shaped like the variable, then converts to the variable's element type.
func (b *builder) layoutNumbers(v *variable, vals []Value, varLen int) (interface{}, error) {
	shape := make([]int, len(v.dims))
	for i, d := range v.dims {
		shape[i] = d.length
	}
	if v.record {
		shape[0] = varLen / v.recLen
	}
	arr := sparse.ZerosDense(shape...)

	fill := v.fillFor().Float64()
	for i := range arr.Elements {
		if i < len(vals) {
			f, err := b.numberCell(v, vals[i])
			if err != nil {
				return nil, err
			}
			arr.Elements[i] = f
		} else {
			arr.Elements[i] = fill
		}
	}
	return nativeFromFloats(v.dtype, arr.Elements), nil
}

func (b *builder) numberCell(v *variable, val Value) (float64, error) {
	if val.Type == Fill {
		return v.fillFor().Float64(), nil
	}
	f, err := val.number()
	if err != nil {
		return 0, contentErrf("data for variable '%s': %s", v.name, err)
	}
	return f, nil
}

// layoutChars packs the constants of a character variable: each constant
// occupies one row of the variable's last dimension, padded or truncated to
// that width.
func (b *builder) layoutChars(v *variable, vals []Value, varLen int) (interface{}, error) {
	width := v.width
	var sb strings.Builder
	sb.Grow(varLen * width)
	for i := 0; i < varLen; i++ {
		var cell string
		if i < len(vals) {
			var err error
			cell, err = b.charCell(v, vals[i], width)
			if err != nil {
				return nil, err
			}
		} else {
			cell = ""
		}
		sb.WriteString(padChars(cell, width, v.charFill()))
	}
	return sb.String(), nil
}

// charCell renders one constant as cell text. The fill placeholder has no
// character meaning, so it is written verbatim with a warning rather than
// substituted.
func (b *builder) charCell(v *variable, val Value, width int) (string, error) {
	switch {
	case val.Type == Fill:
		b.log.Warnf("cdl: fill placeholder in data for character variable %s is written as the literal string %q",
			v.name, "_")
		return padChars("_", width, v.charFill()), nil
	case val.isText():
		return padChars(val.Text(), width, v.charFill()), nil
	case val.isNumeric():
		return padChars(string([]byte{byte(val.Int64())}), width, v.charFill()), nil
	}
	return "", contentErrf("data for character variable '%s': cannot store %s", v.name, val)
}

func (v *variable) charFill() byte {
	if v.fill != nil && v.fill.Text() != "" {
		return v.fill.Text()[0]
	}
	return FillChar
}

func padChars(s string, width int, fill byte) string {
	if len(s) >= width {
		return s[:width]
	}
	return s + strings.Repeat(string([]byte{fill}), width-len(s))
}
