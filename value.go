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
	"fmt"
	"strconv"
)

// A DataType identifies one of the classic netCDF element types, plus the
// two lexical-only types String (a double-quoted constant, stored as CHAR
// data in the sink) and Fill (the '_' placeholder in a data list).
type DataType int

const (
	Byte DataType = iota + 1
	Char
	Short
	Int
	Float
	Double
	String
	Fill
)

func (t DataType) String() string {
	switch t {
	case Byte:
		return "byte"
	case Char:
		return "char"
	case Short:
		return "short"
	case Int:
		return "int"
	case Float:
		return "float"
	case Double:
		return "double"
	case String:
		return "string"
	case Fill:
		return "_"
	}
	return fmt.Sprintf("<%d>", int(t))
}

// Default fill values for the classic netCDF data types, as defined in the
// netcdf.h include file.
const (
	FillByte   = int8(-127)
	FillChar   = byte(0)
	FillShort  = int16(-32767)
	FillInt    = int32(-2147483647)
	FillFloat  = float32(9.9692099683868690e+36)
	FillDouble = float64(9.9692099683868690e+36)
)

// A Value is a typed CDL constant. The type is inferred from the constant's
// lexical shape by the tokenizer, never declared; downstream code switches
// on Type rather than probing the payload.
type Value struct {
	Type DataType
	i    int64   // Byte, Short and Int payloads
	f    float64 // Float and Double payloads
	s    string  // Char and String payloads
}

func byteVal(v int8) Value      { return Value{Type: Byte, i: int64(v)} }
func shortVal(v int16) Value    { return Value{Type: Short, i: int64(v)} }
func intVal(v int32) Value      { return Value{Type: Int, i: int64(v)} }
func floatVal(v float32) Value  { return Value{Type: Float, f: float64(v)} }
func doubleVal(v float64) Value { return Value{Type: Double, f: v} }
func stringVal(v string) Value  { return Value{Type: String, s: v} }
func fillVal() Value            { return Value{Type: Fill} }

// Int64 returns the payload of an integer-typed value.
func (v Value) Int64() int64 { return v.i }

// Float64 returns the payload of any numeric value as a float64.
func (v Value) Float64() float64 {
	switch v.Type {
	case Byte, Short, Int:
		return float64(v.i)
	}
	return v.f
}

// Text returns the payload of a Char or String value.
func (v Value) Text() string { return v.s }

func (v Value) isNumeric() bool {
	switch v.Type {
	case Byte, Short, Int, Float, Double:
		return true
	}
	return false
}

func (v Value) isText() bool { return v.Type == Char || v.Type == String }

// number returns the numeric payload, or an error for text-valued and
// placeholder constants.
func (v Value) number() (float64, error) {
	if !v.isNumeric() {
		return 0, fmt.Errorf("%s constant where a numeric value is required", v.Type)
	}
	return v.Float64(), nil
}

func (v Value) String() string {
	switch v.Type {
	case Byte, Short, Int:
		return strconv.FormatInt(v.i, 10) + v.Type.String()[:1]
	case Float:
		return strconv.FormatFloat(v.f, 'g', -1, 32) + "f"
	case Double:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case Char, String:
		return strconv.Quote(v.s)
	case Fill:
		return "_"
	}
	return "<invalid>"
}

// numeric promotion order used when inferring the element type of an
// attribute value list.
func rank(t DataType) int {
	switch t {
	case Byte:
		return 1
	case Short:
		return 2
	case Int:
		return 3
	case Float:
		return 4
	case Double:
		return 5
	}
	return 0
}

// nativeValues converts a constant list to one of the sink value types
// ([]int8, string, []int16, []int32, []float32 or []float64), inferring the
// element type by numeric promotion across the list. Multiple string
// constants are concatenated, matching how a classic-format attribute can
// hold only one character sequence.
func nativeValues(vals []Value) (interface{}, DataType, error) {
	if len(vals) == 0 {
		return nil, 0, fmt.Errorf("empty constant list")
	}
	text := false
	t := vals[0].Type
	for _, v := range vals {
		if v.isText() {
			text = true
			continue
		}
		if !v.isNumeric() {
			return nil, 0, fmt.Errorf("%s constant is not a valid attribute value", v.Type)
		}
		if rank(v.Type) > rank(t) {
			t = v.Type
		}
	}
	if text {
		s := ""
		for _, v := range vals {
			if !v.isText() {
				return nil, 0, fmt.Errorf("cannot mix string and numeric constants in one value list")
			}
			s += v.s
		}
		return s, Char, nil
	}
	elems := make([]float64, len(vals))
	for i, v := range vals {
		elems[i] = v.Float64()
	}
	return nativeFromFloats(t, elems), t, nil
}

// nativeFromFloats converts a staged float64 buffer to the typed slice for
// the given element type. Integer targets truncate toward zero.
func nativeFromFloats(t DataType, elems []float64) interface{} {
	switch t {
	case Byte:
		r := make([]int8, len(elems))
		for i, e := range elems {
			r[i] = int8(int64(e))
		}
		return r
	case Short:
		r := make([]int16, len(elems))
		for i, e := range elems {
			r[i] = int16(int64(e))
		}
		return r
	case Int:
		r := make([]int32, len(elems))
		for i, e := range elems {
			r[i] = int32(int64(e))
		}
		return r
	case Float:
		r := make([]float32, len(elems))
		for i, e := range elems {
			r[i] = float32(e)
		}
		return r
	case Double:
		r := make([]float64, len(elems))
		copy(r, elems)
		return r
	}
	return nil
}

// coerceValue converts a constant to the given element type. It is used for
// the special _FillValue attribute, whose value always takes on its owning
// variable's type.
func coerceValue(v Value, t DataType) (Value, error) {
	if v.Type == t {
		return v, nil
	}
	if t == Char {
		if v.isText() {
			return Value{Type: Char, s: v.s}, nil
		}
		return Value{}, fmt.Errorf("cannot convert %s constant to char", v.Type)
	}
	n, err := v.number()
	if err != nil {
		return Value{}, err
	}
	switch t {
	case Byte:
		return byteVal(int8(int64(n))), nil
	case Short:
		return shortVal(int16(int64(n))), nil
	case Int:
		return intVal(int32(int64(n))), nil
	case Float:
		return floatVal(float32(n)), nil
	case Double:
		return doubleVal(n), nil
	}
	return Value{}, fmt.Errorf("cannot convert %s constant to %s", v.Type, t)
}

// defaultFill returns the built-in fill value for an element type.
func defaultFill(t DataType) Value {
	switch t {
	case Byte:
		return byteVal(FillByte)
	case Char:
		return Value{Type: Char, s: string([]byte{FillChar})}
	case Short:
		return shortVal(FillShort)
	case Int:
		return intVal(FillInt)
	case Float:
		return floatVal(FillFloat)
	case Double:
		return doubleVal(FillDouble)
	}
	return Value{}
}
