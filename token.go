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

// A TokenKind classifies a CDL lexeme.
type TokenKind int

const (
	EOF TokenKind = iota
	LBrace
	RBrace
	LParen
	RParen
	Equals
	Semi
	Comma
	Colon
	Netcdf      // the opening 'netcdf NAME'; Token.Text holds the de-escaped name
	Dimensions  // 'dimensions:'
	Variables   // 'variables:'
	Data        // 'data:'
	TypeKeyword // byte/char/short/int/float/double (and synonyms); Token.Type holds the type
	Unlimited
	Ident
	FillMark // the '_' placeholder
	Const    // a typed constant; Token.Value holds the decoded value
)

var kindNames = map[TokenKind]string{
	EOF:         "end of input",
	LBrace:      "'{'",
	RBrace:      "'}'",
	LParen:      "'('",
	RParen:      "')'",
	Equals:      "'='",
	Semi:        "';'",
	Comma:       "','",
	Colon:       "':'",
	Netcdf:      "netcdf",
	Dimensions:  "dimensions:",
	Variables:   "variables:",
	Data:        "data:",
	TypeKeyword: "type keyword",
	Unlimited:   "unlimited",
	Ident:       "identifier",
	FillMark:    "fill placeholder",
	Const:       "constant",
}

func (k TokenKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("<kind %d>", int(k))
}

// A Token is one lexeme of CDL input. Every token records the 1-based source
// line it started on and its byte offset in the source, for diagnostics.
type Token struct {
	Kind  TokenKind
	Text  string   // raw lexeme; the de-escaped dataset name for Netcdf
	Value Value    // decoded payload for Const tokens
	Type  DataType // element type for TypeKeyword tokens
	Line  int
	Pos   int
}

func (t Token) String() string {
	switch t.Kind {
	case Const:
		return fmt.Sprintf("constant %s", t.Value)
	case Ident:
		return fmt.Sprintf("identifier %q", t.Text)
	case TypeKeyword:
		return fmt.Sprintf("type keyword %q", t.Text)
	case Netcdf:
		return fmt.Sprintf("netcdf %q", t.Text)
	}
	return t.Kind.String()
}

// The netCDF-3 reserved words. Keyword dispatch is a static lookup on the
// lowercased lexeme; there is no mutable keyword state.
var typeKeywords = map[string]DataType{
	"byte":    Byte,
	"char":    Char,
	"short":   Short,
	"int":     Int,
	"integer": Int,
	"long":    Int,
	"float":   Float,
	"real":    Float,
	"double":  Double,
}

var sectionKeywords = map[string]TokenKind{
	"dimensions": Dimensions,
	"variables":  Variables,
	"data":       Data,
}

// The spellings of the dataset keyword accepted on the opening line.
var netcdfSpellings = map[string]bool{
	"netcdf": true,
	"NETCDF": true,
	"netCDF": true,
}
