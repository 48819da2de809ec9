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

// A SyntaxError reports a malformed token stream or a token sequence that
// does not match the CDL grammar. It carries the 1-based source line and the
// byte offset of the offending lexeme. A SyntaxError aborts the parse; there
// is no recovery.
type SyntaxError struct {
	Line int
	Pos  int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("cdl: syntax error at line %d, lexical position %d: %s", e.Line, e.Pos, e.Msg)
}

// A ContentError reports CDL input that is grammatically valid but
// semantically wrong: duplicate names, out-of-range constants, references to
// undeclared dimensions or variables, record-length mismatches, or a sink
// rejection while committing data. Like a SyntaxError it is fatal to the
// current parse.
type ContentError struct {
	Msg string
}

func (e *ContentError) Error() string { return "cdl: " + e.Msg }

func contentErrf(format string, args ...interface{}) *ContentError {
	return &ContentError{Msg: fmt.Sprintf(format, args...)}
}
