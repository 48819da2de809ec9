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

package cdlutil

import (
	"fmt"
	"io/ioutil"

	"github.com/spf13/cobra"

	"github.com/spatialmodel/cdl"
)

// printTokens scans path and prints its token stream, one token per line.
// Lexical noise is reported after the listing rather than interleaved.
func printTokens(cmd *cobra.Command, path string) error {
	src, err := ioutil.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cdl: reading %s: %v", path, err)
	}
	toks, diags, err := cdl.Tokens(string(src))
	for _, tok := range toks {
		cmd.Printf("%4d:%-5d %s\n", tok.Line, tok.Pos, tok)
	}
	for _, d := range diags {
		cmd.Printf("skipped: %s\n", d)
	}
	return err
}
