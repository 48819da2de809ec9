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
	"io/ioutil"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// A Parser translates CDL text into a dataset delivered to a Sink. The zero
// value is not usable; create parsers with NewParser and set NewSink (or let
// a higher-level package do so) before parsing.
type Parser struct {
	// NewSink opens the Sink receiving the parsed dataset. Must be set
	// before parsing.
	NewSink SinkFactory

	// Format is the dataset format requested from the sink.
	Format Format

	// OutputFile, when non-empty, overrides the output path derived from
	// the dataset name.
	OutputFile string

	// CloseOnCompletion controls whether the sink is closed when parsing
	// finishes. Turn it off to inspect or extend the sink afterward; the
	// caller then owns the Close call.
	CloseOnCompletion bool

	// Log receives warnings about recoverable problems.
	Log *logrus.Logger

	// Diagnostics describes the lexical noise skipped during the most
	// recent parse.
	Diagnostics []Diagnostic

	cdlfile string
	ncfile  string
	sink    Sink
	b       *builder

	lx  *lexer
	tok Token
}

// NewParser returns a Parser with the default configuration: classic
// netCDF-3 output, sink closed on completion, warnings to a standard logger.
func NewParser() *Parser {
	log := logrus.New()
	log.Level = logrus.WarnLevel
	return &Parser{
		Format:            NetCDF3Classic,
		CloseOnCompletion: true,
		Log:               log,
	}
}

// ParseFile parses the CDL file at path. The output dataset is written next
// to the input, named after the dataset, unless OutputFile is set.
func (p *Parser) ParseFile(path string) error {
	src, err := ioutil.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cdl: reading %s: %v", path, err)
	}
	p.cdlfile = path
	return p.parse(string(src))
}

// ParseText parses CDL source held in memory. The output dataset lands in
// the current directory unless OutputFile is set.
func (p *Parser) ParseText(src string) error {
	p.cdlfile = ""
	return p.parse(src)
}

// OutputPath returns the path of the dataset produced by the most recent
// parse.
func (p *Parser) OutputPath() string { return p.ncfile }

// Sink returns the sink of the most recent parse. It is non-nil only when
// CloseOnCompletion is off and parsing reached the dataset header.
func (p *Parser) Sink() Sink { return p.sink }

func (p *Parser) parse(src string) error {
	if p.NewSink == nil {
		return fmt.Errorf("cdl: no sink factory configured")
	}
	if p.Log == nil {
		p.Log = logrus.New()
		p.Log.Level = logrus.WarnLevel
	}
	if p.sink != nil {
		// A sink left open by a previous parse with CloseOnCompletion
		// off. Close it so its file is not left half-written.
		p.sink.Close()
		p.sink = nil
	}
	p.b = nil
	p.ncfile = ""
	p.Diagnostics = nil
	p.lx = newLexer(src, p.Log)

	err := p.parseDataset()
	p.Diagnostics = p.lx.diags

	if p.sink != nil && (p.CloseOnCompletion || err != nil) {
		cerr := p.sink.Close()
		p.sink = nil
		if err == nil && cerr != nil {
			err = fmt.Errorf("cdl: closing %s: %v", p.ncfile, cerr)
		}
	}
	return err
}

func (p *Parser) advance() error {
	tok, err := p.lx.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *Parser) unexpected(want string) error {
	return &SyntaxError{Line: p.tok.Line, Pos: p.tok.Pos,
		Msg: fmt.Sprintf("unexpected %s, expected %s", p.tok, want)}
}

func (p *Parser) expect(k TokenKind) error {
	if p.tok.Kind != k {
		return p.unexpected(k.String())
	}
	return p.advance()
}

// identText returns the current token's text when it can serve as a name,
// with name escapes stripped. Keywords are ordinary names outside their own
// positions, so type keywords and 'unlimited' are accepted here.
func (p *Parser) identText() (string, error) {
	switch p.tok.Kind {
	case Ident, TypeKeyword, Unlimited:
		return deescape(p.tok.Text), nil
	}
	return "", p.unexpected("identifier")
}

func (p *Parser) parseDataset() error {
	if err := p.advance(); err != nil {
		return err
	}
	if p.tok.Kind != Netcdf {
		return p.unexpected("the netcdf keyword")
	}
	name := p.tok.Text
	if err := p.openSink(name); err != nil {
		return err
	}
	if err := p.advance(); err != nil {
		return err
	}
	if err := p.expect(LBrace); err != nil {
		return err
	}

	if p.tok.Kind == Dimensions {
		if err := p.parseDimSection(); err != nil {
			return err
		}
	}
	switch p.tok.Kind {
	case Variables:
		if err := p.advance(); err != nil {
			return err
		}
		if err := p.parseVaDecls(); err != nil {
			return err
		}
	case Colon:
		// Global attributes may appear without the variables keyword.
		if err := p.parseVaDecls(); err != nil {
			return err
		}
	}
	if p.tok.Kind == Data {
		if err := p.parseDataSection(); err != nil {
			return err
		}
	}
	if err := p.expect(RBrace); err != nil {
		return err
	}
	if p.tok.Kind != EOF {
		return p.unexpected("end of input after the dataset body")
	}
	return nil
}

// openSink derives the output path from the dataset name and opens the sink.
// The dataset lands next to the input file, or under OutputFile when set.
func (p *Parser) openSink(name string) error {
	if name == "" {
		return &SyntaxError{Line: 1, Pos: 0, Msg: "a netCDF name is required"}
	}
	if p.OutputFile != "" {
		p.ncfile = p.OutputFile
	} else {
		dir := "."
		if p.cdlfile != "" {
			dir = filepath.Dir(p.cdlfile)
		}
		p.ncfile = filepath.Join(dir, name+".nc")
	}
	sink, err := p.NewSink(p.ncfile, p.Format)
	if err != nil {
		return fmt.Errorf("cdl: opening output %s: %v", p.ncfile, err)
	}
	p.Log.Infof("cdl: generating %s from dataset %s", p.ncfile, name)
	p.sink = sink
	p.b = newBuilder(sink, p.Log)
	return nil
}

func (p *Parser) parseDimSection() error {
	if err := p.advance(); err != nil { // consume 'dimensions:'
		return err
	}
	for p.tok.Kind == Ident {
		for {
			if err := p.parseDim(); err != nil {
				return err
			}
			if p.tok.Kind != Comma {
				break
			}
			if err := p.advance(); err != nil {
				return err
			}
		}
		if err := p.expect(Semi); err != nil {
			return err
		}
	}
	return nil
}

func (p *Parser) parseDim() error {
	name, err := p.identText()
	if err != nil {
		return err
	}
	if err := p.advance(); err != nil {
		return err
	}
	if err := p.expect(Equals); err != nil {
		return err
	}
	switch p.tok.Kind {
	case Unlimited:
		if err := p.advance(); err != nil {
			return err
		}
		return p.b.addDimension(name, 0, true)
	case Const:
		// The grammar admits only int and double constants here; a
		// suffixed short, byte, or float length is not a dimension.
		var length int
		switch p.tok.Value.Type {
		case Int:
			length = int(p.tok.Value.Int64())
		case Double:
			length = int(p.tok.Value.Float64())
		default:
			return p.unexpected("a dimension length")
		}
		if err := p.advance(); err != nil {
			return err
		}
		return p.b.addDimension(name, length, false)
	}
	return p.unexpected("a dimension length or 'unlimited'")
}

// parseVaDecls handles the variables section: any mix of variable
// declarations and attribute assignments, each terminated by a semicolon,
// up to the data section or the closing brace.
func (p *Parser) parseVaDecls() error {
	for {
		switch p.tok.Kind {
		case TypeKeyword:
			if err := p.parseVarDecl(); err != nil {
				return err
			}
		case Colon:
			if err := p.parseAttDecl(""); err != nil {
				return err
			}
		case Ident:
			name, err := p.identText()
			if err != nil {
				return err
			}
			if err := p.advance(); err != nil {
				return err
			}
			if p.tok.Kind != Colon {
				return p.unexpected("':' introducing an attribute name")
			}
			if err := p.parseAttDecl(name); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

// parseVarDecl handles 'type name(dim, ...), name2, ... ;'.
func (p *Parser) parseVarDecl() error {
	t := p.tok.Type
	if err := p.advance(); err != nil {
		return err
	}
	for {
		name, err := p.identText()
		if err != nil {
			return err
		}
		if err := p.advance(); err != nil {
			return err
		}
		var dims []string
		if p.tok.Kind == LParen {
			if err := p.advance(); err != nil {
				return err
			}
			for p.tok.Kind != RParen {
				dn, err := p.identText()
				if err != nil {
					return err
				}
				dims = append(dims, dn)
				if err := p.advance(); err != nil {
					return err
				}
				if p.tok.Kind == Comma {
					if err := p.advance(); err != nil {
						return err
					}
				}
			}
			if err := p.advance(); err != nil { // consume ')'
				return err
			}
		}
		if err := p.b.addVariable(name, t, dims); err != nil {
			return err
		}
		if p.tok.Kind != Comma {
			break
		}
		if err := p.advance(); err != nil {
			return err
		}
	}
	return p.expect(Semi)
}

// parseAttDecl handles ':att = values ;' with the owning variable name (or
// "" for a global attribute) already consumed.
func (p *Parser) parseAttDecl(varName string) error {
	if err := p.expect(Colon); err != nil {
		return err
	}
	attName, err := p.identText()
	if err != nil {
		return err
	}
	if err := p.advance(); err != nil {
		return err
	}
	if err := p.expect(Equals); err != nil {
		return err
	}
	vals, err := p.parseConstList(false)
	if err != nil {
		return err
	}
	if err := p.b.addAttribute(varName, attName, vals); err != nil {
		return err
	}
	return p.expect(Semi)
}

func (p *Parser) parseDataSection() error {
	if err := p.advance(); err != nil { // consume 'data:'
		return err
	}
	for {
		name, err := p.identText()
		if err != nil {
			if p.tok.Kind == RBrace || p.tok.Kind == EOF {
				return nil
			}
			return err
		}
		if err := p.advance(); err != nil {
			return err
		}
		switch p.tok.Kind {
		case Colon:
			// 'var:att = values ;' assigns an attribute from the data
			// section.
			if err := p.parseAttDecl(name); err != nil {
				return err
			}
		case Equals:
			if err := p.advance(); err != nil {
				return err
			}
			vals, err := p.parseConstList(true)
			if err != nil {
				return err
			}
			if err := p.b.writeData(name, vals); err != nil {
				return err
			}
			if err := p.expect(Semi); err != nil {
				return err
			}
		default:
			return p.unexpected("'=' or ':'")
		}
	}
}

// parseConstList reads a comma-separated list of constants up to the
// terminating semicolon, which is left in place for the caller. The fill
// placeholder is legal only in data lists.
func (p *Parser) parseConstList(allowFill bool) ([]Value, error) {
	var vals []Value
	for {
		switch p.tok.Kind {
		case Const:
			vals = append(vals, p.tok.Value)
		case FillMark:
			if !allowFill {
				return nil, p.unexpected("a constant")
			}
			vals = append(vals, fillVal())
		default:
			return nil, p.unexpected("a constant")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.Kind != Comma {
			return vals, nil
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
}

// Version reports the library version, used by the command line tool.
const Version = "1.0.0"
