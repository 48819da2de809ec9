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

// Package cdlutil wires the CDL parser to its command-line interface and
// configuration handling.
package cdlutil

import (
	"fmt"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/spatialmodel/cdl"
	"github.com/spatialmodel/cdl/ncf"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to cdlgen.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "log",
			usage: `
              log sets the logging level. Valid levels are 'debug', 'info',
              'warning' and 'error'; 'error' suppresses the warnings about
              recoverable problems in the input, such as characters that are
              skipped as lexical noise.`,
			defaultVal: "warning",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "output",
			usage: `
              output specifies the path of the generated netCDF file. The
              default is the dataset name from the input, with a '.nc'
              suffix, in the directory of the input file.`,
			shorthand:  "o",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{genCmd.Flags()},
		},
		{
			name: "format",
			usage: `
              format specifies the output dataset format. The supported
              formats are 'netcdf3_classic' and 'netcdf3_64bit'. The
              netCDF-4 formats are recognized but rejected, since they
              need an HDF5 backing store.`,
			shorthand:  "k",
			defaultVal: "netcdf3_classic",
			flagsets:   []*pflag.FlagSet{genCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("CDL")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(genCmd)
	Root.AddCommand(tokensCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("cdl: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// logger builds the diagnostics logger for a run from the configuration.
func logger() (*logrus.Logger, error) {
	name, err := cast.ToStringE(Cfg.Get("log"))
	if err != nil {
		return nil, fmt.Errorf("cdl: invalid value for log: %v", err)
	}
	level, err := logrus.ParseLevel(name)
	if err != nil {
		return nil, fmt.Errorf("cdl: invalid logging level %q: %v", name, err)
	}
	log := logrus.New()
	log.Level = level
	return log, nil
}

// NewParser returns a parser configured from Cfg and wired to the netCDF
// file writer.
func NewParser() (*cdl.Parser, error) {
	log, err := logger()
	if err != nil {
		return nil, err
	}
	format, err := cdl.ParseFormat(Cfg.GetString("format"))
	if err != nil {
		return nil, err
	}
	p := cdl.NewParser()
	p.NewSink = ncf.New
	p.Format = format
	p.OutputFile = Cfg.GetString("output")
	p.Log = log
	return p, nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "cdlgen",
	Short: "A netCDF dataset generator.",
	Long: `cdlgen translates dataset descriptions written in CDL, the netCDF
definition language, into classic netCDF files.
Use the subcommands specified below to access the functionality.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'CDL_var' where 'var' is the
name of the variable to be set.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of cdlgen.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("cdlgen v%s\n", cdl.Version)
	},
	DisableAutoGenTag: true,
}

// genCmd translates CDL files to netCDF files.
var genCmd = &cobra.Command{
	Use:   "gen [flags] file.cdl [file.cdl ...]",
	Short: "Generate netCDF files from CDL input.",
	Long: `gen parses each input file and writes the dataset it describes to a
netCDF file. The output location can be changed with the --output flag when a
single input file is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return fmt.Errorf("cdl: at least one input file is required")
		}
		if len(args) > 1 && Cfg.GetString("output") != "" {
			return fmt.Errorf("cdl: the output flag cannot be combined with multiple input files")
		}
		p, err := NewParser()
		if err != nil {
			return err
		}
		for _, path := range args {
			if err := p.ParseFile(path); err != nil {
				return err
			}
			cmd.Printf("wrote %s\n", p.OutputPath())
		}
		return nil
	},
	DisableAutoGenTag: true,
}

// tokensCmd dumps the token stream of a CDL file, which is useful when
// chasing down syntax errors.
var tokensCmd = &cobra.Command{
	Use:   "tokens [flags] file.cdl",
	Short: "Print the token stream of a CDL file.",
	Long: `tokens scans the input file and prints one line per token, with the
source line and position each token came from.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("cdl: exactly one input file is required")
		}
		return printTokens(cmd, args[0])
	},
	DisableAutoGenTag: true,
}
