// Copyright 2026 The BealSearch Authors
// This file is part of BealSearch.
//
// BealSearch is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// BealSearch is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with BealSearch. If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/naoina/toml"
	"gopkg.in/urfave/cli.v1"

	"github.com/BealFoundation/BealSearch/params"
	"github.com/BealFoundation/BealSearch/search"
)

var dumpConfigCommand = cli.Command{
	Action:      dumpConfig,
	Name:        "dumpconfig",
	Usage:       "Show configuration values",
	ArgsUsage:   "",
	Category:    "MISCELLANEOUS COMMANDS",
	Description: `The dumpconfig command shows configuration values.`,
}

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		link := ""
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://godoc.org/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

type managerSettings struct {
	Listen string
	From   uint32
}

type workerSettings struct {
	Manager string
	Poll    time.Duration
}

type bealConfig struct {
	Search  search.Config
	Manager managerSettings
	Worker  workerSettings
}

func defaultConfig() bealConfig {
	return bealConfig{
		Search: search.Config{
			MaxBase: params.DefaultMaxBase,
			MaxPow:  params.DefaultMaxPow,
			Moduli:  params.DefaultModuli,
		},
		Manager: managerSettings{
			Listen: params.DefaultManagerAddr,
			From:   params.DefaultFrom,
		},
		Worker: workerSettings{
			Manager: params.DefaultManagerAddr,
			Poll:    10 * time.Second,
		},
	}
}

func loadConfig(file string, cfg *bealConfig) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

// makeConfig resolves the effective configuration: defaults, then the TOML
// file, then command-line flags, later sources winning.
func makeConfig(ctx *cli.Context) (bealConfig, error) {
	cfg := defaultConfig()
	if file := ctx.GlobalString(configFileFlag.Name); file != "" {
		if err := loadConfig(file, &cfg); err != nil {
			return cfg, err
		}
	}
	if ctx.GlobalIsSet(maxBaseFlag.Name) {
		cfg.Search.MaxBase = uint32(ctx.GlobalUint(maxBaseFlag.Name))
	}
	if ctx.GlobalIsSet(maxPowFlag.Name) {
		cfg.Search.MaxPow = uint32(ctx.GlobalUint(maxPowFlag.Name))
	}
	if ctx.GlobalIsSet(moduliFlag.Name) {
		moduli, err := parseModuli(ctx.GlobalString(moduliFlag.Name))
		if err != nil {
			return cfg, err
		}
		cfg.Search.Moduli = moduli
	}
	return cfg, nil
}

func parseModuli(s string) ([]uint32, error) {
	var moduli []uint32
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		m, err := strconv.ParseUint(field, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid modulus %q: %v", field, err)
		}
		moduli = append(moduli, uint32(m))
	}
	if len(moduli) == 0 {
		return nil, errors.New("empty moduli list")
	}
	return moduli, nil
}

func dumpConfig(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	return tomlSettings.NewEncoder(os.Stdout).Encode(cfg)
}
