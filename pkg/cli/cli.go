/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package cli parses the command line of the satellite and core binaries and
// holds their console helpers.
package cli

import (
	"errors"
	"flag"
	"io"
)

// ParseSatelliteFlags parses the satellite command line.
func ParseSatelliteFlags(args []string, out io.Writer) (*Options, error) {
	fs := flag.NewFlagSet("satellite", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = satelliteUsage(out)

	opts := &Options{Mode: ModePair}
	disconnect := fs.Bool("disconnect", false, "unbind this satellite from its core")
	restore := commonFlags(fs, opts)

	if err := parse(fs, args); err != nil {
		return nil, err
	}

	opts.Args = fs.Args()

	if *disconnect && *restore {
		return nil, errConflictingModes
	}

	switch {
	case *disconnect:
		opts.Mode = ModeDisconnect
	case *restore:
		opts.Mode = ModeRestore
	}

	return opts, nil
}

// ParseCoreFlags parses the core command line.
func ParseCoreFlags(args []string, out io.Writer) (*Options, error) {
	fs := flag.NewFlagSet("core", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = coreUsage(out)

	opts := &Options{Mode: ModeServe}
	restore := commonFlags(fs, opts)

	if err := parse(fs, args); err != nil {
		return nil, err
	}

	opts.Args = fs.Args()

	if *restore {
		opts.Mode = ModeRestore
	}

	return opts, nil
}

func commonFlags(fs *flag.FlagSet, opts *Options) *bool {
	fs.StringVar(&opts.ConfigPath, "config", "", "path to the JSON configuration")
	fs.StringVar(&opts.SnipsConfig, "snips-config", "", "path to snips.toml")
	fs.BoolVar(&opts.RemoveBackup, "remove-backup", false, "discard the configuration backup first")
	fs.BoolVar(&opts.Debug, "debug", false, "enable debug logging")

	return fs.Bool("restore-backup", false, "restore the configuration backup and exit")
}

func parse(fs *flag.FlagSet, args []string) error {
	err := fs.Parse(args)
	if errors.Is(err, flag.ErrHelp) {
		return ErrHelp
	}

	return err
}
