// Copyright 2025 crashsym project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// crashsym symbolicates iOS/macOS crash reports offline using the dSYM
// bundle and binary from an .xcarchive.
//
//	crashsym -archive App.xcarchive -crash report.crash [-out report.txt]
//	crashsym -archive App.xcarchive -json diagnostic.json
//	crashsym -archive App.xcarchive -json diagnostic.json -convert
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/crashkit/crashsym/pkg/config"
	"github.com/crashkit/crashsym/pkg/log"
	"github.com/crashkit/crashsym/pkg/symbolicate"
	"github.com/crashkit/crashsym/pkg/symbolizer"
	"github.com/crashkit/crashsym/pkg/tool"
	"github.com/crashkit/crashsym/pkg/xcarchive"
)

var (
	flagArchive   = flag.String("archive", "", "path to .xcarchive")
	flagCrash     = flag.String("crash", "", "legacy crash report to symbolicate")
	flagJSON      = flag.String("json", "", "MetricKit diagnostic JSON to symbolicate")
	flagConvert   = flag.Bool("convert", false, "convert -json to the legacy layout instead of symbolicating")
	flagOut       = flag.String("out", "", "output file (default stdout)")
	flagConfig    = flag.String("config", "", "toolchain config file")
	flagGenConfig = flag.String("genconfig", "", "write a default config file and exit")
	flagDemangle  = flag.Bool("demangle", false, "demangle resolved symbols")
	flagProgress  = flag.Bool("progress", false, "print resolution progress to stderr")
)

// Config names the toolchain binaries and overrides resolution settings.
type Config struct {
	Atos          string   `json:"atos,omitempty"`
	Lipo          string   `json:"lipo,omitempty"`
	Dwarfdump     string   `json:"dwarfdump,omitempty"`
	Lldb          string   `json:"lldb,omitempty"`
	Architectures []string `json:"architectures,omitempty"`
	TimeoutSec    int      `json:"timeout_sec,omitempty"`
}

func main() {
	flag.Parse()
	log.EnableRecentBuffer(1000)

	if *flagGenConfig != "" {
		if err := config.SaveFile(*flagGenConfig, defaultConfig()); err != nil {
			tool.Fail(err)
		}
		return
	}
	if *flagArchive == "" || (*flagCrash == "") == (*flagJSON == "") {
		fmt.Fprintf(os.Stderr, "usage: crashsym -archive App.xcarchive (-crash report.crash | -json diag.json [-convert])\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	archive, err := xcarchive.Load(*flagArchive)
	if err != nil {
		tool.Fail(err)
	}
	log.Logf(0, "loaded archive: app %v (%v) version %v (%v)",
		archive.App.Name, archive.App.BundleID, archive.App.Version, archive.App.Build)

	session := symbolicate.NewSession(archive, toolchain())
	session.Demangle = *flagDemangle
	if *flagProgress {
		session.Progress = func(msg string) {
			fmt.Fprintln(os.Stderr, msg)
		}
	}

	var result string
	switch {
	case *flagCrash != "":
		data, err := os.ReadFile(*flagCrash)
		if err != nil {
			tool.Fail(err)
		}
		result, err = session.SymbolicateCrash(data)
		if err != nil {
			tool.Fail(err)
		}
	case *flagConvert:
		data, err := os.ReadFile(*flagJSON)
		if err != nil {
			tool.Fail(err)
		}
		result, err = session.ConvertDiagnostic(data)
		if err != nil {
			tool.Fail(err)
		}
	default:
		data, err := os.ReadFile(*flagJSON)
		if err != nil {
			tool.Fail(err)
		}
		result, err = session.SymbolicateDiagnostic(data)
		if err != nil {
			tool.Fail(err)
		}
	}

	if *flagOut != "" {
		if err := session.WriteResult(*flagOut); err != nil {
			tool.Fail(err)
		}
		log.Logf(0, "wrote %v", *flagOut)
		return
	}
	os.Stdout.WriteString(result)
	if len(result) != 0 && result[len(result)-1] != '\n' {
		os.Stdout.WriteString("\n")
	}
}

func defaultConfig() *Config {
	apple := symbolizer.NewApple()
	return &Config{
		Atos:          apple.Atos,
		Lipo:          apple.Lipo,
		Dwarfdump:     apple.Dwarfdump,
		Lldb:          apple.Lldb,
		Architectures: symbolizer.DefaultArchitectures,
		TimeoutSec:    int(apple.Timeout / time.Second),
	}
}

func toolchain() symbolizer.Toolchain {
	apple := symbolizer.NewApple()
	if *flagConfig == "" {
		return apple
	}
	cfg := new(Config)
	if err := config.LoadFile(*flagConfig, cfg); err != nil {
		tool.Fail(err)
	}
	if cfg.Atos != "" {
		apple.Atos = cfg.Atos
	}
	if cfg.Lipo != "" {
		apple.Lipo = cfg.Lipo
	}
	if cfg.Dwarfdump != "" {
		apple.Dwarfdump = cfg.Dwarfdump
	}
	if cfg.Lldb != "" {
		apple.Lldb = cfg.Lldb
	}
	if cfg.TimeoutSec > 0 {
		apple.Timeout = time.Duration(cfg.TimeoutSec) * time.Second
	}
	if len(cfg.Architectures) > 0 {
		return &archOverride{Toolchain: apple, archs: cfg.Architectures}
	}
	return apple
}

// archOverride pins the candidate architecture list from config instead of
// asking lipo.
type archOverride struct {
	symbolizer.Toolchain
	archs []string
}

func (t *archOverride) Architectures(string) ([]string, error) {
	return t.archs, nil
}
