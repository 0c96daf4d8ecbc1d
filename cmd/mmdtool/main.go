// mmdtool is a CLI utility for inspecting and converting MMD model (PMX) and
// motion (VMD) files.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/pmxvmd/internal/config"
	"github.com/Faultbox/pmxvmd/internal/logger"
)

type command func(cfg *config.Config, args []string) error

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	logger.Sugar.Debugf("Config: %+v", cfg)

	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	var run command
	switch args[0] {
	case "info":
		run = cmdInfo
	case "dump":
		run = cmdDump
	case "euler":
		run = cmdEuler
	case "roundtrip", "rt":
		run = cmdRoundTrip
	case "parity":
		run = cmdParity
	case "gltf", "export":
		run = cmdGLTF
	case "config":
		run = cmdConfig
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}

	if err := run(cfg, args[1:]); err != nil {
		logger.Error("command failed", zap.String("command", args[0]), zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

func printUsage() {
	fmt.Println(`mmdtool - MMD model (PMX) and motion (VMD) utility

Usage:
  mmdtool [flags] <command> [options]

Flags:
  -config <file>      Config file (default ./config.yaml or the user config dir)
  -debug              Enable debug logging
  -encoding <name>    Encoding of fixed-length names (default shift_jis)
  -batch              Use the struct-of-arrays decoders
  -log-file <file>    Also write logs to a rotated file

Commands:
  info <file>                     Show header fields and section counts
  dump [-n N] <file>              Dump the decoded structure (first N records)
  euler [-bone name] <file.vmd>   Print bone rotations as Euler angles in degrees
  roundtrip [-o out] <file>       Decode, re-encode and compare with the input
  parity <file>                   Compare the scalar and batch decoders
  gltf [-embed] <file.pmx> [out]  Export a model to glTF (.glb or .gltf)
  config [-o file]                Save the effective settings as YAML

Examples:
  mmdtool info miku.pmx
  mmdtool -encoding euc-jp dump -n 3 dance.vmd
  mmdtool euler -bone センター dance.vmd
  mmdtool -batch gltf -embed miku.pmx miku.glb`)
}
