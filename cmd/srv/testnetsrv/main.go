package main

import (
	"fmt"
	"os"
	"time"

	flags "github.com/jessevdk/go-flags"

	"github.com/core-tools/hsu-testnet/pkg/logging"
	"github.com/core-tools/hsu-testnet/pkg/testnet"
)

type flagOptions struct {
	ConfigFile  string        `long:"config" description:"path to the launcher configuration file"`
	DataRoot    string        `long:"data-dir" description:"root directory for run state, overrides the config file"`
	LogLevel    string        `long:"log-level" description:"log level: debug, info, warn, error" default:"info"`
	LogFormat   string        `long:"log-format" description:"log format: console or json" default:"console"`
	RunDuration time.Duration `long:"run-duration" description:"shut the network down after this duration, 0 runs until a signal"`
}

func main() {
	var opts flagOptions
	parser := flags.NewParser(&opts, flags.HelpFlag)
	_, err := parser.ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Printf("Command line flags parsing failed: %v\n", err)
		os.Exit(1)
	}

	zapConfig := logging.DefaultZapConfig()
	zapConfig.Level = opts.LogLevel
	zapConfig.Format = opts.LogFormat

	baseLogger, sync, err := logging.NewZapLogger(zapConfig)
	if err != nil {
		fmt.Printf("Logger setup failed: %v\n", err)
		os.Exit(1)
	}
	defer sync()

	logger := logging.NewLogger("module: hsu-testnet , ", logging.LogFuncs{
		Debugf: baseLogger.Debugf,
		Infof:  baseLogger.Infof,
		Warnf:  baseLogger.Warnf,
		Errorf: baseLogger.Errorf,
	})

	logger.Infof("opts: %+v", opts)

	runOptions := testnet.RunOptions{
		ConfigFile:  opts.ConfigFile,
		DataRoot:    opts.DataRoot,
		RunDuration: opts.RunDuration,
	}
	if err := testnet.Run(runOptions, logger); err != nil {
		os.Exit(1)
	}
}
