// In file: cmd/planes-chat/flags.go
package main

import (
	"io"

	"github.com/spf13/pflag"

	"github.com/514-labs/planes/internal/config"
)

// parseFlags reads the command line.
func parseFlags(args []string, output io.Writer) (config.LoadOptions, error) {
	var opts config.LoadOptions
	fs := pflag.NewFlagSet("planes-chat", pflag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVarP(&opts.ConfigPath, "config", "c", config.DefaultConfigPath, "path to the YAML config file")
	fs.StringVar(&opts.EnvFile, "env-file", config.DefaultEnvFile, "dotenv file loaded outside release mode")
	fs.StringVarP(&opts.Port, "port", "p", "", "listen port (overrides PORT)")
	if err := fs.Parse(args); err != nil {
		return config.LoadOptions{}, err
	}
	return opts, nil
}
