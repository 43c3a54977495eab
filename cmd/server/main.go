// Package main is the entry point for the circuitpatch API server
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/james-see/circuitpatch/pkg/api"
	"github.com/james-see/circuitpatch/pkg/config"
)

func main() {
	configFile := flag.String("config", "", "Config file (default $"+config.EnvVar+")")
	port := flag.Int("port", 0, "Server port (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Starting circuitpatch API server on port %d...\n", cfg.Server.Port)
	fmt.Printf("Swagger docs available at http://localhost:%d/swagger/index.html\n", cfg.Server.Port)

	if err := api.StartServer(cfg, cfg.Log.NewLogger(os.Stderr)); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
