// Package main provides the mapconv CLI. It validates overlay side
// configuration files and prints their parsed form as JSON, so mapping
// mistakes surface before the configuration reaches a build pass.
package main

import (
	"flag"
	"fmt"
	"os"

	json "github.com/goccy/go-json"

	"github.com/miladamery/map-converter/internal/descriptor"
)

func main() {
	pretty := flag.Bool("pretty", true, "indent JSON output")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: mapconv [-pretty] overlay.yaml [overlay.yaml ...]")
		os.Exit(2)
	}

	exit := 0

	for _, path := range flag.Args() {
		cfgs, err := descriptor.LoadOverlayFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)

			exit = 1

			continue
		}

		enc := json.NewEncoder(os.Stdout)
		if *pretty {
			enc.SetIndent("", "  ")
		}

		if err := enc.Encode(cfgs); err != nil {
			fmt.Fprintf(os.Stderr, "%s: encode: %v\n", path, err)
			exit = 1
		}
	}

	os.Exit(exit)
}
