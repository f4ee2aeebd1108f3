package main

import (
	"os"

	wikifetchcmder "github.com/papercomputeco/wikifetch/cmd/wikifetch"
)

func main() {
	cmd := wikifetchcmder.NewWikifetchCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
