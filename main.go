package main

import (
	"embed"
	"os"

	"github.com/msalah0e/conceptmap/cmd"
)

//go:embed maps/*.json
var mapsFS embed.FS

func main() {
	cmd.SetMapsFS(mapsFS)
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
