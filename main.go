package main

import (
	"embed"

	"github.com/DanSnow/skill-manager/cmd"
)

//go:embed locales/*.json
var localeFS embed.FS

func main() {
	cmd.Execute(localeFS)
}
