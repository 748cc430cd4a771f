package main

import (
	"log"

	corecmd "github.com/m3rciful/walletbot/core/cmd"
	"github.com/m3rciful/walletbot/internal/app"
)

func main() {
	if err := corecmd.Run(corecmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "configs/config.yaml",
		LoadConfig:        app.LoadConfig,
		Bootstrap:         app.Bootstrap,
	}); err != nil {
		log.Fatalf("walletbot: %v", err)
	}
}
