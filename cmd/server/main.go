package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Djttt/rpsls-battle/internal/config"
)

const releaseVersion = "0.1.0"

func main() {
	log.SetFlags(0)
	_ = godotenv.Load()

	cfg := &config.Config{}
	cobra.CheckErr(newCmd(cfg).Execute())
}
