package main

import (
	"flag"

	"github.com/tetheredrobotics/rovcore"
)

func main() {
	configPath := flag.String("config", "config.ini", "path to the INI configuration file")
	flag.Parse()
	rovcore.Main(*configPath)
}
