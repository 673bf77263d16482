package main

import (
	"flag"
	"log"

	"optsel/pkg/api"
	"optsel/pkg/config"
	"optsel/pkg/selector"
)

func main() {
	configPath := flag.String("config", "", "Path to optsel.yaml (default: search configs/optsel.yaml, optsel.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[Server] load config: %v", err)
	}

	ctrl, err := selector.New(cfg, nil)
	if err != nil {
		log.Fatalf("[Server] build selector: %v", err)
	}
	defer ctrl.Close()

	api.NewServer(ctrl).Start(cfg.Server.Addr)
}
