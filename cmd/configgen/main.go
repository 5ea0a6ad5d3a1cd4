package main

import (
	"flag"
	"log"

	"github.com/danmuck/fixctl/internal/config"
)

func main() {
	kind := flag.String("kind", "fixctl", "template kind: fixctl|minimal")
	output := flag.String("output", "fixctl.toml", "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", "fixctl.toml", "config path for validation")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	if *validate {
		cfg, err := config.Load(*input)
		if err != nil {
			log.Fatal(err)
		}
		if _, err := cfg.Registry(); err != nil {
			log.Fatal(err)
		}
		log.Printf("Validated config at %s (profiles=%v kinds=%d)", *input, cfg.ProfileNames(), len(cfg.Kinds))
		return
	}

	if err := config.WriteTemplate(*output, *kind, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote %s config template to %s", *kind, *output)
}
