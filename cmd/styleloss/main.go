package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/Brownie44l1/stylescope/internal/config"
	"github.com/Brownie44l1/stylescope/internal/styleloss"
)

func main() {
	cfg := config.Load()
	normFlag := flag.String("norm", cfg.GramNormalization, "gram normalization: truncate or scale")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-norm truncate|scale] RESULT STYLE\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}

	norm, err := styleloss.ParseNormalization(*normFlag)
	if err != nil {
		log.Fatalf("Invalid flag: %v", err)
	}

	loss, err := styleloss.StyleLoss(flag.Arg(0), flag.Arg(1), norm)
	if err != nil {
		log.Fatalf("Style loss failed: %v", err)
	}
	fmt.Println(loss)
}
