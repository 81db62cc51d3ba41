package main

import (
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/Brownie44l1/stylescope/internal/config"
	"github.com/Brownie44l1/stylescope/internal/handlers"
	"github.com/Brownie44l1/stylescope/internal/model"
	"github.com/Brownie44l1/stylescope/internal/segmentation"
	"github.com/Brownie44l1/stylescope/internal/styleloss"
)

func main() {
	cfg := config.Load()

	// Get the project root directory
	execPath, err := os.Getwd()
	if err != nil {
		log.Fatalf("Failed to get working directory: %v", err)
	}

	// If running from cmd/server, go up two levels
	if filepath.Base(execPath) == "server" {
		execPath = filepath.Join(execPath, "../..")
	}
	resolve := func(path string) string {
		if path == "" || filepath.IsAbs(path) {
			return path
		}
		return filepath.Join(execPath, path)
	}

	norm, err := styleloss.ParseNormalization(cfg.GramNormalization)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	opts := model.DefaultOptions()
	opts.SharedLibraryPath = cfg.OnnxRuntimeLib
	opts.EncoderPath = resolve(cfg.EncoderModelPath)
	opts.DecoderPath = resolve(cfg.DecoderModelPath)
	opts.NumClasses = cfg.NumClasses

	log.Printf("Loading encoder from: %s", opts.EncoderPath)
	log.Printf("Loading decoder from: %s", opts.DecoderPath)

	var segmenter handlers.Segmenter
	modelServer, err := model.NewServer(opts)
	if err != nil {
		log.Printf("Segmentation disabled: %v", err)
	} else {
		defer modelServer.Close()

		var display segmentation.Displayer
		if cfg.DisplayDir != "" {
			display = segmentation.DirDisplayer{Dir: resolve(cfg.DisplayDir)}
			log.Printf("Writing mask comparisons to: %s", cfg.DisplayDir)
		}

		s, err := segmentation.Load(modelServer, resolve(cfg.PalettePath), resolve(cfg.ClassNamesPath), display)
		if err != nil {
			log.Fatalf("Failed to initialize segmentation: %v", err)
		}
		segmenter = s
	}

	handler := handlers.NewHandler(segmenter, norm)

	log.Printf("Server starting on port %s", cfg.Port)
	log.Printf("Gram normalization: %s", norm)
	log.Println("Endpoints:")
	log.Println("  GET  /health     - Health check")
	log.Println("  POST /style-loss - Style loss between 'result' and 'style' uploads")
	log.Println("  POST /segment    - Class masks of an 'image' upload (?silhouette=true)")
	log.Printf("\n💡 Upload test: curl -X POST -F \"image=@room.jpg\" http://localhost:%s/segment\n\n", cfg.Port)

	if err := http.ListenAndServe(":"+cfg.Port, handler.Router()); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
