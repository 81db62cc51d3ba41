package main

import (
	"flag"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"

	"github.com/Brownie44l1/stylescope/internal/config"
	"github.com/Brownie44l1/stylescope/internal/imageio"
	"github.com/Brownie44l1/stylescope/internal/model"
	"github.com/Brownie44l1/stylescope/internal/segmentation"
)

func main() {
	silhouette := flag.Bool("silhouette", false, "color masks with the class palette")
	outDir := flag.String("out", "masks", "directory the masks are written to")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-silhouette] [-out DIR] IMAGE\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(config.Load(), flag.Arg(0), *outDir, *silhouette); err != nil {
		log.Fatalf("Segmentation failed: %v", err)
	}
}

// run returns instead of exiting so the model server is always closed.
func run(cfg *config.Config, imagePath, outDir string, silhouette bool) error {
	opts := model.DefaultOptions()
	opts.SharedLibraryPath = cfg.OnnxRuntimeLib
	opts.EncoderPath = cfg.EncoderModelPath
	opts.DecoderPath = cfg.DecoderModelPath
	opts.NumClasses = cfg.NumClasses

	modelServer, err := model.NewServer(opts)
	if err != nil {
		return fmt.Errorf("failed to initialize model server: %w", err)
	}
	defer modelServer.Close()

	var display segmentation.Displayer
	if cfg.DisplayDir != "" {
		display = segmentation.DirDisplayer{Dir: cfg.DisplayDir}
	}
	segmenter, err := segmentation.Load(modelServer, cfg.PalettePath, cfg.ClassNamesPath, display)
	if err != nil {
		return fmt.Errorf("failed to initialize segmentation: %w", err)
	}

	masks, err := segmenter.SegmentFile(imagePath, silhouette)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	for i, m := range masks {
		path := filepath.Join(outDir, fmt.Sprintf("%d-class%03d.png", i, m.Class))
		if err := writePNG(path, m.Image); err != nil {
			return err
		}
		fmt.Printf("%s\t%s\t%d pixels\t%s\n", path, m.Name, m.Pixels, m.Color)
	}
	return nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := imageio.EncodePNG(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}
