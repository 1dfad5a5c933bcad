package main

// Example command that composes a dataset from a directory of TIFF stacks,
// draws one balanced epoch and converts the first batch into gomlx tensors.
//
// Pixels are decoded lazily: composing the dataset only reads each stack's
// page table and events sidecar, frames are read when a batch is loaded.
//
// Usage:
//   go run ./datasets/example /path/to/movies
//
// Every *.tif under the directory is used as a source, split 80/20 into a
// training and a validation range.

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/afero"

	"github.com/Noofbiz/framesets/datasets"
	"github.com/Noofbiz/framesets/discover"
	"github.com/Noofbiz/framesets/loader"
	"github.com/Noofbiz/framesets/logging"
	"github.com/Noofbiz/framesets/sampling"
	"github.com/Noofbiz/framesets/splits"
)

func main() {
	if len(os.Args) != 2 {
		log.Fatalf("usage: %s <movies dir>", os.Args[0])
	}
	logger, err := logging.New(logging.Options{Level: "info", Format: "console"})
	if err != nil {
		log.Fatal(err)
	}
	fs := afero.NewOsFs()

	d := discover.New(fs, nil, logger)
	if err := d.CheckExist("train", os.Args[1:]); err != nil {
		log.Fatal(err)
	}
	paths, err := d.Discover(os.Args[1:], 1)
	if err != nil {
		log.Fatalf("failed to discover sources: %v", err)
	}
	srcs, err := datasets.OpenSources(fs, paths, logger)
	if err != nil {
		log.Fatalf("failed to open sources: %v", err)
	}
	fmt.Printf("Found %d sources\n", len(srcs))

	opts := datasets.Options{NFrames: 2, Deltas: []int{1, 2}, Size: 32, RandomCrop: true, Permute: true, Seed: 42}
	train, err := datasets.Build(srcs, []splits.Range{{Start: 0, End: 0.8}}, opts, logger)
	if err != nil {
		log.Fatalf("failed to build dataset: %v", err)
	}
	fmt.Printf("Total training samples available: %d\n", train.Len())

	b, err := sampling.NewBalanced(train, 16, sampling.BalancedOptions{Seed: 42, Progress: os.Stderr, Log: logger})
	if err != nil {
		log.Fatalf("failed to scan labels: %v", err)
	}
	fmt.Printf("Balanced epoch: %d positives and %d negatives\n", b.PerClass(), b.PerClass())
	if b.Len() == 0 {
		fmt.Println("No event annotations found; add <name>.events.csv files to draw balanced epochs.")
		return
	}

	l, err := loader.New(train, b, loader.Options{Name: "example", BatchSize: 8})
	if err != nil {
		log.Fatal(err)
	}
	defer l.Close()

	batch, err := l.Load(context.Background(), b.Indices()[:min(8, b.Len())])
	if err != nil {
		log.Fatalf("failed to load batch: %v", err)
	}
	framesT, eventsT, arrowsT := batch.ToGomlxTensors()
	fmt.Printf("Created tensors: frames=%s events=%s arrows=%s\n", framesT.Shape(), eventsT.Shape(), arrowsT.Shape())
	fmt.Printf("  First example events=%d arrow=%d\n", batch.Events[0], batch.Arrows[0])
}
