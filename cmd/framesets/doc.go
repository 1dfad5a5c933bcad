// Command framesets composes image-sequence datasets, draws sampler epochs
// and persists train/valid/test splits.
//
// Usage:
//
//	framesets config init --path framesets.toml
//	framesets build -c framesets.toml --out
//	framesets sample -c framesets.toml --epochs 3 --load
//	framesets split -c framesets.toml
//	framesets runs list
package main
