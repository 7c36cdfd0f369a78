// Command genfiles writes synthetic test payloads under a
// files_to_send/-style directory for exercising the responder's
// sender streams.
package main

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/leaanthony/clir"
)

const mb = 1024 * 1024

func main() {
	var count int
	var minMB int
	var maxMB int
	var outDir string

	cli := clir.NewCli("genfiles", "Generate synthetic payload files for a responder to send", "v0.0.1")

	generateCmd := cli.NewSubCommand("generate", "Write N files of random size into a directory")
	generateCmd.IntFlag("count", "Number of files to generate", &count)
	generateCmd.IntFlag("min-mb", "Minimum file size in MB", &minMB)
	generateCmd.IntFlag("max-mb", "Maximum file size in MB", &maxMB)
	generateCmd.StringFlag("out", "Output directory", &outDir)
	generateCmd.Action(func() error {
		if count <= 0 {
			count = 10
		}
		if minMB <= 0 {
			minMB = 2
		}
		if maxMB <= 0 || maxMB < minMB {
			maxMB = 5
		}
		if outDir == "" {
			outDir = "files_to_send"
		}
		return generate(outDir, count, minMB, maxMB)
	})

	if err := cli.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "genfiles error: %v\n", err)
		os.Exit(1)
	}
}

func generate(dir string, count, minMB, maxMB int) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	for i := 1; i <= count; i++ {
		sizeMB := minMB
		if maxMB > minMB {
			sizeMB = minMB + rand.Intn(maxMB-minMB+1)
		}
		path := filepath.Join(dir, fmt.Sprintf("file_%d", i))
		if err := os.WriteFile(path, make([]byte, sizeMB*mb), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		fmt.Printf("Generated %s with size %d MB.\n", path, sizeMB)
	}
	return nil
}
