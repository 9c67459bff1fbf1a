package util

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
)

// SetupInterruptHandler cancels running work on SIGINT/SIGTERM, removes
// unfinished chapter folders from outputDir and exits with status 1.
func SetupInterruptHandler(outputDir string, cancel func()) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sig
		fmt.Println("\nInterrupt received. Cleaning up...")

		if cancel != nil {
			cancel()
		}

		CleanupUnfinishedTempFolders(outputDir)
		RemoveIfEmpty(outputDir)
		fmt.Println("\nExiting due to interrupt.")

		os.Exit(1)
	}()
}

// CleanupUnfinishedTempFolders removes every "*_tmp" directory in outputDir
// and in its immediate subdirectories, where per-book chapters are written.
func CleanupUnfinishedTempFolders(outputDir string) {
	cleanupTempIn(outputDir, 1)
}

func cleanupTempIn(dir string, depth int) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}

		full := filepath.Join(dir, e.Name())
		if !strings.HasSuffix(e.Name(), "_tmp") {
			if depth > 0 {
				cleanupTempIn(full, depth-1)
			}
			continue
		}

		if err := os.RemoveAll(full); err != nil {
			fmt.Printf("Error cleaning up %s: %v\n", full, err)
		} else {
			fmt.Printf("Removed %s\n", full)
		}
	}
}

func RemoveIfEmpty(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) > 0 {
		return
	}

	if err := os.Remove(dir); err == nil {
		fmt.Printf("Removed empty output folder: %s\n", dir)
	}
}

func CleanupFolder(folder string) {
	_ = os.RemoveAll(folder)
}
