// Package main provides the entry point for RVSim.
// RVSim models the memory hierarchy of a RISC-V teaching simulator.
//
// For the full CLI, use: go run ./cmd/rvsim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("RVSim - RISC-V cache hierarchy simulator")
	fmt.Println("")
	fmt.Println("Usage: rvsim [options]")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -config    Path to cache configuration JSON file")
	fmt.Println("  -trace     Path to a memory access trace file")
	fmt.Println("  -record    Record accesses to a SQLite database")
	fmt.Println("  -v         Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/rvsim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/rvsim' instead.")
	}
}
