// Package trace reads memory access traces and records cache activity for
// offline analysis.
package trace

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Access is one simulated memory access.
type Access struct {
	// Op is 'R' for a read or 'W' for a write.
	Op byte

	// Addr is the accessed byte address.
	Addr uint64
}

// ReadTrace parses a text trace: one access per line, "R <addr>" or
// "W <addr>", with addresses in any base strconv accepts (0x... for hex).
// Blank lines and lines starting with '#' are skipped.
func ReadTrace(r io.Reader) ([]Access, error) {
	var accesses []Access

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf(
				"trace line %d: expected \"R|W <addr>\", got %q",
				lineNo, line)
		}

		var op byte
		switch fields[0] {
		case "R", "r":
			op = 'R'
		case "W", "w":
			op = 'W'
		default:
			return nil, fmt.Errorf(
				"trace line %d: unknown operation %q", lineNo, fields[0])
		}

		addr, err := strconv.ParseUint(fields[1], 0, 64)
		if err != nil {
			return nil, fmt.Errorf(
				"trace line %d: bad address %q: %w", lineNo, fields[1], err)
		}

		accesses = append(accesses, Access{Op: op, Addr: addr})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}

	return accesses, nil
}

// LoadTrace reads a trace file from disk.
func LoadTrace(path string) ([]Access, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	defer f.Close()

	return ReadTrace(f)
}
