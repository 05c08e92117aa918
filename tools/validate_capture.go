//go:build ignore

package main

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/muurk/lumen/internal/messages"
)

// CapturedPacket is one line of a JSONL capture.
type CapturedPacket struct {
	Timestamp  string `json:"timestamp"`
	RemoteAddr string `json:"remote_addr"`
	Direction  string `json:"direction"`
	Hex        string `json:"hex"`
}

// Statistics tracks unpacking results
type Statistics struct {
	TotalPackets  int
	TotalFiles    int
	Success       int
	Failure       int
	Unknown       int
	MessageNames  map[string]int
	FailedPackets []FailedPacket
	PacketLengths map[int]int
}

// FailedPacket stores information about unpacking failures
type FailedPacket struct {
	File       string
	LineNumber int
	Hex        string
	Error      string
}

// Usage: go run tools/validate_capture.go <directory-or-file>
//
// Files hold one packet per line, either bare hex or a JSON object with a
// "hex" key. Every packet is unpacked and then packed again; a packet fails
// when either step errors or the bytes differ.
func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: validate_capture <directory-or-file>")
		fmt.Println("Example: validate_capture captures/")
		fmt.Println("         validate_capture capture-20251121.jsonl")
		os.Exit(1)
	}

	path := os.Args[1]

	stats := Statistics{
		MessageNames:  make(map[string]int),
		PacketLengths: make(map[int]int),
	}

	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("Error accessing path: %v\n", err)
		os.Exit(1)
	}

	var files []string
	if info.IsDir() {
		for _, pattern := range []string{"*.jsonl", "*.hex", "*.txt"} {
			matches, err := filepath.Glob(filepath.Join(path, pattern))
			if err != nil {
				fmt.Printf("Error finding capture files: %v\n", err)
				os.Exit(1)
			}
			files = append(files, matches...)
		}
		if len(files) == 0 {
			fmt.Printf("No capture files found in %s\n", path)
			os.Exit(1)
		}
	} else {
		files = []string{path}
	}

	fmt.Printf("=== Lumen Capture Validator ===\n")
	fmt.Printf("Files to process: %d\n\n", len(files))

	for _, file := range files {
		processFile(file, &stats)
	}

	printStatistics(&stats)
	if stats.Failure > 0 {
		os.Exit(1)
	}
}

func packetHex(line string) (string, error) {
	if !strings.HasPrefix(line, "{") {
		return line, nil
	}
	var captured CapturedPacket
	if err := json.Unmarshal([]byte(line), &captured); err != nil {
		return "", fmt.Errorf("JSON decode error: %w", err)
	}
	return captured.Hex, nil
}

func processFile(filename string, stats *Statistics) {
	stats.TotalFiles++

	f, err := os.Open(filename)
	if err != nil {
		fmt.Printf("Error reading file %s: %v\n", filename, err)
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		stats.TotalPackets++

		fail := func(text, reason string) {
			stats.Failure++
			stats.FailedPackets = append(stats.FailedPackets, FailedPacket{
				File:       filename,
				LineNumber: lineNum,
				Hex:        text,
				Error:      reason,
			})
		}

		text, err := packetHex(line)
		if err != nil {
			fail(line, err.Error())
			continue
		}
		raw, err := hex.DecodeString(text)
		if err != nil {
			fail(text, fmt.Sprintf("hex decode error: %v", err))
			continue
		}
		stats.PacketLengths[len(raw)]++

		msg, err := messages.Default.Unpack(raw, true)
		if err != nil {
			fail(text, fmt.Sprintf("unpack error: %v", err))
			continue
		}
		if msg.Schema() == messages.Frame {
			stats.Unknown++
		}

		repacked, err := msg.PackBytes()
		if err != nil {
			fail(text, fmt.Sprintf("repack error: %v", err))
			continue
		}
		if hex.EncodeToString(repacked) != strings.ToLower(text) {
			fail(text, fmt.Sprintf("repack mismatch: got %x", repacked))
			continue
		}

		stats.Success++
		stats.MessageNames[msg.Schema().Name()]++
	}
	if err := scanner.Err(); err != nil {
		fmt.Printf("Error reading file %s: %v\n", filename, err)
	}
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

func printStatistics(stats *Statistics) {
	fmt.Printf("\n========================================\n")
	fmt.Printf("VALIDATION RESULTS\n")
	fmt.Printf("========================================\n\n")

	fmt.Printf("Files Processed:    %d\n", stats.TotalFiles)
	fmt.Printf("Total Packets:      %d\n", stats.TotalPackets)
	fmt.Printf("Round Trip OK:      %d (%.2f%%)\n", stats.Success, percent(stats.Success, stats.TotalPackets))
	fmt.Printf("Failures:           %d (%.2f%%)\n", stats.Failure, percent(stats.Failure, stats.TotalPackets))
	fmt.Printf("Unknown Types:      %d\n", stats.Unknown)

	fmt.Printf("\n----------------------------------------\n")
	fmt.Printf("MESSAGE DISTRIBUTION\n")
	fmt.Printf("----------------------------------------\n")
	names := make([]string, 0, len(stats.MessageNames))
	for name := range stats.MessageNames {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		count := stats.MessageNames[name]
		fmt.Printf("%-22s %d (%.2f%%)\n", name, count, percent(count, stats.Success))
	}

	fmt.Printf("\n----------------------------------------\n")
	fmt.Printf("PACKET LENGTH DISTRIBUTION\n")
	fmt.Printf("----------------------------------------\n")
	lengths := make([]int, 0, len(stats.PacketLengths))
	for length := range stats.PacketLengths {
		lengths = append(lengths, length)
	}
	sort.Ints(lengths)
	for _, length := range lengths {
		count := stats.PacketLengths[length]
		fmt.Printf("%d bytes: %d packets (%.2f%%)\n", length, count, percent(count, stats.TotalPackets))
	}

	if len(stats.FailedPackets) > 0 {
		fmt.Printf("\n----------------------------------------\n")
		fmt.Printf("FAILURES (%d total)\n", len(stats.FailedPackets))
		fmt.Printf("----------------------------------------\n")

		// Show first 10 failures
		maxShow := 10
		if len(stats.FailedPackets) > maxShow {
			fmt.Printf("(Showing first %d of %d failures)\n\n", maxShow, len(stats.FailedPackets))
		}

		for i, failed := range stats.FailedPackets {
			if i >= maxShow {
				break
			}
			fmt.Printf("\nFailure #%d:\n", i+1)
			fmt.Printf("  File: %s (line %d)\n", failed.File, failed.LineNumber)
			fmt.Printf("  Error: %s\n", failed.Error)
			hexPreview := failed.Hex
			if len(hexPreview) > 80 {
				hexPreview = hexPreview[:80] + "..."
			}
			fmt.Printf("  Packet: %s\n", hexPreview)
		}
	}

	fmt.Printf("\n========================================\n")
	if stats.Failure == 0 {
		fmt.Printf("SUCCESS: All packets round tripped\n")
	} else {
		fmt.Printf("ISSUES FOUND: %d packets failed\n", stats.Failure)
	}
	fmt.Printf("========================================\n")
}
