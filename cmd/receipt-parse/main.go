package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/receipt-manager/internal/parsing"
	"github.com/zombor/receipt-manager/internal/receipt"
	"github.com/zombor/receipt-manager/internal/storage"
)

func main() {
	fs := ff.NewFlagSet("receipt-parse")
	var (
		dbPath     = fs.StringLong("db", "", "Save the receipt into this database file (default: parse only)")
		tags       = fs.StringLong("tags", "", "Comma separated user tags")
		confidence = fs.IntLong("confidence", parsing.DefaultBaseConfidence, "Base confidence of the text source (0-100)")
		raw        = fs.BoolLong("raw", "Print the field-level parse result instead of the tagged receipt")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("RECEIPT_MANAGER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Logs go to stderr so stdout stays valid JSON
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	text, err := readInput(fs.GetArgs())
	if err != nil {
		slog.Error("Failed to read receipt text", "error", err)
		os.Exit(1)
	}

	db, err := openDB(*dbPath)
	if err != nil {
		slog.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	service := receipt.NewService(db, nil, nil, receipt.Config{})

	var out any
	if *raw {
		out = service.ParseText(text, *confidence)
	} else {
		out, err = service.SaveText(text, splitTags(*tags), *confidence)
		if err != nil {
			slog.Error("Failed to parse receipt", "error", err)
			os.Exit(1)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		slog.Error("Failed to write result", "error", err)
		os.Exit(1)
	}
}

// readInput reads the file named by the first argument, or stdin when there is none or it is "-"
func readInput(args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", args[0], err)
	}
	return string(data), nil
}

func openDB(path string) (receipt.DB, error) {
	if path == "" {
		return receipt.NewQuotaDB(storage.NewQuotaManager(storage.NewMemoryStore(0), storage.DefaultLimits())), nil
	}
	return receipt.NewBoltDB(path, 0, storage.DefaultLimits())
}

func splitTags(s string) []string {
	var tags []string
	for _, tag := range strings.Split(s, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
