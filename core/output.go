package core

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/dustin/go-humanize"
)

// Printer handles all display output for the CLI.
type Printer struct {
	JSON    bool
	Verbose bool
	Writer  io.Writer
}

// NewPrinter creates a default Printer writing to stdout.
func NewPrinter(jsonMode, verbose bool) *Printer {
	return &Printer{JSON: jsonMode, Verbose: verbose, Writer: os.Stdout}
}

// Source identifies the payload a Metadata came from.
type Source struct {
	Name string
	Data []byte
}

// Digest returns the xxhash64 of the payload in hex.
func (s Source) Digest() string {
	return strconv.FormatUint(xxhash.Sum64(s.Data), 16)
}

// Size returns the payload size for humans, e.g. "12 kB".
func (s Source) Size() string {
	return humanize.Bytes(uint64(len(s.Data)))
}

// PrintMetadata renders m to the configured output.
func (p *Printer) PrintMetadata(src Source, m *Metadata) error {
	if p.JSON {
		return p.printJSON(src, m)
	}
	return p.printText(src, m)
}

func (p *Printer) printText(src Source, m *Metadata) error {
	w := &errWriter{w: p.Writer}
	w.printf("File  : %s\n", src.Name)
	if p.Verbose {
		w.printf("Bytes : %s\n", src.Size())
		w.printf("Digest: %s\n", src.Digest())
	}
	if len(m.Fields) == 0 {
		w.printf("(no metadata found)\n")
		return w.err
	}
	w.printf("\n")
	width := 0
	for _, f := range m.Fields {
		if len(f.Label) > width {
			width = len(f.Label)
		}
	}
	for _, f := range m.Fields {
		w.printf("  %-*s %s\n", width+1, f.Label+":", f.Value)
	}
	if p.Verbose {
		for _, err := range m.WarningList() {
			w.printf("  ! %v\n", err)
		}
	}
	w.printf("\n")
	return w.err
}

type jsonField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type jsonOutput struct {
	File     string      `json:"file"`
	Format   FormatID    `json:"format"`
	Size     string      `json:"size"`
	Digest   string      `json:"digest"`
	Fields   []jsonField `json:"fields"`
	Warnings []string    `json:"warnings,omitempty"`
}

func (p *Printer) printJSON(src Source, m *Metadata) error {
	out := jsonOutput{
		File:   src.Name,
		Format: m.Format,
		Size:   src.Size(),
		Digest: src.Digest(),
		Fields: make([]jsonField, 0, len(m.Fields)),
	}
	for _, f := range m.Fields {
		out.Fields = append(out.Fields, jsonField{Label: f.Label, Value: f.Value})
	}
	for _, err := range m.WarningList() {
		out.Warnings = append(out.Warnings, err.Error())
	}
	enc := json.NewEncoder(p.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// PrintFormats lists the supported formats, one per line.
func (p *Printer) PrintFormats(infos []FormatInfo) error {
	if p.JSON {
		enc := json.NewEncoder(p.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	}
	w := &errWriter{w: p.Writer}
	for _, info := range infos {
		w.printf("  %-5s %-26s %-12s %s\n", info.Name, info.Label, strings.Join(info.Extensions, " "), strings.Join(info.MIMETypes, " "))
		if p.Verbose && info.Notes != "" {
			w.printf("        %s\n", info.Notes)
		}
	}
	return w.err
}

// PrintNotice prints a line for a payload that produced no metadata.
func (p *Printer) PrintNotice(name string, err error) {
	if p.JSON {
		return
	}
	fmt.Fprintf(p.Writer, "File  : %s\n(not a recognized image: %v)\n\n", name, err)
}

// PrintError prints an error to stderr.
func PrintError(msg string) {
	fmt.Fprintln(os.Stderr, "✗ Error: "+msg)
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
