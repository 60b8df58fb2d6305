package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"darkframes/internal/library"
)

type axisJSON struct {
	Name      string  `json:"name"`
	Min       int     `json:"min"`
	Max       int     `json:"max"`
	Step      int     `json:"step"`
	Threshold int     `json:"threshold"`
	Timeout   float64 `json:"timeout"`
}

type sourceJSON struct {
	Name string `json:"name"`
	ID   string `json:"id"`
	Path string `json:"path"`
	Adds int    `json:"adds"`
}

type infoJSON struct {
	Path          string       `json:"path"`
	Name          string       `json:"name"`
	ID            string       `json:"id"`
	Images        int          `json:"images"`
	Controllables []string     `json:"controllables"`
	Layout        string       `json:"layout,omitempty"`
	Min           []int        `json:"min,omitempty"`
	Max           []int        `json:"max,omitempty"`
	SizeBytes     int64        `json:"size_bytes"`
	Axes          [][]axisJSON `json:"axes"`
	Sources       []sourceJSON `json:"sources,omitempty"`
}

func newInfoCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Describe the library",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSnapshot(cmd.Context(), func(lib *library.Library) error {
				info := describeLibrary(lib)
				if asJSON {
					return writeJSON(cmd, info)
				}
				printInfo(cmd, info)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func describeLibrary(lib *library.Library) infoJSON {
	info := infoJSON{
		Path:          lib.Path(),
		Name:          lib.Name(),
		ID:            lib.ID(),
		Images:        lib.Len(),
		Controllables: lib.Controllables(),
	}
	if layout, ok := lib.Layout(); ok {
		info.Layout = layout.String()
	}
	if minKey, maxKey, ok := lib.Bounds(); ok {
		info.Min = []int(minKey)
		info.Max = []int(maxKey)
	}
	if st, err := os.Stat(lib.Path()); err == nil {
		info.SizeBytes = st.Size()
	}
	for _, set := range lib.Axes() {
		var axes []axisJSON
		for _, e := range set.Entries() {
			axes = append(axes, axisJSON{
				Name:      e.Name,
				Min:       e.Axis.Min,
				Max:       e.Axis.Max,
				Step:      e.Axis.Step,
				Threshold: e.Axis.Threshold,
				Timeout:   e.Axis.Timeout,
			})
		}
		info.Axes = append(info.Axes, axes)
	}
	for _, src := range lib.Sources() {
		info.Sources = append(info.Sources, sourceJSON(src))
	}
	return info
}

func printInfo(cmd *cobra.Command, info infoJSON) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	writeSection(out, "Library", colorize)
	writeField(out, "Name", info.Name)
	writeField(out, "ID", info.ID)
	writeField(out, "Path", info.Path)
	writeField(out, "Size", humanize.IBytes(uint64(info.SizeBytes)))
	writeField(out, "Images", formatCount(info.Images))
	writeField(out, "Controls", strings.Join(info.Controllables, ", "))
	if info.Layout != "" {
		writeField(out, "Layout", info.Layout)
	}
	if info.Min != nil {
		writeField(out, "Min", formatKey(info.Min))
		writeField(out, "Max", formatKey(info.Max))
	}

	for i, axes := range info.Axes {
		fmt.Fprintln(out)
		title := "Grid"
		if len(info.Axes) > 1 {
			title = fmt.Sprintf("Grid %d", i+1)
		}
		writeSection(out, title, colorize)
		rows := make([][]string, 0, len(axes))
		for _, a := range axes {
			rows = append(rows, []string{
				a.Name,
				strconv.Itoa(a.Min),
				strconv.Itoa(a.Max),
				strconv.Itoa(a.Step),
				strconv.Itoa(a.Threshold),
				strconv.FormatFloat(a.Timeout, 'g', -1, 64),
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Control", "Min", "Max", "Step", "Threshold", "Timeout"},
			rows,
			rightAligned(1, 5),
		))
	}

	if len(info.Sources) > 0 {
		fmt.Fprintln(out)
		writeSection(out, "Fused from", colorize)
		rows := make([][]string, 0, len(info.Sources))
		for _, src := range info.Sources {
			rows = append(rows, []string{src.Name, src.ID, formatCount(src.Adds), src.Path})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Name", "ID", "Added", "Path"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
		))
	}
}

func formatKey(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}
