package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"darkframes/internal/axis"
	"darkframes/internal/config"
	"darkframes/internal/frame"
	"darkframes/internal/library"
	"darkframes/internal/retrieval"
	"darkframes/internal/stats"
)

type getJSON struct {
	Mode      string           `json:"mode"`
	Requested map[string]int   `json:"requested"`
	Config    map[string]int64 `json:"config"`
	Summary   stats.Summary    `json:"summary"`
	Neighbors []neighborJSON   `json:"neighbors,omitempty"`
	Output    string           `json:"output,omitempty"`
}

type neighborJSON struct {
	Key    map[string]int `json:"key"`
	Weight float64        `json:"weight"`
}

func newGetCommand(ctx *commandContext) *cobra.Command {
	var sets []string
	var modeFlag string
	var outPath string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Retrieve the darkframe for a camera configuration",
		Long: "Retrieve the darkframe for the controls given with --set.\n" +
			"Modes: exact (stored point only), closest (nearest stored point), neighbors (inverse-distance blend).",
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseSets(sets)
			if err != nil {
				return err
			}
			mode, err := retrieval.ParseMode(modeFlag)
			if err != nil {
				return fmt.Errorf("%w: %v", axis.ErrConfiguration, err)
			}
			return ctx.withSnapshot(cmd.Context(), func(lib *library.Library) error {
				key, err := lib.Key(values)
				if err != nil {
					return err
				}
				match, err := lib.Retrieve(key, mode)
				if err != nil {
					return err
				}
				img := match.Image
				result := getJSON{
					Mode:      mode.String(),
					Requested: values,
					Config:    match.Config,
					Summary:   stats.Image(img),
				}
				result.Summary.Key = key
				if mode == retrieval.Neighbors {
					names := lib.Controllables()
					for _, c := range match.Candidates {
						result.Neighbors = append(result.Neighbors, neighborJSON{Key: namedKey(names, c.Key), Weight: c.Weight})
					}
				}
				if strings.TrimSpace(outPath) != "" {
					path, err := config.ExpandPath(strings.TrimSpace(outPath))
					if err != nil {
						return err
					}
					if err := writePNG(path, img); err != nil {
						return err
					}
					result.Output = path
				}
				if asJSON {
					return writeJSON(cmd, result)
				}
				printGet(cmd, lib.Controllables(), result)
				return nil
			})
		},
	}

	cmd.Flags().StringArrayVar(&sets, "set", nil, "Control value as name=value (repeatable)")
	cmd.Flags().StringVarP(&modeFlag, "mode", "m", "exact", "Retrieval mode: exact, closest or neighbors")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the image as a 16-bit grayscale PNG")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func printGet(cmd *cobra.Command, names []string, result getJSON) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	writeSection(out, titler.String(result.Mode)+" match", colorize)
	for _, name := range names {
		writeField(out, name, fmt.Sprintf("requested %d, camera %d", result.Requested[name], result.Config[name]))
	}
	for _, name := range sortedExtra(result.Config, names) {
		writeField(out, name, fmt.Sprintf("camera %d", result.Config[name]))
	}
	s := result.Summary
	writeField(out, "Pixels", formatCount(s.Pixels))
	writeField(out, "Mean", formatFloat(s.Mean))
	writeField(out, "StdDev", formatFloat(s.StdDev))
	writeField(out, "Range", formatFloat(s.Min)+" .. "+formatFloat(s.Max))
	if result.Output != "" {
		writeField(out, "Written", result.Output)
	}

	if len(result.Neighbors) > 0 {
		fmt.Fprintln(out)
		writeSection(out, "Neighbors", colorize)
		rows := make([][]string, 0, len(result.Neighbors))
		for _, n := range result.Neighbors {
			row := make([]string, 0, len(names)+1)
			for _, name := range names {
				row = append(row, fmt.Sprint(n.Key[name]))
			}
			row = append(row, fmt.Sprintf("%.4f", n.Weight))
			rows = append(rows, row)
		}
		fmt.Fprintln(out, renderTable(append(append([]string(nil), names...), "Weight"), rows, rightAligned(0, len(names)+1)))
	}
}

// sortedExtra returns config keys that are not controllables, sorted.
func sortedExtra(cfg map[string]int64, names []string) []string {
	var extra []string
	for _, key := range frame.Config(cfg).Keys() {
		if !slices.Contains(names, key) {
			extra = append(extra, key)
		}
	}
	return extra
}
