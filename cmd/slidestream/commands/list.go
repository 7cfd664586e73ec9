package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/slidestream/slidestream/internal/effect"
	"github.com/slidestream/slidestream/internal/export"
	"github.com/slidestream/slidestream/internal/transition"
)

var listCmd = &cobra.Command{
	Use:   "list {transitions|effects|types|formats}",
	Short: "List available transitions, effects, resolutions, or formats",
	Long: `List the names accepted by the --transition, --effect, and --format
flags and by the config file, together with what each one does.`,
	Example: `  # List transition styles in table format (default)
  slidestream list transitions

  # List Ken Burns effects in JSON format
  slidestream list effects --format json`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"transitions", "effects", "types", "formats"},
	RunE:      runList,
}

var listFormat string

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVarP(&listFormat, "format", "f", "table", "output format (table or json)")
}

type listEntry struct {
	Name   string `json:"name"`
	Detail string `json:"detail"`
}

func runList(cmd *cobra.Command, args []string) error {
	var entries []listEntry

	switch args[0] {
	case "transitions":
		for _, k := range transition.Kinds() {
			entries = append(entries, listEntry{Name: k.String(), Detail: "transition between consecutive images"})
		}
	case "effects":
		for _, k := range effect.Kinds() {
			entries = append(entries, listEntry{Name: k.String(), Detail: "camera motion over each image"})
		}
	case "types":
		for _, t := range []export.VidType{export.QVGA, export.VGA, export.HVGA, export.SVGA, export.XVGA, export.HDTV, export.BLUERAY, export.UHD4K} {
			w, h := t.Size()
			entries = append(entries, listEntry{Name: t.String(), Detail: fmt.Sprintf("%dx%d", w, h)})
		}
	case "formats":
		for _, f := range []export.VidFormat{export.MP4, export.MKV, export.AVI, export.MPG} {
			entries = append(entries, listEntry{Name: f.Extension(), Detail: "container format"})
		}
	default:
		return fmt.Errorf("unknown category: %s", args[0])
	}

	switch listFormat {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(entries)
	case "table":
		return printEntriesTable(entries)
	default:
		return fmt.Errorf("unsupported format: %s (use 'table' or 'json')", listFormat)
	}
}

func printEntriesTable(entries []listEntry) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "NAME\tDETAIL")
	fmt.Fprintln(w, "----\t------")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\n", e.Name, e.Detail)
	}
	return nil
}
