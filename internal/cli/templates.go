package cli

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newTemplatesCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List material types and their required fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			templates, err := loadTemplates(&g.cfg.Templates)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "MATERIAL TYPE\tREQUIRED\tDEFAULTS")
			for _, t := range templates.List() {
				defaults := t.Defaults()
				keys := make([]string, 0, len(defaults))
				for k := range defaults {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				pairs := make([]string, 0, len(keys))
				for _, k := range keys {
					pairs = append(pairs, k+"="+defaults[k])
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", t.MaterialType(), strings.Join(t.Required(), ","), strings.Join(pairs, " "))
			}
			return w.Flush()
		},
	}
}
