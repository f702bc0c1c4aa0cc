package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAgentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "agents",
		Aliases: []string{"agent", "a"},
		Short:   "Company agent roster",
	}

	cmd.AddCommand(newAgentsListCmd())
	return cmd
}

func newAgentsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List agents that threads can be assigned to",
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}

			agents, err := client.ListAgents(cmdContext(cmd))
			if err != nil {
				return err
			}

			if isJSON(cmd) {
				return printJSON(cmd, agents)
			}
			if len(agents) == 0 {
				printIfNotQuiet(cmd, "No agents found\n")
				return nil
			}

			w := newTabWriterFromCmd(cmd)
			_, _ = fmt.Fprintln(w, "ID\tNAME\tEMAIL")
			for _, a := range agents {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", a.ID, a.Name, a.Email)
			}
			return w.Flush()
		}),
	}

	return cmd
}
