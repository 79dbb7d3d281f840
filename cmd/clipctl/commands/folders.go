package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/clip/internal/provision"
	"github.com/MrSnakeDoc/clip/internal/scheduler"
	"github.com/MrSnakeDoc/clip/internal/utils"
)

func newFoldersCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "folders",
		Short: "List the cached collection and domain folders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			core, _, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer utils.Close(core)

			ctx := cmd.Context()
			collectionID, err := core.Cache.CollectionID(ctx)
			if err != nil {
				return err
			}
			entries, err := core.Cache.Entries(ctx)
			if err != nil {
				return err
			}

			if g.jsonOutput {
				return g.printJSON(cmd.OutOrStdout(), map[string]any{
					"collection_id": collectionID,
					"folders":       entries,
				})
			}

			out := cmd.OutOrStdout()
			if collectionID == "" {
				collectionID = "(none)"
			}
			fmt.Fprintf(out, "collection: %s\n", collectionID)
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DOMAIN\tFOLDER")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\n", e.Domain, e.FolderID)
			}
			return tw.Flush()
		},
	}
}

func newForgetCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "forget <domain>",
		Short: "Forget the folder cached for a domain",
		Long: `Forget the folder cached for a domain. The Outline document is kept; the next
clip from that domain creates a new folder.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			domain := provision.NormalizeDomain(args[0])

			core, _, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer utils.Close(core)

			existed, err := core.Cache.ForgetDomainFolder(cmd.Context(), domain)
			if err != nil {
				return err
			}
			if !existed {
				return fmt.Errorf("no folder cached for %s", domain)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "forgot %s\n", domain)
			return nil
		},
	}
}

func newResetCommand(g *globals) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Forget the cached collection and every domain folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to reset without --yes")
			}

			core, _, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer utils.Close(core)

			if err := core.Cache.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "cache reset")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}

func newAuditCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Probe every cached folder once and forget the deleted ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			core, log, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer utils.Close(core)

			res, err := scheduler.NewFolderAuditor(core.Cache, core.Prober, log, 0).Audit(cmd.Context())
			if err != nil {
				return err
			}
			if g.jsonOutput {
				return g.printJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "checked %d, forgot %d, failed %d\n", res.Checked, res.Forgotten, res.Failed)
			return nil
		},
	}
}
