package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/clip/internal/clipper"
	"github.com/MrSnakeDoc/clip/internal/utils"
)

func newClipCommand(g *globals) *cobra.Command {
	var (
		req          clipper.Request
		htmlFile     string
		pageHTMLFile string
	)

	cmd := &cobra.Command{
		Use:   "clip",
		Short: "Clip a selection into Outline",
		Long: `Clip a selection into Outline.

The document lands in a folder named after the page's domain inside the
clippings collection. Both are created on first use.`,
		Example: `  # Clip plain text
  clipctl clip --url https://blog.test/post --title "A Post" --text "the quoted part"

  # Clip an HTML selection, reading author and date from the saved page
  clipctl clip --url https://blog.test/post --text "..." --html-file sel.html --page-html-file page.html`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if req.SelectionHTML, err = readOptional(htmlFile); err != nil {
				return err
			}
			if req.PageHTML, err = readOptional(pageHTMLFile); err != nil {
				return err
			}
			if req.SelectionText == "" && req.SelectionHTML == "" {
				return fmt.Errorf("one of --text or --html-file is required")
			}

			core, _, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer utils.Close(core)

			res, err := core.Clipper.Clip(cmd.Context(), req)
			if err != nil {
				return err
			}

			if g.jsonOutput {
				return g.printJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Document %q created: %s\n", res.Title, res.URL)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.PageURL, "url", "", "page URL")
	cmd.Flags().StringVar(&req.PageTitle, "title", "", "page title")
	cmd.Flags().StringVar(&req.SelectionText, "text", "", "selected text")
	cmd.Flags().StringVar(&htmlFile, "html-file", "", "file holding the selection HTML")
	cmd.Flags().StringVar(&pageHTMLFile, "page-html-file", "", "file holding the full page HTML (meta tags)")
	cmd.Flags().StringVar(&req.Author, "author", "", "author, overrides the page meta tag")
	cmd.Flags().StringVar(&req.Published, "published", "", "publication date, overrides the page meta tag")

	return cmd
}

func readOptional(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}
