package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/clip/internal/app"
	"github.com/MrSnakeDoc/clip/internal/config"
	"github.com/MrSnakeDoc/clip/internal/logger"
	"github.com/MrSnakeDoc/clip/internal/version"
)

// globals are the persistent flags shared by every subcommand.
type globals struct {
	verbose    bool
	jsonOutput bool
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func NewRootCommand() *cobra.Command {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:   "clipctl",
		Short: "File web clippings into Outline from the terminal",
		Long: `clipctl runs the same clip flow as the clip service and inspects its
provisioning cache. Configuration comes from the CLIP_* environment variables.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version.Version, version.Commit, version.BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "enable debug logs")
	rootCmd.PersistentFlags().BoolVar(&g.jsonOutput, "json", false, "output in JSON format")

	rootCmd.AddCommand(newClipCommand(g))
	rootCmd.AddCommand(newFoldersCommand(g))
	rootCmd.AddCommand(newForgetCommand(g))
	rootCmd.AddCommand(newResetCommand(g))
	rootCmd.AddCommand(newAuditCommand(g))

	return rootCmd
}

// open loads the environment config and wires the clip core. Logs go to stderr.
func (g *globals) open(cmd *cobra.Command) (*app.Core, logger.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	level := cfg.LogLevel
	if g.verbose {
		level = "debug"
	} else if level == "info" {
		level = "warn"
	}
	log := logger.New(level, cfg.PrettyLog)

	core, err := app.NewCore(cmd.Context(), cfg, log, nil)
	if err != nil {
		return nil, nil, err
	}
	return core, log, nil
}

// loadConfig turns the fatal panics config.Load raises for the service into an
// ordinary error.
func loadConfig() (cfg *config.Config, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("invalid configuration: %v", strings.TrimPrefix(fmt.Sprint(r), "❌ FATAL: "))
		}
	}()
	return config.Load(), nil
}

func (g *globals) printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
