// Package cli implements the helixctl command-line interface.
package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/banshee-data/ensnano-geometry/internal/bezier"
	"github.com/banshee-data/ensnano-geometry/internal/config"
	"github.com/banshee-data/ensnano-geometry/internal/design"
	"github.com/banshee-data/ensnano-geometry/internal/fsutil"
	"github.com/banshee-data/ensnano-geometry/internal/monitoring"
	"github.com/banshee-data/ensnano-geometry/internal/security"
	"github.com/banshee-data/ensnano-geometry/internal/version"
)

const (
	appName = "helixctl"

	// maxDesignBytes bounds design files read from disk.
	maxDesignBytes = 64 << 20

	defaultDBPath = "helixctl.db"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	FS     fsutil.FileSystem

	verbose    bool
	configPath string
	tuning     *config.TuningConfig
}

// New creates a CLI logging to w.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: monitoring.NewLogger(w, level),
		FS:     fsutil.OSFileSystem{},
		tuning: config.EmptyTuningConfig(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "helixctl inspects and relaxes DNA nanostructure designs",
		Long:          `helixctl computes nucleotide frames of helices on lattices and curves, checks strand topology, and relaxes designs as rigid bodies to lower their strain.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.verbose {
				c.SetLogLevel(LogDebug)
			}
			monitoring.UseCharm(c.Logger)
			cmd.SetContext(monitoring.WithLogger(cmd.Context(), c.Logger))
			if c.configPath == "" {
				return nil
			}
			cfg, err := config.LoadTuningConfig(c.configPath)
			if err != nil {
				return err
			}
			c.tuning = cfg
			c.Logger.Debug("loaded tuning", "path", c.configPath)
			return nil
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("%s {{.Version}}\n%s\n", appName, version.String()))
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "tuning config file (.json or .toml)")

	root.AddCommand(c.newCommand())
	root.AddCommand(c.lsCommand())
	root.AddCommand(c.frameCommand())
	root.AddCommand(c.validateCommand())
	root.AddCommand(c.relaxCommand())
	root.AddCommand(c.sweepCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.snapshotCommand())
	root.AddCommand(c.versionCommand())

	return root
}

// loadDesign reads a design file and fits its curves with the tuned
// options.
func (c *CLI) loadDesign(path string) (*design.Design, error) {
	clean, err := security.InputPath(path, security.DesignExts, maxDesignBytes)
	if err != nil {
		return nil, err
	}
	d, err := design.Load(c.FS, clean)
	if err != nil {
		return nil, err
	}
	d.SetFitOptions(bezier.FitOptionsFromTuning(c.tuning))
	c.Logger.Debug("loaded design", "path", clean, "helices", len(d.Helices), "strands", len(d.Strands))
	return d, nil
}

func (c *CLI) saveDesign(d *design.Design, path string) error {
	clean, err := security.OutputPath(path, security.DesignExts)
	if err != nil {
		return err
	}
	if err := d.Save(c.FS, clean); err != nil {
		return err
	}
	c.Logger.Info("wrote design", "path", clean)
	return nil
}

// writeFile validates an output path and writes what render produces.
func (c *CLI) writeFile(path string, exts []string, render func(io.Writer) error) (string, error) {
	clean, err := security.OutputPath(path, exts)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return "", err
	}
	if err := c.FS.WriteFile(clean, buf.Bytes(), 0o644); err != nil {
		return "", err
	}
	return clean, nil
}

// tuningCopy returns a deep copy of the loaded tuning that flags may
// override.
func (c *CLI) tuningCopy() (*config.TuningConfig, error) {
	b, err := json.Marshal(c.tuning)
	if err != nil {
		return nil, err
	}
	cp := config.EmptyTuningConfig()
	if err := json.Unmarshal(b, cp); err != nil {
		return nil, err
	}
	return cp, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
