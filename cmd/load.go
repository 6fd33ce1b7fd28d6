package cmd

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spaghettifunk/mapviewer/engine"
	"github.com/spaghettifunk/mapviewer/engine/core"
	"github.com/spf13/cobra"
)

var (
	frames    uint64
	watch     bool
	mirrorDir string
	baseURL   string
)

func init() {
	loadCmd.Flags().Uint64VarP(&frames, "frames", "f", 0, "Frames to draw after the load, 0 draws until interrupted")
	loadCmd.Flags().BoolVarP(&watch, "watch", "w", false, "Reload the scene when the local mirror changes")
	loadCmd.Flags().StringVar(&mirrorDir, "mirror", "", "Local mirror directory, overrides assets.mirror_dir")
	loadCmd.Flags().StringVar(&baseURL, "base-url", "", "Remote mirror, overrides assets.base_url and ignores any local mirror")
}

var summaryStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("63")).
	Padding(0, 1)

var loadCmd = &cobra.Command{
	Use:   "load <sceneID>",
	Short: "Loads a scene and draws it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sceneID := args[0]
		ctx := cmd.Context()

		config, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("frames") {
			config.Render.Frames = frames
		}
		if cmd.Flags().Changed("watch") {
			config.Assets.Watch = watch
		}
		if mirrorDir != "" {
			config.Assets.MirrorDir = mirrorDir
		}
		if baseURL != "" {
			config.Assets.BaseURL = baseURL
			config.Assets.MirrorDir = ""
		}

		e, err := engine.New(config)
		if err != nil {
			return err
		}
		defer func() {
			if err := e.Shutdown(); err != nil {
				core.LogError("%s", err)
			}
		}()
		if err := e.Initialize(); err != nil {
			return err
		}

		bar := newProgressBar(cmd.ErrOrStderr(), sceneID)
		s, err := e.LoadScene(ctx, sceneID, bar)
		bar.Done()
		if err != nil {
			return fmt.Errorf("no scene: %w", err)
		}
		core.LogInfo("showing '%s' (%s)", s.Name, s.ID)

		if config.Assets.Watch {
			go func() {
				if err := e.Watch(ctx); err != nil {
					core.LogError("watch stopped: %s", err.Error())
				}
			}()
		}

		if err := e.Run(ctx); err != nil {
			return err
		}
		printSummary(cmd.OutOrStdout(), e)
		return nil
	},
}

func printSummary(out io.Writer, e *engine.Engine) {
	stats := e.Stats()
	m := e.Metrics()
	name := "none"
	if s := e.Scene(); s != nil {
		name = fmt.Sprintf("%s (%s)", s.Name, s.ID)
	}
	body := fmt.Sprintf("scene      %s\nframes     %d (%.1f fps, %.3f ms)\ndraws      %d\ntextures   %d\ngeometries %d\ninstances  %d\nuploaded   %d bytes",
		name, stats.Frames, m.FPS(), m.FrameTime(), stats.DrawCalls,
		stats.LiveTextures, stats.LiveGeometries, stats.LiveInstances, stats.UploadedBytes)
	fmt.Fprintln(out, summaryStyle.Render(body))
}
