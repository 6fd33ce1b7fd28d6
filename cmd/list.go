package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spaghettifunk/mapviewer/engine/formats"
	"github.com/spaghettifunk/mapviewer/engine/scene"
	"github.com/spf13/cobra"
)

var (
	idStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	headerStyle = lipgloss.NewStyle().Underline(true)
	dimStyle    = lipgloss.NewStyle().Faint(true)
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists the scenes of the catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprint(cmd.OutOrStdout(), renderCatalog(scene.DefaultCatalog(), formats.Registered()))
		return nil
	},
}

func renderCatalog(c *scene.Catalog, decoders []string) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("collection %s", c.ID)))
	b.WriteString("\n")
	for _, e := range c.Entries {
		b.WriteString(fmt.Sprintf("  %s  %s\n", idStyle.Render(e.ID), e.Name))
	}
	if len(decoders) == 0 {
		b.WriteString(dimStyle.Render("no decoder sets registered"))
	} else {
		b.WriteString(dimStyle.Render("decoder sets: " + strings.Join(decoders, ", ")))
	}
	b.WriteString("\n")
	return b.String()
}
