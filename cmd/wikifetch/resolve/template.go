package resolvecmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/wikifetch/pkg/cliui"
	"github.com/papercomputeco/wikifetch/pkg/config"
)

type templateCommander struct {
	raw bool
}

const templateLongDesc string = `Resolve a template and print its wikitext.

The name may omit the Template: prefix. Redirects are followed up to the
configured recursion limit. Output is rendered for the terminal unless
--raw is set or stdout is not a terminal.`

const templateShortDesc string = "Resolve a template"

func newTemplateCmd() *cobra.Command {
	cmder := &templateCommander{}

	cmd := &cobra.Command{
		Use:   "template <name>",
		Short: templateShortDesc,
		Long:  templateLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0])
		},
	}

	config.AddResolverFlags(cmd)
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print wikitext without terminal rendering")

	return cmd
}

func (c *templateCommander) run(cmd *cobra.Command, name string) error {
	eng, log, err := openEngine(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer eng.Close()

	content, ok := eng.Resolver.ResolveTemplate(cmd.Context(), name)
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}

	out := cmd.OutOrStdout()
	if !c.raw && cliui.IsTerminal(out) {
		rendered, err := cliui.RenderWikitext(name, content)
		if err == nil {
			_, err = io.WriteString(out, rendered)
			return err
		}
		log.Debug("rendering wikitext failed, printing raw", "error", err)
	}

	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	_, err = io.WriteString(out, content)
	return err
}
