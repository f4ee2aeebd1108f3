package resolvecmder

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/wikifetch/pkg/cliui"
	"github.com/papercomputeco/wikifetch/pkg/config"
	"github.com/papercomputeco/wikifetch/pkg/resolver"
	"github.com/papercomputeco/wikifetch/pkg/wikiname"
)

type imageCommander struct {
	namespace string
	json      bool
}

const imageLongDesc string = `Resolve an image spec, downloading the file into the image directory.

The spec uses wiki image syntax: a file name optionally followed by
|thumb, |frame and a width such as |120px.`

const imageShortDesc string = "Resolve an image"

func newImageCmd() *cobra.Command {
	cmder := &imageCommander{}

	cmd := &cobra.Command{
		Use:   "image <spec>",
		Short: imageShortDesc,
		Long:  imageLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0])
		},
	}

	config.AddResolverFlags(cmd)
	cmd.Flags().StringVar(&cmder.namespace, "namespace", wikiname.FileNamespace, "Image namespace used for the page link")
	cmd.Flags().BoolVar(&cmder.json, "json", false, "Print the resolved link as JSON")

	return cmd
}

func (c *imageCommander) run(cmd *cobra.Command, spec string) error {
	eng, _, err := openEngine(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer eng.Close()

	links := &resolver.LinkBuffer{}
	eng.Resolver.ResolveImageLink(cmd.Context(), links, c.namespace, spec)

	resolved := links.Links()
	if len(resolved) == 0 {
		return fmt.Errorf("image %q not found", spec)
	}
	link := resolved[0]

	out := cmd.OutOrStdout()
	if c.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(link)
	}

	fmt.Fprintf(out, "\n  %s %s\n", cliui.SuccessMark, cliui.NameStyle.Render(link.Format.Filename))
	fmt.Fprintf(out, "  %s  %s\n", cliui.KeyStyle.Render("href"), cliui.ValueStyle.Render(link.Href))
	fmt.Fprintf(out, "  %s  %s\n", cliui.KeyStyle.Render("src "), cliui.ValueStyle.Render(link.Src))
	fmt.Fprintf(out, "  %s  %s\n", cliui.KeyStyle.Render("url "), cliui.ValueStyle.Render(link.PublicSrc))
	fmt.Fprintf(out, "  %s  %s\n\n", cliui.KeyStyle.Render("file"), cliui.DimStyle.Render(link.LocalPath))
	return nil
}
