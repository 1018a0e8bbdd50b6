package commands

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/xupit3r/gpujpeg/internal/imageop"
	"github.com/xupit3r/gpujpeg/internal/logging"
	"github.com/xupit3r/gpujpeg/internal/pixel"
)

func newEncodeCommand(a *app) *cobra.Command {
	var (
		output string
		ops    []string
	)

	cmd := &cobra.Command{
		Use:   "encode [input]",
		Short: "Encode an image to JPEG",
		Long: `Encode a PNG, BMP, TIFF, WebP or JPEG image into a JPEG bitstream.

The input is read from stdin when no path (or "-") is given, and the
JPEG is written to stdout unless --output is set. Each --op is applied to
the pixels, in order, before encoding.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runEncode(cmd, firstArg(args), output, ops)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringArrayVar(&ops, "op", nil, opUsage())
	cmd.Flags().Int("quality", 90, "JPEG quality (1-100)")
	cmd.Flags().String("subsampling", "420", "chroma subsampling: 444, 422, 420, 440, 411, 410, gray")
	a.v.BindPFlag("codec.quality", cmd.Flags().Lookup("quality"))
	a.v.BindPFlag("codec.subsampling", cmd.Flags().Lookup("subsampling"))

	return cmd
}

func (a *app) runEncode(cmd *cobra.Command, input, output string, opSpecs []string) error {
	ops, err := imageop.ParseAll(opSpecs)
	if err != nil {
		return err
	}

	data, err := readInput(input, cmd.InOrStdin())
	if err != nil {
		return err
	}

	img, format, err := decodeImage(bytes.NewReader(data))
	if err != nil {
		return err
	}

	c, err := a.newCodec()
	if err != nil {
		return err
	}
	defer c.Close()

	arr, err := imageop.Run(pixel.FromImage(img), ops)
	if err != nil {
		return err
	}
	out, err := c.Encode(arr)
	if err != nil {
		return err
	}

	logging.Get().WithFields(logrus.Fields{
		"input_format": format,
		"width":        arr.Shape[1],
		"height":       arr.Shape[0],
		"bytes":        len(out),
		"ops":          len(ops),
		"engine":       c.Engine(),
	}).Info("encoded")

	return writeOutput(output, cmd.OutOrStdout(), out)
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func opUsage() string {
	var b strings.Builder
	b.WriteString("pixel operation name[=args], repeatable:")
	for _, name := range imageop.Names() {
		fmt.Fprintf(&b, "\n  %s: %s", name, imageop.Help(name))
	}
	return b.String()
}
