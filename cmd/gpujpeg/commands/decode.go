package commands

import (
	"bytes"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/xupit3r/gpujpeg/internal/imageop"
	"github.com/xupit3r/gpujpeg/internal/jfif"
	"github.com/xupit3r/gpujpeg/internal/logging"
)

func newDecodeCommand(a *app) *cobra.Command {
	var (
		output, format string
		ops            []string
	)

	cmd := &cobra.Command{
		Use:   "decode [input]",
		Short: "Decode a JPEG to PNG or BMP",
		Long: `Decode a JPEG bitstream into an RGB raster.

The output format follows the --output extension (.png or .bmp) unless
--format is given. Input defaults to stdin and output to stdout. Each
--op is applied to the decoded pixels, in order, before writing.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDecode(cmd, firstArg(args), output, format, ops)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "output format: png, bmp (default from --output extension, else png)")
	cmd.Flags().StringArrayVar(&ops, "op", nil, opUsage())

	return cmd
}

func (a *app) runDecode(cmd *cobra.Command, input, output, formatFlag string, opSpecs []string) error {
	format, err := outputFormat(output, formatFlag)
	if err != nil {
		return err
	}
	ops, err := imageop.ParseAll(opSpecs)
	if err != nil {
		return err
	}

	data, err := readInput(input, cmd.InOrStdin())
	if err != nil {
		return err
	}

	if f := jfif.Detect(data); f == jfif.FormatJPEG2000 {
		return fmt.Errorf("%s is JPEG 2000, which this codec does not decode", displayName(input))
	}

	c, err := a.newCodec()
	if err != nil {
		return err
	}
	defer c.Close()

	arr, err := c.Decode(data)
	if err != nil {
		return err
	}
	if arr, err = imageop.Run(arr, ops); err != nil {
		return err
	}
	img, err := arr.Image()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := encodeRaster(&buf, img, format); err != nil {
		return fmt.Errorf("writing %s: %w", format, err)
	}

	b := img.Bounds()
	logging.Get().WithFields(logrus.Fields{
		"width":  b.Dx(),
		"height": b.Dy(),
		"format": format,
		"ops":    len(ops),
		"engine": c.Engine(),
	}).Info("decoded")

	return writeOutput(output, cmd.OutOrStdout(), buf.Bytes())
}

func displayName(path string) string {
	if path == "" || path == "-" {
		return "stdin"
	}
	return path
}
