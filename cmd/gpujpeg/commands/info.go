package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/xupit3r/gpujpeg/internal/codec"
	"github.com/xupit3r/gpujpeg/internal/jfif"
)

// imageReport is the YAML document printed for each inspected file
type imageReport struct {
	Path        string            `yaml:"path"`
	Format      string            `yaml:"format"`
	Width       int               `yaml:"width,omitempty"`
	Height      int               `yaml:"height,omitempty"`
	Precision   int               `yaml:"precision,omitempty"`
	Process     string            `yaml:"process,omitempty"`
	Progressive bool              `yaml:"progressive"`
	Subsampling string            `yaml:"subsampling,omitempty"`
	Components  []componentReport `yaml:"components,omitempty"`
	Error       string            `yaml:"error,omitempty"`
}

type componentReport struct {
	ID         int `yaml:"id"`
	Horizontal int `yaml:"h"`
	Vertical   int `yaml:"v"`
	Quant      int `yaml:"quant_table"`
}

func newInfoCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info [file...]",
		Short: "Show JPEG header information",
		Long: `Parse the frame header of each file without decoding it and print
dimensions, precision, coding process and chroma subsampling as YAML.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"-"}
			}

			failed := 0
			for _, path := range args {
				report := inspect(path, cmd)
				if report.Error != "" {
					failed++
				}

				out, err := yaml.Marshal([]imageReport{report})
				if err != nil {
					return fmt.Errorf("encoding report: %w", err)
				}
				cmd.OutOrStdout().Write(out)
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d files could not be inspected", failed, len(args))
			}
			return nil
		},
	}
}

func inspect(path string, cmd *cobra.Command) imageReport {
	report := imageReport{Path: displayName(path)}

	data, err := readInput(path, cmd.InOrStdin())
	if err != nil {
		report.Format = jfif.FormatUnknown.String()
		report.Error = err.Error()
		return report
	}

	report.Format = jfif.Detect(data).String()
	if report.Format != jfif.FormatJPEG.String() {
		report.Error = "not a JPEG stream"
		return report
	}

	hdr, err := jfif.Parse(data)
	if err != nil {
		report.Error = err.Error()
		return report
	}

	report.Width = hdr.Width
	report.Height = hdr.Height
	report.Precision = hdr.Precision
	report.Process = hdr.Process()
	report.Progressive = hdr.Progressive()

	hs := make([]int, len(hdr.Components))
	vs := make([]int, len(hdr.Components))
	for i, c := range hdr.Components {
		hs[i], vs[i] = int(c.H), int(c.V)
		report.Components = append(report.Components, componentReport{
			ID:         int(c.ID),
			Horizontal: int(c.H),
			Vertical:   int(c.V),
			Quant:      int(c.Tq),
		})
	}
	report.Subsampling = codec.SubsamplingFromFactors(hs, vs).String()

	return report
}
