package commands

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/xupit3r/gpujpeg/internal/codec"
	"github.com/xupit3r/gpujpeg/internal/gpu"
	"github.com/xupit3r/gpujpeg/internal/logging"
	"github.com/xupit3r/gpujpeg/internal/system"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7B68EE"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			Width(14)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#7FFF00"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7B68EE")).
			Padding(0, 1)
)

func newDeviceCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "device",
		Short: "Show device information",
		Long: `Display the compute device and codec engine that encode and decode
would use, with device and host memory.`,
		RunE: a.runDeviceInfo,
	}
}

func row(label, value string) string {
	return labelStyle.Render(label) + value
}

func (a *app) runDeviceInfo(cmd *cobra.Command, args []string) error {
	var lines []string
	lines = append(lines, titleStyle.Render("gpujpeg device information"), "")

	backend := a.cfg.Device.Backend
	lines = append(lines, row("Requested", backend))

	dev, err := gpu.GetDeviceByName(backend)
	if err != nil {
		lines = append(lines,
			row("Device", errorStyle.Render(err.Error())),
			"",
			"Available devices:",
			"  auto  - CUDA when available, otherwise CPU",
			"  cpu   - host-emulated device memory",
		)
		if runtime.GOOS == "linux" {
			lines = append(lines, "  cuda  - NVIDIA GPU (requires CUDA Toolkit and a -tags cuda build)")
		}
		fmt.Fprintln(cmd.OutOrStdout(), boxStyle.Render(strings.Join(lines, "\n")))
		return err
	}

	lines = append(lines,
		row("Device", okStyle.Render(dev.Name())),
		row("Type", dev.Type().String()),
		row("Platform", system.Platform()),
	)

	if eng, err := codec.EngineByName(a.cfg.Codec.Engine, dev, logging.Call("device")); err != nil {
		lines = append(lines, row("Engine", errorStyle.Render(err.Error())))
	} else {
		lines = append(lines, row("Engine", eng.Name()))
	}

	if used, total := dev.MemoryUsage(); total > 0 {
		lines = append(lines, row("Device mem", fmt.Sprintf("%s / %s (%.1f%%)",
			system.FormatBytes(used), system.FormatBytes(total), float64(used)/float64(total)*100)))
	}

	if mem, err := system.ReadHostMemory(); err == nil && mem.TotalBytes > 0 {
		lines = append(lines,
			row("Host RAM", system.FormatBytes(mem.TotalBytes)),
			row("Available", system.FormatBytes(mem.AvailableBytes)),
		)
	}
	lines = append(lines, row("CPUs", fmt.Sprintf("%d", runtime.NumCPU())))

	fmt.Fprintln(cmd.OutOrStdout(), boxStyle.Render(strings.Join(lines, "\n")))
	return nil
}
