package commands

import (
	"github.com/spf13/cobra"

	"github.com/xupit3r/gpujpeg/internal/imageop"
)

func newCompletionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion script",
		Long: `Generate shell completion script for gpujpeg.

To load completions:

Bash:
  $ gpujpeg completion bash > ~/.local/share/bash-completion/completions/gpujpeg
  $ source ~/.local/share/bash-completion/completions/gpujpeg

Zsh:
  $ gpujpeg completion zsh > ~/.zsh/completion/_gpujpeg
  $ echo 'fpath=(~/.zsh/completion $fpath)' >> ~/.zshrc
  $ echo 'autoload -Uz compinit && compinit' >> ~/.zshrc

Fish:
  $ gpujpeg completion fish > ~/.config/fish/completions/gpujpeg.fish

PowerShell:
  PS> gpujpeg completion powershell | Out-String | Invoke-Expression
  # To persist, add the output to your PowerShell profile
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		// Completion output must not be mixed with config or logging setup
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE:              runCompletion,
	}
}

func runCompletion(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	switch args[0] {
	case "bash":
		return cmd.Root().GenBashCompletion(out)
	case "zsh":
		return cmd.Root().GenZshCompletion(out)
	case "fish":
		return cmd.Root().GenFishCompletion(out, true)
	case "powershell":
		return cmd.Root().GenPowerShellCompletionWithDesc(out)
	}
	return nil
}

// fixed returns a completion function offering values
func fixed(values ...string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return values, cobra.ShellCompDirectiveNoFileComp
	}
}

// registerFlagCompletions registers value completions for enumerated flags
func registerFlagCompletions(root *cobra.Command) {
	root.RegisterFlagCompletionFunc("device", fixed(
		"auto\tCUDA when available, otherwise CPU",
		"cpu\tHost-emulated device memory",
		"cuda\tNVIDIA GPU",
	))
	root.RegisterFlagCompletionFunc("engine", fixed(
		"auto\tnvJPEG on a GPU, otherwise software",
		"software\tHost JPEG codec",
		"nvjpeg\tNVIDIA nvJPEG",
	))

	var ops []string
	for _, name := range imageop.Names() {
		ops = append(ops, name+"\t"+imageop.Help(name))
	}

	for _, sub := range root.Commands() {
		switch sub.Name() {
		case "encode":
			sub.RegisterFlagCompletionFunc("subsampling", fixed("444", "422", "420", "440", "411", "410", "gray"))
			sub.RegisterFlagCompletionFunc("op", fixed(ops...))
		case "decode":
			sub.RegisterFlagCompletionFunc("format", fixed("png", "bmp"))
			sub.RegisterFlagCompletionFunc("op", fixed(ops...))
		}
	}
}
