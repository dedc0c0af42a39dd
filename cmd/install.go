package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install shell completions",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		if !isInPath() {
			printPathInstructions(out)
			return nil
		}

		shell := detectShell()
		target, ok := completionFor(shell)
		if !ok {
			fmt.Fprintf(out, "❌ Shell completion not supported for: %s\n", shell)
			fmt.Fprintln(out, "Supported shells: bash, zsh, fish, powershell")
			return nil
		}

		if target.installed() {
			fmt.Fprintln(out, "✅ Already configured!")
			return nil
		}

		fmt.Fprintln(out, "📦 Installing completions...")
		if err := target.install(cmd.Root()); err != nil {
			return fmt.Errorf("install completions: %w", err)
		}
		fmt.Fprintln(out, "✅ Done! Restart your shell to enable tab completion.")
		fmt.Fprintf(out, "🔄 Or enable them now with:\n   %s\n", target.activate)
		return nil
	},
}

type completionTarget struct {
	path     string
	generate func(root *cobra.Command, w io.Writer) error
	activate string
}

func completionFor(shell string) (completionTarget, bool) {
	home, err := os.UserHomeDir()
	if err != nil {
		return completionTarget{}, false
	}

	switch shell {
	case "bash":
		path := filepath.Join(home, ".local/share/bash-completion/completions/gcmodel")
		return completionTarget{
			path:     path,
			generate: (*cobra.Command).GenBashCompletion,
			activate: "source " + path,
		}, true
	case "zsh":
		dir := filepath.Join(home, ".zsh/completions")
		return completionTarget{
			path:     filepath.Join(dir, "_gcmodel"),
			generate: (*cobra.Command).GenZshCompletion,
			activate: fmt.Sprintf("fpath=(%s $fpath) && autoload -U compinit && compinit", dir),
		}, true
	case "fish":
		return completionTarget{
			path: filepath.Join(home, ".config/fish/completions/gcmodel.fish"),
			generate: func(root *cobra.Command, w io.Writer) error {
				return root.GenFishCompletion(w, true)
			},
			activate: "complete --do-complete=gcmodel",
		}, true
	case "powershell":
		path := filepath.Join(home, "gcmodel_completion.ps1")
		return completionTarget{
			path:     path,
			generate: (*cobra.Command).GenPowerShellCompletionWithDesc,
			activate: ". " + path,
		}, true
	}
	return completionTarget{}, false
}

func (c completionTarget) installed() bool {
	_, err := os.Stat(c.path)
	return err == nil
}

func (c completionTarget) install(root *cobra.Command) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(c.path)
	if err != nil {
		return err
	}
	defer f.Close()

	return c.generate(root, f)
}

func detectShell() string {
	if runtime.GOOS == "windows" {
		return "powershell"
	}

	shell := os.Getenv("SHELL")
	if shell == "" {
		return "bash"
	}
	return filepath.Base(shell)
}

func isInPath() bool {
	execPath, err := os.Executable()
	if err != nil {
		return false
	}

	paths := strings.Split(os.Getenv("PATH"), string(os.PathListSeparator))
	return slices.Contains(paths, filepath.Dir(execPath))
}

func printPathInstructions(w io.Writer) {
	execPath, _ := os.Executable()
	execDir := filepath.Dir(execPath)

	fmt.Fprintf(w, "❌ gcmodel not in PATH. Binary location: %s\n\n", execPath)

	if runtime.GOOS == "windows" {
		fmt.Fprintf(w, "Add to PATH: %s\n", execDir)
	} else {
		fmt.Fprintf(w, "Add to shell profile: export PATH=\"%s:$PATH\"\n", execDir)
		fmt.Fprintln(w, "Or copy to: /usr/local/bin")
	}
}

func init() {
	rootCmd.AddCommand(installCmd)
}
