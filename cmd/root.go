package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "gcmodel",
	Short: "Model and analyze JVM garbage collection logs",
	Long: `gcmodel reads HotSpot GC logs (classic -XX:+PrintGCDetails output and JDK 9+
unified logging), builds a time-ordered model of collection events and reports
pause, throughput and heap statistics.`,
	SilenceUsage: true,

	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		switch cmd.Name() {
		case "install", "version", "help", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return
		}

		target, ok := completionFor(detectShell())
		if !ok || target.installed() {
			return
		}

		fmt.Fprintln(os.Stderr, "🔧 First run detected, setting up gcmodel...")
		if err := target.install(cmd.Root()); err != nil {
			fmt.Fprintln(os.Stderr, "⚠️  Auto-setup failed. Run 'gcmodel install' to try again.")
			return
		}
		fmt.Fprintln(os.Stderr, "✅ Shell completions installed")
		fmt.Fprintln(os.Stderr, "💡 Restart your shell to enable tab completion")
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func GetRootCmd() *cobra.Command {
	return rootCmd
}
