package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/myrjola/tripguide/cmd/cli/directory"
	"github.com/myrjola/tripguide/cmd/cli/questions"
	"github.com/myrjola/tripguide/cmd/cli/tagging"
	"github.com/myrjola/tripguide/cmd/cli/writer"
	"github.com/myrjola/tripguide/internal/errors"
	"github.com/spf13/cobra"
)

func init() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	rootCmd.AddGroup(questions.Group)
	rootCmd.AddCommand(questions.Validate)
	rootCmd.AddGroup(directory.Group)
	rootCmd.AddCommand(directory.Import, directory.List, directory.Match)
	rootCmd.AddGroup(tagging.Group)
	rootCmd.AddCommand(tagging.Extract)
	rootCmd.AddGroup(writer.Group)
	rootCmd.AddCommand(writer.Generate)
}

var rootCmd = &cobra.Command{
	Use: "tripguide-cli",
	Long: `Command line utilities for Tripguide. Check question catalogs, manage the expert directory and try out
tag extraction and guide writing.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
