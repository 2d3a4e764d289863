// Package main is the entry point for econfctl.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/econfctl/internal/app"
	"github.com/dshills/econfctl/internal/render"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], app.Options{}, os.Stderr))
}

// run executes the command line args and returns the process exit code.
func run(args []string, opts app.Options, stderr io.Writer) int {
	root := newRootCmd(opts)
	root.SetArgs(args)
	root.SetErr(stderr)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if app.IsUsageError(err) {
			fmt.Fprintf(stderr, "Try '%s --help' for more information.\n", root.Name())
		}
		return 1
	}
	return 0
}

func newRootCmd(opts app.Options) *cobra.Command {
	var (
		settingsPath string
		logLevel     string
		application  *app.Application
	)

	root := &cobra.Command{
		Use:   "econfctl",
		Short: "Inspect and edit layered configuration files",
		Long: `econfctl shows the effective configuration of a project assembled from
vendor defaults, admin overrides and drop-in snippets, and saves edits as
the correct override file without touching vendor defaults.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			o := opts
			o.SettingsPath = settingsPath
			o.LogLevel = logLevel
			if o.Stdout == nil {
				o.Stdout = cmd.OutOrStdout()
			}
			a, err := app.New(o)
			if err != nil {
				return err
			}
			application = a
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SetOut(cmd.ErrOrStderr())
			_ = cmd.Usage()
			return app.NewUsageError("missing command")
		},
	}
	if opts.Stdout != nil {
		root.SetOut(opts.Stdout)
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &app.UsageError{Err: err}
	})

	root.PersistentFlags().StringVar(&settingsPath, "settings", "", "Path to the econfctl settings file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	get := func() *app.Application { return application }
	root.AddCommand(
		newShowCmd(get),
		newCatCmd(get),
		newEditCmd(get),
		newRevertCmd(get),
	)
	return root
}

// exactlyOneFile validates the single filename.conf argument.
func exactlyOneFile(_ *cobra.Command, args []string) error {
	switch {
	case len(args) == 0:
		return app.NewUsageError("missing filename")
	case len(args) > 1:
		return app.NewUsageError("too many arguments")
	}
	return nil
}

func newShowCmd(get func() *app.Application) *cobra.Command {
	var (
		output string
		opts   app.ShowOptions
	)
	cmd := &cobra.Command{
		Use:   "show [flags] filename.conf",
		Short: "Print all groups, keys and values of the merged configuration",
		Long: `Reads all snippets for filename.conf and prints all groups, keys and
their values.`,
		Args: exactlyOneFile,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := render.ParseFormat(output)
			if err != nil {
				return &app.UsageError{Err: err}
			}
			opts.Format = format

			ctx := cmd.Context()
			if opts.Watch {
				var stop context.CancelFunc
				ctx, stop = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()
			}
			return get().Show(ctx, args[0], opts)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format (text, json, yaml)")
	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "Print only the part selected by a gjson path")
	cmd.Flags().BoolVar(&opts.Origin, "origin", false, "Annotate every key with the file that sets it")
	cmd.Flags().BoolVar(&opts.User, "user", false, "Include the per-user configuration")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Print again whenever the configuration changes")
	return cmd
}

func newCatCmd(get func() *app.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "cat filename.conf",
		Short: "Print every file of the configuration in read order",
		Long: `Prints the content and the name of every file of filename.conf in the
order they are read.`,
		Args: exactlyOneFile,
		RunE: func(cmd *cobra.Command, args []string) error {
			return get().Cat(args[0])
		},
	}
}

func newEditCmd(get func() *app.Application) *cobra.Command {
	var opts app.EditOptions
	cmd := &cobra.Command{
		Use:   "edit [--full|--force] filename.conf",
		Short: "Edit the configuration in $EDITOR and save it as an override",
		Long: `Starts the editor EDITOR (environment variable) where the groups, keys
and values can be modified and saved afterwards.

As root the result is saved as a drop-in file in the admin directory, or
with --full as the admin configuration file itself. Other users save to
$XDG_CONFIG_HOME (or ~/.config).`,
		Args: exactlyOneFile,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := get().Edit(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch {
			case res.Saved:
				fmt.Fprintf(out, "Saved %s\n", res.Target)
			case res.Declined:
				fmt.Fprintf(out, "%s left unchanged\n", res.Target)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&opts.Full, "full", "f", false, "Write the admin configuration file instead of a drop-in")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Create the configuration if none exists yet")
	return cmd
}

func newRevertCmd(get func() *app.Application) *cobra.Command {
	var opts app.RevertOptions
	cmd := &cobra.Command{
		Use:   "revert [--drop-in] filename.conf",
		Short: "Delete the admin override, falling back to vendor defaults",
		Long: `Reverts all changes to the vendor versions. Basically deletes the
configuration file in the admin directory.`,
		Args: exactlyOneFile,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := get().Revert(args[0], opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch {
			case res.Removed:
				fmt.Fprintf(out, "File %s deleted!\n", res.Target)
			case res.Missing:
				fmt.Fprintf(out, "File %s does not exist, nothing to revert\n", res.Target)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.DropIn, "drop-in", false, "Delete econfctl's drop-in file instead")
	return cmd
}
