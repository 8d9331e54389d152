package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"taskcoach/internal/config"
	"taskcoach/internal/core"
	"taskcoach/internal/shell"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "taskcoach",
		Short: "Task manager with undoable commands",
		Long: `taskcoach keeps tasks, categories, notes and efforts in a task file.

Every change is a command that can be undone and redone. The task file is
sqlite by default; postgres and an in-memory store can be configured.

Examples:
  taskcoach add "Write report"
  taskcoach list --search report
  taskcoach shell
  taskcoach backups list`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.load()
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", config.DefaultPath(), "config file")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug|info|warn|error")
	flags.StringVar(&a.logFormat, "log-format", "", "log format: text|json")
	flags.StringVar(&a.tracePath, "trace", "", "append JSON trace spans to this file")

	root.AddCommand(newShellCmd(a), newListCmd(a), newAddCmd(a), newBackupsCmd(a), newConfigCmd(a))
	return root
}

func newShellCmd(a *app) *cobra.Command {
	var autosave time.Duration
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Edit the task file interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, err := a.openDocument(cmd.Context())
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("autosave") {
				autosave = a.cfg.Shell.Autosave
			}
			sh := shell.New(doc,
				shell.WithOutput(a.stdout),
				shell.WithPrompt("taskcoach> "),
				shell.WithAutosave(autosave),
			)
			defer sh.Close()
			fmt.Fprintln(a.stdout, `type "help" for commands`)
			return sh.Run(cmd.Context(), a.stdin)
		},
	}
	cmd.Flags().DurationVar(&autosave, "autosave", 0, "save changes every interval")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var search, sortKey string
	var descending, hideCompleted bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, err := a.openDocument(cmd.Context())
			if err != nil {
				return err
			}
			sh := shell.New(doc)
			defer sh.Close()
			if sortKey != "" {
				line := "sort " + sortKey
				if descending {
					line += " desc"
				}
				sh.Execute(cmd.Context(), line)
			}
			if hideCompleted {
				sh.Execute(cmd.Context(), "filter completed")
			}
			if search != "" {
				sh.Execute(cmd.Context(), "search "+search)
			}
			sh.SetOutput(a.stdout)
			sh.Execute(cmd.Context(), "list")
			return nil
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "only tasks containing this text")
	cmd.Flags().StringVar(&sortKey, "sort", "", "sort key, e.g. due, priority, status")
	cmd.Flags().BoolVar(&descending, "desc", false, "sort descending")
	cmd.Flags().BoolVar(&hideCompleted, "hide-completed", false, "hide completed tasks")
	return cmd
}

func newAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add SUBJECT...",
		Short: "Add a task and save",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.openDocument(cmd.Context())
			if err != nil {
				return err
			}
			sh := shell.New(doc, shell.WithOutput(a.stdout))
			defer sh.Close()
			sh.Execute(cmd.Context(), "add "+strings.Join(args, " "))
			return doc.Save(cmd.Context())
		},
	}
}

func newBackupsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backups",
		Short: "List and restore backups of the task file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the backups, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.backups(cmd.Context())
			if err != nil {
				return err
			}
			entries, err := m.List(cmd.Context(), a.cfg.Document)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TAKEN\tBYTES\tKEY")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%d\t%s\n", e.Taken.Format(time.RFC3339), e.Size, e.Key)
			}
			return w.Flush()
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "restore [KEY]",
		Short: "Replace the task file with a backup, the latest by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, err := a.backups(ctx)
			if err != nil {
				return err
			}
			key := ""
			if len(args) == 1 {
				key = args[0]
			} else {
				latest, err := m.Latest(ctx, a.cfg.Document)
				if err != nil {
					return err
				}
				key = latest.Key
			}
			store, err := core.OpenSnapshotStore(ctx, a.cfg.Storage)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			if err := m.Restore(ctx, key, store); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "restored %s\n", key)
			return nil
		},
	})
	return cmd
}

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			raw, err := a.cfg.Marshal()
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "# %s\n%s", a.configPath, raw)
			return nil
		},
	}
}
