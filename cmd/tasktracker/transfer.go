package main

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"task-tracker/backend/internal/app"
	"task-tracker/backend/internal/flatfile"
)

func exportCmd() *cobra.Command {
	var email, file string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a user's tasks to a flat file",
		Long: `Write every task of a user to a flat file, one task per line:

  id|||title|||YYYY-MM-DD|||tag1,tag2|||STATUS

Examples:
  tasktracker export --email alice@example.com --file tasks.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App, logger zerolog.Logger) error {
				userID, err := a.UserIDByEmail(cmd.Context(), email)
				if err != nil {
					return err
				}

				tasks, err := a.Tasks.All(cmd.Context(), userID)
				if err != nil {
					return err
				}
				if err := flatfile.WriteFile(file, tasks); err != nil {
					if errors.Is(err, flatfile.ErrDelimiterInField) {
						return fmt.Errorf("cannot export: %w", err)
					}
					return err
				}

				logger.Info().Str("file", file).Int("tasks", len(tasks)).Msg("tasks exported")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVarP(&file, "file", "f", "tasks.txt", "output path")
	cmd.MarkFlagRequired("email")
	return cmd
}

func importCmd() *cobra.Command {
	var (
		email, file string
		replace     bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load tasks from a flat file into a user's account",
		Long: `Load tasks from a flat file. Ids in the file are ignored and new ones are
assigned. Malformed lines are skipped and counted.

Examples:
  tasktracker import --email alice@example.com --file tasks.txt
  tasktracker import --email alice@example.com --file tasks.txt --replace`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App, logger zerolog.Logger) error {
				userID, err := a.UserIDByEmail(cmd.Context(), email)
				if err != nil {
					return err
				}

				decoded, err := flatfile.ReadFile(file)
				if err != nil {
					return err
				}
				result, err := a.Tasks.ImportTasks(cmd.Context(), userID, decoded, replace)
				if err != nil {
					return err
				}

				logger.Info().
					Str("file", file).
					Int("imported", result.Imported).
					Int("skipped", result.Skipped).
					Bool("replace", replace).
					Msg("tasks imported")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVarP(&file, "file", "f", "tasks.txt", "input path")
	cmd.Flags().BoolVar(&replace, "replace", false, "delete the user's existing tasks first")
	cmd.MarkFlagRequired("email")
	return cmd
}
