package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"task-tracker/backend/internal/app"
	"task-tracker/backend/internal/services"
)

var sampleTasks = []services.TaskInput{
	{Title: "Evaluasi Tengah Semester", Date: "2025-04-23", Tags: []string{"PPB", "Campus"}, Status: "IN_PROGRESS"},
	{Title: "Tugas 4 - Aplikasi Ulang Tahun", Date: "2025-04-08", Tags: []string{"PPB"}, Status: "DONE"},
	{Title: "ETS", Date: "2025-04-26", Tags: []string{"PPL"}, Status: "DONE"},
	{Title: "Tugas 2 - Design UI/UX", Date: "2025-04-22", Tags: []string{"PPL"}, Status: "DONE"},
	{Title: "Mengambil Laundry", Date: "2025-04-24", Tags: []string{"PPL"}, Status: "BACKLOG"},
}

func seedCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill an empty account with sample tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App, logger zerolog.Logger) error {
				ctx := cmd.Context()
				userID, err := a.UserIDByEmail(ctx, email)
				if err != nil {
					return err
				}

				summary, err := a.Tasks.Summary(ctx, userID)
				if err != nil {
					return err
				}
				if summary.Total > 0 {
					logger.Info().Int64("tasks", summary.Total).Msg("account already has tasks, nothing seeded")
					return nil
				}

				for _, input := range sampleTasks {
					if _, err := a.Tasks.Create(ctx, userID, input); err != nil {
						return err
					}
				}
				logger.Info().Int("tasks", len(sampleTasks)).Msg("sample tasks created")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.MarkFlagRequired("email")
	return cmd
}
