package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"smartcampus/internal/seed"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load students, logins, announcements and syllabus files",
	Long: `Load seed data from a directory containing any of student_data.json,
auth_users.json, announcements.json and syllabus.json (with the PDFs under
uploads/). Records that already exist are left alone, so seeding twice is safe.

Example:
  campusctl seed --dir ./data`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().String("dir", ".", "Directory holding the seed files")
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	s := &seed.Seeder{Auth: a.Auth, Students: a.Attendance.Repo(), Portal: a.Portal, Log: a.Log}
	rep, err := s.Run(ctx, mustGetString(cmd, "dir"))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Seeded %s\n", rep)
	return nil
}
