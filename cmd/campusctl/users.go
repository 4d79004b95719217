package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"smartcampus/internal/auth"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage logins",
}

var usersCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a login",
	Long: `Create an admin, teacher, student or parent login. Student and parent
logins must name existing students.

Example:
  campusctl users create --username principal --password s3cret --role admin
  campusctl users create --username mom --password pw --role parent --student S001 --student S002`,
	RunE: runUsersCreate,
}

var studentsCmd = &cobra.Command{
	Use:   "students",
	Short: "List the student directory",
	RunE:  runStudentsList,
}

func init() {
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(studentsCmd)
	usersCmd.AddCommand(usersCreateCmd)

	usersCreateCmd.Flags().String("username", "", "Login name")
	usersCreateCmd.Flags().String("password", "", "Initial password")
	usersCreateCmd.Flags().String("role", auth.RoleTeacher, "admin, teacher, student or parent")
	usersCreateCmd.Flags().String("name", "", "Display name")
	usersCreateCmd.Flags().StringSlice("student", nil, "Linked student id (repeatable)")
	_ = usersCreateCmd.MarkFlagRequired("username")
	_ = usersCreateCmd.MarkFlagRequired("password")
}

func runUsersCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	u, err := a.Auth.CreateUser(ctx, auth.NewUser{
		Username:   mustGetString(cmd, "username"),
		Password:   mustGetString(cmd, "password"),
		Role:       mustGetString(cmd, "role"),
		Name:       mustGetString(cmd, "name"),
		StudentIDs: mustGetStringSlice(cmd, "student"),
	})
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created %s login %q (id %d)\n", u.Role, u.Username, u.ID)
	return nil
}

func runStudentsList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	students, err := a.Attendance.Repo().ListStudents(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tBRANCH\tYEAR")
	for _, s := range students {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.StudentID, s.Name, s.Branch, s.Year)
	}
	return w.Flush()
}
