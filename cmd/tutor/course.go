package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"coursetutor/internal/app"
	"coursetutor/internal/service"
)

const defaultCLIUser = "cli"

func newCourseCmd() *cobra.Command {
	courseCmd := &cobra.Command{
		Use:   "course",
		Short: "Create and list courses",
	}

	var (
		user        string
		name        string
		description string
	)
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a course",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				course, err := a.CourseService.CreateCourse(cmd.Context(), user, service.CreateCourseRequest{
					Name:        name,
					Description: description,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created course %d (%s)\n", course.ID, course.Name)
				return nil
			})
		},
	}
	createCmd.Flags().StringVar(&name, "name", "", "course name")
	createCmd.Flags().StringVar(&description, "description", "", "course description")
	createCmd.Flags().StringVar(&user, "user", defaultCLIUser, "owning user ID")

	var listUser string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's courses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				courses, err := a.CourseService.ListCourses(cmd.Context(), listUser)
				if err != nil {
					return err
				}
				if len(courses) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No courses found.")
					return nil
				}
				for _, c := range courses {
					fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", c.ID, c.Name)
				}
				return nil
			})
		},
	}
	listCmd.Flags().StringVar(&listUser, "user", defaultCLIUser, "owning user ID")

	courseCmd.AddCommand(createCmd, listCmd)
	return courseCmd
}
