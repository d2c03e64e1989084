package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"coursetutor/internal/app"
	"coursetutor/internal/rag"
)

func newAskCmd() *cobra.Command {
	var (
		courseID int64
		mode     string
	)
	cmd := &cobra.Command{
		Use:   "ask QUESTION...",
		Short: "Ask a question about a course and stream the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireCourse(courseID); err != nil {
				return err
			}
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return errors.New("question is empty")
			}
			return withApp(cmd.Context(), func(a *app.App) error {
				return ask(cmd.Context(), cmd.OutOrStdout(), a, courseID, question, rag.SessionContext{TeachingMode: mode})
			})
		},
	}
	cmd.Flags().Int64Var(&courseID, "course", 0, "course ID (required)")
	cmd.Flags().StringVar(&mode, "mode", "", "teaching mode, e.g. mindmap")
	return cmd
}

// ask answers one question without a chat session. Nothing is persisted.
func ask(ctx context.Context, out io.Writer, a *app.App, courseID int64, question string, sc rag.SessionContext) error {
	course, err := a.Courses.Get(ctx, courseID)
	if err != nil {
		return fmt.Errorf("failed to get course: %w", err)
	}

	chunks, err := a.Retriever.Retrieve(ctx, courseID, question, sc)
	if err != nil {
		return fmt.Errorf("failed to retrieve course material: %w", err)
	}

	var answer rag.Answer
	in := rag.ComposeInput{
		Query:      question,
		Chunks:     chunks,
		Session:    sc,
		CourseName: course.Name,
	}
	for fragment, err := range a.Composer.Stream(ctx, in, func(ans rag.Answer) { answer = ans }) {
		if err != nil {
			return err
		}
		if _, err := io.WriteString(out, fragment); err != nil {
			return err
		}
	}

	footer := "Not found in course material"
	if answer.Grounded {
		footer = fmt.Sprintf("Sources used: %d", answer.ChunksUsed)
	}
	_, err = fmt.Fprintf(out, "\n\n[%s]\n", footer)
	return err
}
