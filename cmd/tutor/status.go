package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"coursetutor/internal/app"
	"coursetutor/internal/indexer"
)

func newStatusCmd() *cobra.Command {
	var courseID int64
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the processing status of a course's files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireCourse(courseID); err != nil {
				return err
			}
			return withApp(cmd.Context(), func(a *app.App) error {
				status, err := a.Pipeline.Status(cmd.Context(), courseID)
				if err != nil {
					return err
				}
				points, err := a.Index.Count(cmd.Context(), courseID)
				if err != nil {
					return fmt.Errorf("failed to count indexed chunks: %w", err)
				}
				return printStatus(cmd.OutOrStdout(), status, points)
			})
		},
	}
	cmd.Flags().Int64Var(&courseID, "course", 0, "course ID (required)")
	return cmd
}

// printStatus writes a file table and a summary. points is the number of
// vectors the index holds for the course.
func printStatus(out io.Writer, status *indexer.ProcessingStatus, points int) error {
	if len(status.Files) == 0 {
		_, err := fmt.Fprintf(out, "Course %d has no files.\n", status.CourseID)
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILE\tSTATUS\tCHUNKS\tERROR")
	for _, f := range status.Files {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", f.FileID, f.Filename, f.Status, f.ChunksCount, f.Error)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out)
	if status.AllCompleted {
		fmt.Fprintln(out, "All files completed.")
	} else {
		fmt.Fprintf(out, "%d files still pending.\n", status.PendingCount)
	}
	st := status.ChunkStats
	fmt.Fprintf(out, "Chunks: %d (words min %d, max %d, mean %.1f, p95 %d)\n", st.Count, st.Min, st.Max, st.Mean, st.P95)
	_, err := fmt.Fprintf(out, "Indexed vectors: %d\n", points)
	return err
}
