package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/spf13/cobra"

	"coursetutor/internal/app"
	"coursetutor/internal/extract"
	"coursetutor/internal/indexer"
)

func newIngestCmd() *cobra.Command {
	var (
		courseID int64
		unitID   int64
		topic    string
	)
	cmd := &cobra.Command{
		Use:   "ingest PATH...",
		Short: "Ingest files or directories into a course",
		Long: `Extracts, chunks, embeds and indexes course material.

Directories are scanned recursively for supported documents. Files inside a
subfolder are attached to a unit named after that folder unless --topic or
--unit is given. Files are fully processed before the command returns.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireCourse(courseID); err != nil {
				return err
			}
			opts := ingestOptions{CourseID: courseID, Topic: topic}
			if unitID > 0 {
				opts.UnitID = &unitID
			}
			return withApp(cmd.Context(), func(a *app.App) error {
				summary, err := ingest(cmd.Context(), cmd.OutOrStdout(), a.Pipeline, opts, args)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\nIndexed %d, duplicate %d, skipped %d, failed %d\n",
					summary.Indexed, summary.Duplicate, summary.Skipped, summary.Failed)
				if summary.Failed > 0 {
					return fmt.Errorf("%d files failed", summary.Failed)
				}
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&courseID, "course", 0, "course ID (required)")
	cmd.Flags().Int64Var(&unitID, "unit", 0, "attach every file to this unit")
	cmd.Flags().StringVar(&topic, "topic", "", "attach every file to a topic unit with this name")
	return cmd
}

type ingestOptions struct {
	CourseID int64
	UnitID   *int64
	Topic    string
}

type ingestSummary struct {
	Indexed   int
	Duplicate int
	Skipped   int
	Failed    int
}

// topicBatch is a run of files that share a target unit.
type topicBatch struct {
	topic string
	files []extract.ScannedFile
}

// ingest scans paths, groups the files by topic and submits them in batches
// no larger than the pipeline's per-request limit. Queued files are processed
// synchronously.
func ingest(ctx context.Context, out io.Writer, p *indexer.Pipeline, opts ingestOptions, paths []string) (ingestSummary, error) {
	var summary ingestSummary

	batches, err := groupByTopic(ctx, paths, opts)
	if err != nil {
		return summary, err
	}
	if len(batches) == 0 {
		return summary, errors.New("no supported documents found")
	}

	maxFiles := p.Limits().MaxFiles
	for _, b := range batches {
		for start := 0; start < len(b.files); start += maxFiles {
			end := min(start+maxFiles, len(b.files))
			uploads, err := readUploads(b.files[start:end])
			if err != nil {
				return summary, err
			}

			results, err := p.IngestFiles(ctx, indexer.IngestRequest{
				CourseID: opts.CourseID,
				UnitID:   opts.UnitID,
				Topic:    b.topic,
				Files:    uploads,
			})
			if err != nil {
				return summary, fmt.Errorf("failed to ingest files: %w", err)
			}

			for _, r := range results {
				switch r.Status {
				case indexer.ResultQueued:
					if err := p.Process(ctx, r.FileID); err != nil {
						summary.Failed++
						fmt.Fprintf(out, "failed     %s: %v\n", r.Filename, err)
						continue
					}
					summary.Indexed++
					fmt.Fprintf(out, "indexed    %s (file %d)\n", r.Filename, r.FileID)
				case indexer.ResultDuplicate:
					summary.Duplicate++
					fmt.Fprintf(out, "duplicate  %s: %s\n", r.Filename, r.Reason)
				case indexer.ResultSkipped:
					summary.Skipped++
					fmt.Fprintf(out, "skipped    %s: %s\n", r.Filename, r.Reason)
				default:
					summary.Failed++
					fmt.Fprintf(out, "failed     %s: %s\n", r.Filename, r.Reason)
				}
			}
		}
	}
	return summary, nil
}

// groupByTopic scans every path and buckets the files by target topic,
// keeping the order in which topics were first seen. An explicit unit or
// topic puts everything in one bucket.
func groupByTopic(ctx context.Context, paths []string, opts ingestOptions) ([]topicBatch, error) {
	var batches []topicBatch
	index := make(map[string]int)

	for _, root := range paths {
		files, err := extract.ScanDir(ctx, root)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			topic := opts.Topic
			if opts.UnitID == nil && topic == "" && f.Folder != "" {
				topic = path.Base(f.Folder)
			}

			i, ok := index[topic]
			if !ok {
				i = len(batches)
				index[topic] = i
				batches = append(batches, topicBatch{topic: topic})
			}
			batches[i].files = append(batches[i].files, f)
		}
	}
	return batches, nil
}

func readUploads(files []extract.ScannedFile) ([]indexer.Upload, error) {
	uploads := make([]indexer.Upload, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f.AbsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f.RelPath, err)
		}
		uploads = append(uploads, indexer.Upload{Filename: f.RelPath, Data: data})
	}
	return uploads, nil
}
