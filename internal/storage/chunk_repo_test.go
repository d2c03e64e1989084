package storage

import (
	"context"
	"testing"
)

func TestChunkRepo(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	course, file := seedCourse(t, db)
	repo := NewChunkRepo(db)

	chunks := []ChunkRecord{
		{ID: "1/1/1", FileID: file.ID, CourseID: course.ID, ChunkIndex: 1, WordCount: 800},
		{ID: "1/1/0", FileID: file.ID, CourseID: course.ID, ChunkIndex: 0, WordCount: 1000},
		{ID: "1/1/2", FileID: file.ID, CourseID: course.ID, ChunkIndex: 2, WordCount: 300},
	}
	if err := repo.InsertBatch(ctx, chunks); err != nil {
		t.Fatalf("InsertBatch() error = %v", err)
	}
	// Reinserting the same ids replaces rather than fails.
	if err := repo.InsertBatch(ctx, chunks[:1]); err != nil {
		t.Fatalf("InsertBatch() repeat error = %v", err)
	}
	if err := repo.InsertBatch(ctx, nil); err != nil {
		t.Fatalf("InsertBatch(nil) error = %v", err)
	}

	ids, err := repo.ListIDsByFile(ctx, file.ID)
	if err != nil {
		t.Fatalf("ListIDsByFile() error = %v", err)
	}
	want := []string{"1/1/0", "1/1/1", "1/1/2"}
	if len(ids) != len(want) {
		t.Fatalf("ListIDsByFile() = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ListIDsByFile()[%d] = %q, want %q", i, ids[i], want[i])
		}
	}

	counts, err := repo.WordCounts(ctx, course.ID)
	if err != nil {
		t.Fatalf("WordCounts() error = %v", err)
	}
	total := 0
	for _, c := range counts {
		total += c
	}
	if len(counts) != 3 || total != 2100 {
		t.Errorf("WordCounts() = %v", counts)
	}

	if err := repo.DeleteByFile(ctx, file.ID); err != nil {
		t.Fatalf("DeleteByFile() error = %v", err)
	}
	ids, err = repo.ListIDsByFile(ctx, file.ID)
	if err != nil {
		t.Fatalf("ListIDsByFile() error = %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("ListIDsByFile() after delete = %v", ids)
	}
}

func TestChunkRepo_InsertBatchRollsBack(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	course, file := seedCourse(t, db)
	repo := NewChunkRepo(db)

	// The second row references a missing file, so the whole batch must roll back.
	err := repo.InsertBatch(ctx, []ChunkRecord{
		{ID: "a", FileID: file.ID, CourseID: course.ID},
		{ID: "b", FileID: 9999, CourseID: course.ID},
	})
	if err == nil {
		t.Fatal("InsertBatch() expected foreign key error")
	}

	ids, err := repo.ListIDsByFile(ctx, file.ID)
	if err != nil {
		t.Fatalf("ListIDsByFile() error = %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("partial batch committed: %v", ids)
	}
}
