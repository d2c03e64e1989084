package storage

import "time"

// Course is a collection of uploaded documents owned by one user.
type Course struct {
	ID          int64
	OwnerID     string
	Name        string
	Description string
	CreatedAt   time.Time
}

// Unit is a node in a course's structure. Level 0 is the course default unit;
// topics created on upload are level 1.
type Unit struct {
	ID          int64
	CourseID    int64
	ParentID    *int64
	Name        string
	Description string
	Order       int
	Level       int
	CreatedAt   time.Time
}

// FileStatus is the processing state of an uploaded file.
type FileStatus string

// File statuses. A file moves pending → processing → completed or failed.
const (
	FileStatusPending    FileStatus = "pending"
	FileStatusProcessing FileStatus = "processing"
	FileStatusCompleted  FileStatus = "completed"
	FileStatusFailed     FileStatus = "failed"
)

// Done reports whether processing has finished, successfully or not.
func (s FileStatus) Done() bool {
	return s == FileStatusCompleted || s == FileStatusFailed
}

// FileRecord is an uploaded document and its processing state.
type FileRecord struct {
	ID            int64
	CourseID      int64
	UnitID        *int64
	Filename      string
	FileType      string // Lowercase extension without the dot
	FileSize      int64
	Status        FileStatus
	ChunksCount   int
	TextHash      string // SHA256 hex of the extracted text
	ExtractedText string
	Error         string
	CreatedAt     time.Time
	ProcessedAt   *time.Time
}

// ChunkRecord maps an indexed chunk back to its file.
type ChunkRecord struct {
	ID         string // Composite id "<course>/<file>/<index>"
	FileID     int64
	CourseID   int64
	ChunkIndex int
	WordCount  int
}

// ChatSession is a conversation between a user and a course.
type ChatSession struct {
	ID        int64
	UserID    string
	CourseID  int64
	Title     string
	Context   string // JSON-encoded session context
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is one turn of a chat session.
type Message struct {
	ID        int64
	SessionID int64
	Role      string
	Content   string
	Metadata  string // JSON object
	CreatedAt time.Time
}
