package activity

import "errors"

var (
	// ErrArchiveBacklog is returned when the archive queue is full. The
	// write is dropped and counted.
	ErrArchiveBacklog = errors.New("activity: archive queue full")

	// ErrArchiveClosed is returned for writes after ArchiveWriter.Close.
	ErrArchiveClosed = errors.New("activity: archive closed")
)
