package port

import (
	"context"
	"time"
)

// ReportObject описывает объект отчета в хранилище
type ReportObject struct {
	Key          string
	URL          string
	LastModified time.Time
	SizeBytes    int64
}

// ReportArchive определяет интерфейс для хранения отчетов (Port)
type ReportArchive interface {
	// PutObject загружает объект и возвращает URL для чтения.
	PutObject(ctx context.Context, key, contentType string, body []byte) (string, error)

	// ListObjects возвращает объекты под префиксом, не больше limit.
	ListObjects(ctx context.Context, prefix string, limit int) ([]ReportObject, error)

	// GetObjectURL возвращает URL для чтения объекта.
	GetObjectURL(ctx context.Context, key string) (string, error)
}
