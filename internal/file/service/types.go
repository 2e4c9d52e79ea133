package service

import (
	"time"

	"github.com/lk2023060901/file-ingest-service/internal/file/biz"
)

// FileResponse 文件记录的 JSON 表示
type FileResponse struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	Mimetype   string    `json:"mimetype"`
	Size       int64     `json:"size"`
	Path       string    `json:"path"`
	UploadDate time.Time `json:"uploadDate"`
}

// ExistsResponse 查重结果
type ExistsResponse struct {
	Exists bool `json:"exists"`
}

func toResponse(rec *biz.FileRecord) *FileResponse {
	return &FileResponse{
		ID:         rec.ID,
		Filename:   rec.Filename,
		Mimetype:   rec.Mimetype,
		Size:       rec.Size,
		Path:       rec.Path,
		UploadDate: rec.UploadDate,
	}
}
