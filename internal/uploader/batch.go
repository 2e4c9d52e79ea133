package uploader

import (
	"context"
	"errors"
	"sync"

	"github.com/lk2023060901/file-ingest-service/internal/pkg/workerpool"
)

var errTaskAborted = errors.New("upload task aborted")

// UploadAll 通过 worker pool 并发上传，结果顺序与 paths 一致
func UploadAll(ctx context.Context, op Operation, paths []string, pool *workerpool.Pool) []*Result {
	results := make([]*Result, len(paths))

	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			results[i] = op.UploadUnique(ctx, path)
		})
		if err != nil {
			wg.Done()
			results[i] = failed(path, err)
		}
	}
	wg.Wait()

	for i, res := range results {
		// 任务 panic 时没有结果
		if res == nil {
			results[i] = failed(paths[i], errTaskAborted)
		}
	}
	return results
}

func failed(path string, err error) *Result {
	return &Result{
		Path:    path,
		Status:  StatusUploadFailed,
		Message: "Error: Failed to upload file: " + err.Error(),
		Err:     err,
	}
}
