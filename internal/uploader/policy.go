package uploader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
)

// DefaultMaxSize 客户端本地校验的大小上限 (10 MiB)
const DefaultMaxSize int64 = 10 * 1024 * 1024

// DefaultExtensions 允许上传的扩展名
var DefaultExtensions = []string{".jpg", ".png", ".pdf", ".docx"}

// ValidationError 本地校验失败，Message 直接展示给用户
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Policy 本地校验策略
type Policy struct {
	MaxSize    int64
	Extensions []string
}

func DefaultPolicy() Policy {
	return Policy{
		MaxSize:    DefaultMaxSize,
		Extensions: append([]string(nil), DefaultExtensions...),
	}
}

// Check 校验文件存在、大小和扩展名，通过时返回文件信息
func (p Policy) Check(fs afero.Fs, path string) (os.FileInfo, error) {
	info, err := fs.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &ValidationError{Message: "Error: file does not exist"}
		}
		return nil, &ValidationError{Message: fmt.Sprintf("Error: cannot access file: %v", err)}
	}
	if info.IsDir() {
		return nil, &ValidationError{Message: "Error: path is a directory"}
	}
	if info.Size() > p.MaxSize {
		return nil, &ValidationError{Message: fmt.Sprintf("Error: file size %s exceeds the %s limit",
			humanize.IBytes(uint64(info.Size())), humanize.IBytes(uint64(p.MaxSize)))}
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !p.allowsExt(ext) {
		return nil, &ValidationError{Message: fmt.Sprintf("Error: file extension %q is not allowed", ext)}
	}
	return info, nil
}

func (p Policy) allowsExt(ext string) bool {
	if ext == "" {
		return false
	}
	for _, allowed := range p.Extensions {
		if strings.EqualFold(ext, allowed) {
			return true
		}
	}
	return false
}
