package biz

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// DefaultMaxSize HTTP 上传的默认大小上限 (5 MiB)
const DefaultMaxSize int64 = 5 * 1024 * 1024

// DefaultAllowedTypes 默认允许的 MIME 前缀
var DefaultAllowedTypes = []string{
	"image/",
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// Policy 上传校验策略：MIME 前缀白名单 + 大小上限
type Policy struct {
	MaxSize      int64
	AllowedTypes []string
}

// DefaultPolicy 返回默认策略
func DefaultPolicy() Policy {
	return Policy{
		MaxSize:      DefaultMaxSize,
		AllowedTypes: append([]string(nil), DefaultAllowedTypes...),
	}
}

// Validate 校验声明的 MIME 类型和大小，通过返回 nil，否则返回 *ValidationError
func (p Policy) Validate(mimetype string, size int64) error {
	if size < 0 {
		return &ValidationError{Reason: fmt.Sprintf("invalid size %d", size)}
	}
	if size > p.MaxSize {
		return &ValidationError{Reason: fmt.Sprintf("size %s exceeds limit %s",
			humanize.IBytes(uint64(size)), humanize.IBytes(uint64(p.MaxSize)))}
	}
	if !p.Allows(mimetype) {
		return &ValidationError{Reason: fmt.Sprintf("mimetype %q is not allowed", mimetype)}
	}
	return nil
}

// Allows 判断 MIME 类型是否命中白名单前缀（忽略大小写和参数）
func (p Policy) Allows(mimetype string) bool {
	mt := normalizeMimetype(mimetype)
	if mt == "" {
		return false
	}
	for _, prefix := range p.AllowedTypes {
		if prefix != "" && strings.HasPrefix(mt, strings.ToLower(prefix)) {
			return true
		}
	}
	return false
}

func normalizeMimetype(mimetype string) string {
	if i := strings.IndexByte(mimetype, ';'); i >= 0 {
		mimetype = mimetype[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimetype))
}
