package data

import (
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"time"
)

// GenerateName 生成存储名 <毫秒时间戳>-<随机数>.<扩展名>
//
// 扩展名取自原始文件名，仅保留字母和数字，原始文件名的其余部分不会出现在存储名中。
func GenerateName(now time.Time, original string) string {
	name := fmt.Sprintf("%d-%d", now.UnixMilli(), rand.Int64N(1e9))
	if ext := sanitizeExt(filepath.Ext(original)); ext != "" {
		name += "." + ext
	}
	return name
}

func sanitizeExt(ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	var b strings.Builder
	for _, r := range ext {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() > 16 {
		return ""
	}
	return b.String()
}
