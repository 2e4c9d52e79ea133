package uploader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"
)

// ErrIntegrity 服务端记录的大小与本地文件不一致
var ErrIntegrity = errors.New("upload integrity check failed")

// 错误响应体的读取上限
const maxErrorBody = 64 << 10

// StatusError 服务端返回了非预期的状态码
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server responded with status %d", e.Code)
	}
	return fmt.Sprintf("server responded with status %d: %s", e.Code, e.Message)
}

// Temporary 5xx 和 429 可以重试
func (e *StatusError) Temporary() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

// RemoteFile 服务端返回的文件记录
type RemoteFile struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	Mimetype   string    `json:"mimetype"`
	Size       int64     `json:"size"`
	Path       string    `json:"path"`
	UploadDate time.Time `json:"uploadDate"`
}

// Client 文件服务 HTTP 客户端
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient endpoint 形如 http://host:3000/api
func NewClient(endpoint string, hc *http.Client) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid endpoint %q: must be an absolute http(s) URL", endpoint)
	}
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{endpoint: strings.TrimRight(endpoint, "/"), http: hc}, nil
}

// Exists GET <endpoint>/exists?file_path=
func (c *Client) Exists(ctx context.Context, filePath string) (bool, error) {
	u := c.endpoint + "/exists?" + url.Values{"file_path": {filePath}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, readStatusError(resp)
	}

	var body struct {
		Exists *bool `json:"exists"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("failed to decode exists response: %w", err)
	}
	if body.Exists == nil {
		return false, errors.New("exists response has no exists field")
	}
	return *body.Exists, nil
}

// Upload POST <endpoint>/upload，multipart 字段名 file，请求体通过 io.Pipe 流式发送
func (c *Client) Upload(ctx context.Context, fs afero.Fs, localPath string, size int64) (*RemoteFile, error) {
	f, err := fs.Open(localPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	contentType, err := detectContentType(localPath, f)
	if err != nil {
		return nil, err
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	done := make(chan struct{})

	go func() {
		defer close(done)

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`,
			escapeQuotes(filepath.Base(localPath))))
		h.Set("Content-Type", contentType)

		part, err := mw.CreatePart(h)
		if err == nil {
			_, err = io.Copy(part, f)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()
	// 等待写入协程退出后再关闭文件
	defer func() {
		_ = pr.Close()
		<-done
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/upload", pr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, readStatusError(resp)
	}

	var rf RemoteFile
	if err := json.NewDecoder(resp.Body).Decode(&rf); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}
	if rf.Size != size {
		return &rf, fmt.Errorf("%w: server recorded %d bytes, local file has %d", ErrIntegrity, rf.Size, size)
	}
	return &rf, nil
}

// detectContentType 优先按扩展名推断，未知时嗅探内容
func detectContentType(path string, f afero.File) (string, error) {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); ct != "" {
		return ct, nil
	}

	detected, err := mimetype.DetectReader(f)
	if err != nil {
		return "", fmt.Errorf("failed to detect content type: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return detected.String(), nil
}

func readStatusError(resp *http.Response) *StatusError {
	se := &StatusError{Code: resp.StatusCode}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		se.Message = body.Error
	} else {
		se.Message = strings.TrimSpace(string(raw))
	}
	return se
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
