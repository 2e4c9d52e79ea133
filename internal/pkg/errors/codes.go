package errors

import "net/http"

// Code 业务错误码及其对应的 HTTP 状态
type Code struct {
	Code    int
	Status  int
	Message string
}

const (
	// 通用错误 (1000-1999)
	ErrInternalServer = 1000
	ErrRouteNotFound  = 1009

	// 文件错误 (6000-6999)
	ErrFileRejected     = 6000
	ErrFileDuplicate    = 6001
	ErrFileNotFound     = 6002
	ErrFileStoreFailed  = 6003
	ErrBlobStoreFailed  = 6004
	ErrFilePathRequired = 6005
)

// MsgFileRejected 上传校验失败时的固定响应文案
const MsgFileRejected = "File type is not allowed or no file uploaded"

var codeMap = map[int]Code{
	ErrInternalServer: {ErrInternalServer, http.StatusInternalServerError, "Internal server error"},
	ErrRouteNotFound:  {ErrRouteNotFound, http.StatusNotFound, "Route not found"},

	ErrFileRejected:     {ErrFileRejected, http.StatusBadRequest, MsgFileRejected},
	ErrFileDuplicate:    {ErrFileDuplicate, http.StatusConflict, "File already exists"},
	ErrFileNotFound:     {ErrFileNotFound, http.StatusNotFound, "File not found"},
	ErrFileStoreFailed:  {ErrFileStoreFailed, http.StatusInternalServerError, "Metadata store operation failed"},
	ErrBlobStoreFailed:  {ErrBlobStoreFailed, http.StatusInternalServerError, "Failed to store uploaded file"},
	ErrFilePathRequired: {ErrFilePathRequired, http.StatusBadRequest, "file_path query parameter is required"},
}

// GetCode 返回错误码定义，未知错误码按内部错误处理
func GetCode(code int) Code {
	if c, ok := codeMap[code]; ok {
		return c
	}
	return codeMap[ErrInternalServer]
}

// GetHTTPStatus 返回错误码对应的 HTTP 状态
func GetHTTPStatus(code int) int {
	return GetCode(code).Status
}

// GetMessage 返回错误码的默认文案
func GetMessage(code int) string {
	return GetCode(code).Message
}
