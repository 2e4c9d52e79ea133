package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/lk2023060901/file-ingest-service/internal/pkg/errors"
)

// ErrorBody 错误响应结构
type ErrorBody struct {
	Error string `json:"error"`
}

// Success 200，直接输出数据本身
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Created 201，直接输出创建的资源
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// Error 错误响应 {"error": message}
func Error(c *gin.Context, httpStatus int, message string) {
	c.JSON(httpStatus, ErrorBody{Error: message})
}

// HandleError 按 AppError 错误码输出状态码和文案
func HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)

	code := apperrors.ExtractCode(err)
	Error(c, apperrors.GetHTTPStatus(code), apperrors.GetDetails(err))
}

// ErrorWithCode 使用错误码的错误响应
func ErrorWithCode(c *gin.Context, code int, details ...string) {
	msg := apperrors.GetMessage(code)
	if len(details) > 0 && details[0] != "" {
		msg = details[0]
	}
	Error(c, apperrors.GetHTTPStatus(code), msg)
}
