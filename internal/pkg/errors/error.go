package errors

import (
	"errors"
	"fmt"
)

// AppError 携带业务错误码的错误
type AppError struct {
	Code    int
	Message string
	Err     error
	Details string
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	if e.Details != "" {
		return fmt.Sprintf("[%d] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// PublicMessage 返回给客户端的文案：优先使用详情
func (e *AppError) PublicMessage() string {
	if e.Details != "" {
		return e.Details
	}
	return e.Message
}

// New 按错误码创建错误
func New(code int, details ...string) *AppError {
	return &AppError{
		Code:    code,
		Message: GetMessage(code),
		Details: first(details),
	}
}

// Wrap 用错误码包装底层错误；已是 AppError 时原样返回
func Wrap(err error, code int, details ...string) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return &AppError{
		Code:    code,
		Message: GetMessage(code),
		Err:     err,
		Details: first(details),
	}
}

// ExtractCode 提取错误码，非 AppError 视为内部错误
func ExtractCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternalServer
}

// GetDetails 提取错误详情
func GetDetails(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.PublicMessage()
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

func first(details []string) string {
	if len(details) > 0 {
		return details[0]
	}
	return ""
}
