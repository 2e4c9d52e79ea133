package biz

import (
	"errors"
	"fmt"
)

// 文件相关错误
var (
	ErrValidation   = errors.New("file validation failed")
	ErrDuplicate    = errors.New("file already exists")
	ErrStore        = errors.New("metadata store failure")
	ErrFileNotFound = errors.New("file not found")
)

// ValidationError 类型或大小不符合策略
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrValidation, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// DuplicateError 文件名已存在
type DuplicateError struct {
	Filename string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("File with name '%s' already exists in the system", e.Filename)
}

func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

// StoreError 元数据存储不可用或拒绝写入
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("metadata store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}
