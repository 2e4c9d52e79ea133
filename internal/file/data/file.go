package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lk2023060901/file-ingest-service/internal/file/biz"
	"github.com/lk2023060901/file-ingest-service/internal/pkg/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FilePO 文件元数据表
type FilePO struct {
	ID         string    `gorm:"type:varchar(36);primarykey"`
	Filename   string    `gorm:"size:255;not null;uniqueIndex:uk_files_filename"`
	Mimetype   string    `gorm:"size:255;not null"`
	Size       int64     `gorm:"not null"`
	Path       string    `gorm:"size:1024;not null"`
	UploadDate time.Time `gorm:"not null;index"`
}

func (FilePO) TableName() string {
	return "files"
}

// FileRepo 基于 gorm 的元数据仓储，支持 postgres 和 sqlite
type FileRepo struct {
	db *database.DB
}

func NewFileRepo(db *database.DB) biz.FileRepo {
	return &FileRepo{db: db}
}

// Migrate 建表及文件名唯一索引
func (r *FileRepo) Migrate() error {
	return r.db.AutoMigrate(&FilePO{})
}

func (r *FileRepo) Create(ctx context.Context, rec *biz.FileRecord) error {
	po := &FilePO{
		ID:         uuid.New().String(),
		Filename:   rec.Filename,
		Mimetype:   rec.Mimetype,
		Size:       rec.Size,
		Path:       rec.Path,
		UploadDate: rec.UploadDate.UTC(),
	}

	if err := r.db.WithContext(ctx).Create(po).Error; err != nil {
		if database.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", biz.ErrDuplicate, rec.Filename)
		}
		return err
	}

	rec.ID = po.ID
	return nil
}

func (r *FileRepo) GetByFilename(ctx context.Context, filename string) (*biz.FileRecord, error) {
	return r.first(ctx, "filename = ?", filename)
}

func (r *FileRepo) GetByID(ctx context.Context, id string) (*biz.FileRecord, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *FileRepo) DeleteByID(ctx context.Context, id string) (*biz.FileRecord, error) {
	var deleted *biz.FileRecord

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var po FilePO
		if err := tx.Clauses(lockingClause(tx)...).Where("id = ?", id).First(&po).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if err := tx.Delete(&FilePO{}, "id = ?", id).Error; err != nil {
			return err
		}
		deleted = toRecord(&po)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func (r *FileRepo) first(ctx context.Context, query string, arg any) (*biz.FileRecord, error) {
	var po FilePO
	if err := r.db.WithContext(ctx).Where(query, arg).First(&po).Error; err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}
	return toRecord(&po), nil
}

// sqlite 不支持 SELECT ... FOR UPDATE
func lockingClause(tx *gorm.DB) []clause.Expression {
	if tx.Dialector.Name() == database.DriverSQLite {
		return nil
	}
	return []clause.Expression{clause.Locking{Strength: "UPDATE"}}
}

func toRecord(po *FilePO) *biz.FileRecord {
	return &biz.FileRecord{
		ID:         po.ID,
		Filename:   po.Filename,
		Mimetype:   po.Mimetype,
		Size:       po.Size,
		Path:       po.Path,
		UploadDate: po.UploadDate.UTC(),
	}
}
