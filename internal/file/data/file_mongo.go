package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lk2023060901/file-ingest-service/internal/file/biz"
	pkgmongo "github.com/lk2023060901/file-ingest-service/internal/pkg/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultCollection 默认集合名
const DefaultCollection = "files"

// fileDoc 文件元数据文档
type fileDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Filename   string             `bson:"filename"`
	Mimetype   string             `bson:"mimetype"`
	Size       int64              `bson:"size"`
	Path       string             `bson:"path"`
	UploadDate time.Time          `bson:"uploadDate"`
}

// MongoFileRepo 基于 MongoDB 的元数据仓储
type MongoFileRepo struct {
	coll *mongo.Collection
}

// NewMongoFileRepo 创建仓储，collection 为空时使用 DefaultCollection
func NewMongoFileRepo(client *pkgmongo.Client, collection string) *MongoFileRepo {
	if collection == "" {
		collection = DefaultCollection
	}
	return &MongoFileRepo{coll: client.DB().Collection(collection)}
}

// EnsureIndexes 创建文件名唯一索引
func (r *MongoFileRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "filename", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uk_files_filename"),
	})
	if err != nil {
		return fmt.Errorf("failed to create filename index: %w", err)
	}
	return nil
}

func (r *MongoFileRepo) Create(ctx context.Context, rec *biz.FileRecord) error {
	doc := fileDoc{
		ID:         primitive.NewObjectID(),
		Filename:   rec.Filename,
		Mimetype:   rec.Mimetype,
		Size:       rec.Size,
		Path:       rec.Path,
		UploadDate: rec.UploadDate.UTC(),
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", biz.ErrDuplicate, rec.Filename)
		}
		return err
	}

	rec.ID = doc.ID.Hex()
	return nil
}

func (r *MongoFileRepo) GetByFilename(ctx context.Context, filename string) (*biz.FileRecord, error) {
	return r.findOne(ctx, bson.M{"filename": filename})
}

func (r *MongoFileRepo) GetByID(ctx context.Context, id string) (*biz.FileRecord, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		// 非法 ID 与不存在同等对待
		return nil, nil
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *MongoFileRepo) DeleteByID(ctx context.Context, id string) (*biz.FileRecord, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	var doc fileDoc
	if err := r.coll.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return doc.toRecord(), nil
}

func (r *MongoFileRepo) findOne(ctx context.Context, filter bson.M) (*biz.FileRecord, error) {
	var doc fileDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return doc.toRecord(), nil
}

func (d *fileDoc) toRecord() *biz.FileRecord {
	return &biz.FileRecord{
		ID:         d.ID.Hex(),
		Filename:   d.Filename,
		Mimetype:   d.Mimetype,
		Size:       d.Size,
		Path:       d.Path,
		UploadDate: d.UploadDate.UTC(),
	}
}
