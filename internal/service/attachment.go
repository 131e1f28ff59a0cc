package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"reqdesk/internal/logger"
	"reqdesk/internal/model"
	"reqdesk/internal/repository"
	"reqdesk/internal/storage"
)

const (
	attachmentPrefix = "attachments"
	octetStream      = "application/octet-stream"
	// sniffLen matches mimetype's default read limit.
	sniffLen = 3072
)

// UploadInput describes an incoming attachment payload.
type UploadInput struct {
	Reader           io.Reader
	OriginalFilename string
	ContentType      string
	Size             int64
	TypeName         string
}

// Download is an open attachment payload. The caller must close Body.
type Download struct {
	Attachment *model.Attachment
	Body       io.ReadCloser
	Info       storage.ObjectInfo
}

// AttachmentService manages attachment payloads and their records.
type AttachmentService interface {
	// Upload stores the blob first and removes it again if the record cannot be saved.
	Upload(ctx context.Context, in UploadInput) (*model.Attachment, error)
	Get(ctx context.Context, id int64) (*model.Attachment, error)
	Download(ctx context.Context, id int64) (*Download, error)
	// PresignDownload returns a time limited URL that bypasses the API.
	PresignDownload(ctx context.Context, id int64, expiry time.Duration) (string, error)
	// Delete removes the blob, then the record.
	Delete(ctx context.Context, id int64) error
}

type attachmentService struct {
	store       storage.Storage
	attachments repository.AttachmentRepository
	types       repository.AttachmentTypeRepository
	log         *logger.Logger
	now         func() time.Time
}

// NewAttachmentService constructs a new AttachmentService.
func NewAttachmentService(
	store storage.Storage,
	attachments repository.AttachmentRepository,
	types repository.AttachmentTypeRepository,
	log *logger.Logger,
) AttachmentService {
	if log == nil {
		log = logger.Nop()
	}
	return &attachmentService{store: store, attachments: attachments, types: types, log: log, now: time.Now}
}

func (s *attachmentService) Upload(ctx context.Context, in UploadInput) (*model.Attachment, error) {
	if in.Reader == nil {
		return nil, ErrReaderNil
	}
	base, err := cleanFileName(in.OriginalFilename)
	if err != nil {
		return nil, err
	}

	typ, err := s.types.FindByName(ctx, in.TypeName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, invalid(ReasonUnknownAttachmentType, map[string]any{"type": in.TypeName},
				"incorrect attachment type: %s", in.TypeName)
		}
		return nil, fmt.Errorf("resolve attachment type: %w", err)
	}

	head, body, err := peek(in.Reader)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	fileType := detectFileType(in.ContentType, head, base)

	fileName := uuid.NewString() + "_" + base
	key := path.Join(attachmentPrefix, fileName)

	info, err := s.store.Put(ctx, key, body, storage.PutObjectOptions{
		Size:        in.Size,
		ContentType: fileType,
		Metadata:    map[string]string{"original-filename": base},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	stored, err := s.attachments.Create(ctx, &model.Attachment{
		FileName:       fileName,
		FileType:       fileType,
		StoragePath:    info.Key,
		UploadDateTime: s.now().UTC(),
		AttachmentType: *typ,
	})
	if err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			s.log.Error(s.log.WithField(ctx, "storage_key", key), "attachment_blob_rollback_failed", delErr)
			return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}
	return stored, nil
}

func (s *attachmentService) Get(ctx context.Context, id int64) (*model.Attachment, error) {
	a, err := s.attachments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("Attachment", id)
		}
		return nil, err
	}
	return a, nil
}

func (s *attachmentService) Download(ctx context.Context, id int64) (*Download, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	body, info, err := s.store.Get(ctx, a.StoragePath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, notFound("Attachment file", a.FileName)
		}
		return nil, fmt.Errorf("load from storage: %w", err)
	}
	return &Download{Attachment: a, Body: body, Info: info}, nil
}

func (s *attachmentService) PresignDownload(ctx context.Context, id int64, expiry time.Duration) (string, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return s.store.PresignGet(ctx, a.StoragePath, expiry)
}

func (s *attachmentService) Delete(ctx context.Context, id int64) error {
	a, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	// Keep the row if the blob survives so the storage path is not lost.
	if err := s.store.Delete(ctx, a.StoragePath); err != nil {
		return fmt.Errorf("delete storage: %w", err)
	}
	return s.attachments.DeleteByID(ctx, id)
}

// cleanFileName rejects traversal attempts and strips any directory part.
func cleanFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", invalid(ReasonInvalidFileName, map[string]any{"fileName": name},
			"Filename contains invalid path sequence %s", name)
	}
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	if base == "" || base == "." || base == "/" {
		return "", invalid(ReasonInvalidFileName, map[string]any{"fileName": name},
			"Filename is empty")
	}
	return base, nil
}

// peek reads the leading bytes for sniffing and returns a reader that still yields the whole payload.
func peek(r io.Reader) ([]byte, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, nil, err
	}
	head = head[:n]
	return head, io.MultiReader(bytes.NewReader(head), r), nil
}

// detectFileType prefers the declared type, then the sniffed bytes, then the extension.
func detectFileType(declared string, head []byte, fileName string) string {
	if declared != "" && declared != octetStream {
		return declared
	}
	if len(head) > 0 {
		if detected := mimetype.Detect(head); detected.String() != octetStream {
			return detected.String()
		}
	}
	if byExt := mime.TypeByExtension(path.Ext(fileName)); byExt != "" {
		return byExt
	}
	return octetStream
}
