package handler

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"reqdesk/internal/model"
	"reqdesk/internal/service"
)

const (
	defaultLinkExpiry = 15 * time.Minute
	maxLinkExpiry     = 7 * 24 * time.Hour
)

type attachmentView struct {
	ID             int64                `json:"id"`
	FileName       string               `json:"fileName"`
	FileType       string               `json:"fileType"`
	UploadDateTime time.Time            `json:"uploadDateTime"`
	AttachmentType model.AttachmentType `json:"attachmentType"`
	RequestID      *int64               `json:"requestId,omitempty"`
	DownloadURL    string               `json:"downloadUrl"`
}

func toAttachmentView(a *model.Attachment) attachmentView {
	return attachmentView{
		ID:             a.ID,
		FileName:       a.FileName,
		FileType:       a.FileType,
		UploadDateTime: a.UploadDateTime,
		AttachmentType: a.AttachmentType,
		RequestID:      a.RequestID,
		DownloadURL:    "/api/attachments/download/" + strconv.FormatInt(a.ID, 10),
	}
}

// UploadAttachment stores a multipart file (field "file") under the type named by field "type".
//
// @Summary  Upload attachment
// @Tags     attachments
// @Accept   multipart/form-data
// @Produce  json
// @Param    file formData file   true "File"
// @Param    type formData string true "Attachment type name"
// @Success  201 {object} attachmentView
// @Failure  400 {object} errorPayload
// @Failure  422 {object} errorPayload
// @Router   /api/attachments/upload [post]
func UploadAttachment(svc service.AttachmentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		typeName := c.FormValue("type")
		if typeName == "" {
			return writeValidation(c, map[string]any{"type": "is required"})
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		att, err := svc.Upload(c.UserContext(), service.UploadInput{
			Reader:           f,
			OriginalFilename: fh.Filename,
			ContentType:      fh.Header.Get("Content-Type"),
			Size:             fh.Size,
			TypeName:         typeName,
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(toAttachmentView(att))
	}
}

// GetAttachment returns attachment metadata.
//
// @Summary  Get attachment
// @Tags     attachments
// @Produce  json
// @Param    id path int true "Attachment ID"
// @Success  200 {object} attachmentView
// @Failure  404 {object} errorPayload
// @Router   /api/attachments/{id} [get]
func GetAttachment(svc service.AttachmentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := paramID(c, "id")
		if !ok {
			return writeInvalidID(c)
		}
		att, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(toAttachmentView(att))
	}
}

// DownloadAttachment streams the stored file.
//
// @Summary  Download attachment
// @Tags     attachments
// @Produce  octet-stream
// @Param    id path int true "Attachment ID"
// @Success  200 {file} binary
// @Failure  404 {object} errorPayload
// @Router   /api/attachments/download/{id} [get]
func DownloadAttachment(svc service.AttachmentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := paramID(c, "id")
		if !ok {
			return writeInvalidID(c)
		}
		dl, err := svc.Download(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}

		c.Attachment(dl.Attachment.FileName)
		contentType := dl.Attachment.FileType
		if contentType == "" {
			contentType = dl.Info.ContentType
		}
		if contentType != "" {
			c.Set(fiber.HeaderContentType, contentType)
		}
		// fasthttp closes the body once it has been written.
		return c.SendStream(dl.Body, int(dl.Info.Size))
	}
}

// AttachmentLink returns a pre-signed URL for direct download from object storage.
//
// @Summary  Pre-signed download link
// @Tags     attachments
// @Produce  json
// @Param    id     path  int    true  "Attachment ID"
// @Param    expiry query string false "Link lifetime, e.g. 15m"
// @Success  200 {object} map[string]string
// @Failure  404 {object} errorPayload
// @Router   /api/attachments/{id}/link [get]
func AttachmentLink(svc service.AttachmentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := paramID(c, "id")
		if !ok {
			return writeInvalidID(c)
		}
		expiry := defaultLinkExpiry
		if raw := c.Query("expiry"); raw != "" {
			d, err := time.ParseDuration(raw)
			if err != nil || d <= 0 || d > maxLinkExpiry {
				return writeValidation(c, map[string]any{"expiry": "must be a duration between 1s and 168h"})
			}
			expiry = d
		}
		url, err := svc.PresignDownload(c.UserContext(), id, expiry)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"url": url, "expiresIn": expiry.String()})
	}
}

// DeleteAttachment removes the stored file and its record.
//
// @Summary  Delete attachment
// @Tags     attachments
// @Param    id path int true "Attachment ID"
// @Success  204
// @Failure  404 {object} errorPayload
// @Router   /api/attachments/{id} [delete]
func DeleteAttachment(svc service.AttachmentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := paramID(c, "id")
		if !ok {
			return writeInvalidID(c)
		}
		if err := svc.Delete(c.UserContext(), id); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
