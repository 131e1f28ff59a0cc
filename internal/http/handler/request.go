package handler

import (
	"github.com/gofiber/fiber/v2"

	"reqdesk/internal/service"
)

type createRequestBody struct {
	RequestName   string  `json:"requestName" validate:"required,max=255"`
	StatusID      int64   `json:"statusId" validate:"required,gt=0"`
	UserID        int64   `json:"userId" validate:"required,gt=0"`
	AttachmentIDs []int64 `json:"attachmentIds" validate:"max=100,dive,gt=0"`
}

// updateRequestBody leaves attachments untouched when attachmentIds is empty or missing.
type updateRequestBody struct {
	RequestName   string  `json:"requestName" validate:"required,max=255"`
	StatusID      int64   `json:"statusId" validate:"required,gt=0"`
	AttachmentIDs []int64 `json:"attachmentIds" validate:"omitempty,max=100,dive,gt=0"`
}

// CreateRequest opens a request for an eligible user.
//
// @Summary  Create request
// @Tags     requests
// @Accept   json
// @Produce  json
// @Param    body body createRequestBody true "Request"
// @Success  201 {object} service.RequestView
// @Failure  400 {object} errorPayload
// @Failure  404 {object} errorPayload
// @Failure  422 {object} errorPayload
// @Router   /api/requests [post]
func CreateRequest(svc service.RequestService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body createRequestBody
		if problems := bindJSON(c, &body); problems != nil {
			return writeValidation(c, problems)
		}
		req, err := svc.Create(c.UserContext(), service.CreateRequestInput{
			RequestName:   body.RequestName,
			StatusID:      body.StatusID,
			OwnerID:       body.UserID,
			AttachmentIDs: body.AttachmentIDs,
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(req)
	}
}

// GetRequest returns one request.
//
// @Summary  Get request
// @Tags     requests
// @Produce  json
// @Param    id path int true "Request ID"
// @Success  200 {object} service.RequestView
// @Failure  404 {object} errorPayload
// @Router   /api/requests/{id} [get]
func GetRequest(svc service.RequestService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := paramID(c, "id")
		if !ok {
			return writeInvalidID(c)
		}
		req, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(req)
	}
}

// ListRequestsByUser returns every request of an active user.
//
// @Summary  List requests of a user
// @Tags     requests
// @Produce  json
// @Param    userId path int true "User ID"
// @Success  200 {array} service.RequestView
// @Failure  404 {object} errorPayload
// @Router   /api/requests/user/{userId} [get]
func ListRequestsByUser(svc service.RequestService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := paramID(c, "userId")
		if !ok {
			return writeInvalidID(c)
		}
		items, err := svc.ListByOwner(c.UserContext(), userID)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(items)
	}
}

// UpdateRequest renames a request, moves its status and optionally swaps its attachments.
//
// @Summary  Update request
// @Tags     requests
// @Accept   json
// @Produce  json
// @Param    id   path int               true "Request ID"
// @Param    body body updateRequestBody true "Request"
// @Success  200 {object} service.RequestView
// @Failure  400 {object} errorPayload
// @Failure  404 {object} errorPayload
// @Failure  422 {object} errorPayload
// @Router   /api/requests/{id} [put]
func UpdateRequest(svc service.RequestService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := paramID(c, "id")
		if !ok {
			return writeInvalidID(c)
		}
		var body updateRequestBody
		if problems := bindJSON(c, &body); problems != nil {
			return writeValidation(c, problems)
		}
		req, err := svc.Update(c.UserContext(), id, service.UpdateRequestInput{
			RequestName:   body.RequestName,
			StatusID:      body.StatusID,
			AttachmentIDs: body.AttachmentIDs,
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(req)
	}
}

// CancelRequest moves a request to CANCELLED.
//
// @Summary  Cancel request
// @Tags     requests
// @Produce  json
// @Param    id path int true "Request ID"
// @Success  200 {object} service.RequestView
// @Failure  404 {object} errorPayload
// @Router   /api/requests/{id}/cancel [post]
func CancelRequest(svc service.RequestService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := paramID(c, "id")
		if !ok {
			return writeInvalidID(c)
		}
		req, err := svc.Cancel(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(req)
	}
}

// DeleteRequest removes a request. Its attachments stay available.
//
// @Summary  Delete request
// @Tags     requests
// @Param    id path int true "Request ID"
// @Success  204
// @Failure  404 {object} errorPayload
// @Router   /api/requests/{id} [delete]
func DeleteRequest(svc service.RequestService) fiber.Handler {
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
