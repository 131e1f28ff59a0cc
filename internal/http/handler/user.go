package handler

import (
	"github.com/gofiber/fiber/v2"

	"reqdesk/internal/model"
	"reqdesk/internal/service"
)

// Today reports the current calendar day in the service time zone.
type Today func() model.Date

type createUserBody struct {
	Name       string     `json:"name" validate:"required,max=255"`
	CivilID    string     `json:"civilId" validate:"required,max=64"`
	ExpiryDate model.Date `json:"expiryDate" validate:"required" swaggertype:"string" example:"2030-12-31"`
}

type updateUserBody struct {
	Name       string     `json:"name" validate:"required,max=255"`
	ExpiryDate model.Date `json:"expiryDate" validate:"required" swaggertype:"string" example:"2030-12-31"`
}

// futureDate adds the expiryDate problem when d is not after today.
func futureDate(problems map[string]any, d model.Date, today Today) map[string]any {
	if d.IsZero() || d.After(today()) {
		return problems
	}
	if problems == nil {
		problems = map[string]any{}
	}
	problems["expiryDate"] = "must be in the future"
	return problems
}

// CreateUser registers a user, or reactivates a retired one with the same civil id.
//
// @Summary  Create user
// @Tags     users
// @Accept   json
// @Produce  json
// @Param    body body createUserBody true "User"
// @Success  201 {object} service.UserView
// @Failure  400 {object} errorPayload
// @Failure  422 {object} errorPayload
// @Router   /api/users [post]
func CreateUser(svc service.UserService, today Today) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body createUserBody
		problems := bindJSON(c, &body)
		if problems = futureDate(problems, body.ExpiryDate, today); problems != nil {
			return writeValidation(c, problems)
		}

		user, err := svc.Create(c.UserContext(), service.CreateUserInput{
			Name:       body.Name,
			CivilID:    body.CivilID,
			ExpiryDate: body.ExpiryDate,
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(user)
	}
}

// GetUser returns an active user.
//
// @Summary  Get user
// @Tags     users
// @Produce  json
// @Param    id path int true "User ID"
// @Success  200 {object} service.UserView
// @Failure  404 {object} errorPayload
// @Router   /api/users/{id} [get]
func GetUser(svc service.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := paramID(c, "id")
		if !ok {
			return writeInvalidID(c)
		}
		user, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(user)
	}
}

// UpdateUser changes name and expiry date of an active user.
//
// @Summary  Update user
// @Tags     users
// @Accept   json
// @Produce  json
// @Param    id   path int            true "User ID"
// @Param    body body updateUserBody true "User"
// @Success  200 {object} service.UserView
// @Failure  400 {object} errorPayload
// @Failure  404 {object} errorPayload
// @Router   /api/users/{id} [put]
func UpdateUser(svc service.UserService, today Today) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := paramID(c, "id")
		if !ok {
			return writeInvalidID(c)
		}
		var body updateUserBody
		problems := bindJSON(c, &body)
		if problems = futureDate(problems, body.ExpiryDate, today); problems != nil {
			return writeValidation(c, problems)
		}

		user, err := svc.Update(c.UserContext(), id, service.UpdateUserInput{
			Name:       body.Name,
			ExpiryDate: body.ExpiryDate,
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(user)
	}
}

// DeleteUser retires a user.
//
// @Summary  Delete user
// @Tags     users
// @Param    id path int true "User ID"
// @Success  204
// @Failure  404 {object} errorPayload
// @Router   /api/users/{id} [delete]
func DeleteUser(svc service.UserService) fiber.Handler {
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
