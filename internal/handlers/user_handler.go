package handlers

import (
	"profiles/internal/handlers/dto"
	"profiles/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Response bodies. Every endpoint answers in plain text except the email lookup.
const (
	MsgUserAdded   = "User added Successfully."
	MsgFeed        = "Got feed data."
	MsgUserDeleted = "Deleted user"
	MsgUserUpdated = "Updated user."

	prefixSignupErr = "Error adding user. "
	prefixUpdateErr = "Something went wrong updating user..."
	msgFeedErr      = "Something went wrong getting feed users."
	msgLookupErr    = "Something went wrong getting user by email."
	msgDeleteErr    = "Something went wrong deleting user..."
	msgInvalidBody  = "Invalid request body."
)

// UserHandler handles HTTP requests for user profiles.
type UserHandler struct {
	service *services.UserService
	logger  *zap.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service *services.UserService, logger *zap.Logger) *UserHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the profile routes with the Fiber app.
func (h *UserHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/signup", h.HandleSignup)
	router.Get("/feed", h.HandleFeed)
	router.Get("/user", h.HandleLookupByEmail)
	router.Delete("/user", h.HandleDelete)
	router.Patch("/user/:userID", h.HandleUpdate)
}

// HandleSignup validates and stores a new user.
func (h *UserHandler) HandleSignup(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := parseBody(c, &req); err != nil {
		h.logger.Debug("Error parsing signup request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).SendString(prefixSignupErr + msgInvalidBody)
	}

	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString(prefixSignupErr + err.Error())
	}

	if err := h.service.Signup(c.UserContext(), req.ToUser()); err != nil {
		h.logFailure("Error adding user", err)
		return c.Status(fiber.StatusBadRequest).SendString(prefixSignupErr + services.MessageOf(err))
	}
	return c.SendString(MsgUserAdded)
}

// HandleFeed reads every user. The records are written to the log only;
// callers get a fixed acknowledgment.
func (h *UserHandler) HandleFeed(c *fiber.Ctx) error {
	users, err := h.service.Feed(c.UserContext())
	if err != nil {
		h.logFailure("Error getting feed", err)
		return c.Status(fiber.StatusBadRequest).SendString(msgFeedErr)
	}
	h.logger.Info("Got feed data", zap.Int("count", len(users)), zap.Any("users", users))
	return c.SendString(MsgFeed)
}

// HandleLookupByEmail returns the users whose email matches the one in the
// request body, falling back to the email query parameter.
func (h *UserHandler) HandleLookupByEmail(c *fiber.Ctx) error {
	var req dto.LookupRequest
	if err := parseBody(c, &req); err != nil {
		h.logger.Debug("Error parsing lookup request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).SendString(msgLookupErr)
	}
	if req.Email == "" {
		req.Email = c.Query("email")
	}

	users, err := h.service.LookupByEmail(c.UserContext(), req.NormalizedEmail())
	if err != nil {
		if services.KindOf(err) == services.KindNotFound {
			return c.Status(fiber.StatusNotFound).SendString(services.MessageOf(err))
		}
		h.logFailure("Error getting user by email", err)
		return c.Status(fiber.StatusBadRequest).SendString(msgLookupErr)
	}
	return c.JSON(users)
}

// HandleDelete deletes the user named by _id in the request body.
func (h *UserHandler) HandleDelete(c *fiber.Ctx) error {
	var req dto.DeleteRequest
	if err := parseBody(c, &req); err != nil {
		h.logger.Debug("Error parsing delete request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).SendString(msgDeleteErr)
	}

	if err := h.service.Delete(c.UserContext(), req.ID); err != nil {
		h.logFailure("Error deleting user", err)
		return c.Status(fiber.StatusBadRequest).SendString(msgDeleteErr)
	}
	return c.SendString(MsgUserDeleted)
}

// HandleUpdate applies a partial update limited to the updatable fields.
func (h *UserHandler) HandleUpdate(c *fiber.Ctx) error {
	userID := c.Params("userID")

	body := c.Body()
	if len(body) == 0 {
		body = []byte("{}")
	}
	req, err := dto.ParseUpdateRequest(body)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString(prefixUpdateErr + err.Error())
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString(prefixUpdateErr + err.Error())
	}

	if _, err := h.service.Update(c.UserContext(), userID, req); err != nil {
		h.logFailure("Error updating user", err, zap.String("user_id", userID))
		return c.Status(fiber.StatusBadRequest).SendString(prefixUpdateErr + services.MessageOf(err))
	}
	return c.SendString(MsgUserUpdated)
}

// parseBody decodes a JSON body into v. An empty body leaves v untouched.
func parseBody(c *fiber.Ctx, v any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	return c.BodyParser(v)
}

// logFailure logs storage failures at error level and everything else,
// which the caller caused, at debug level.
func (h *UserHandler) logFailure(msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("kind", services.KindOf(err).String()), zap.Error(err))
	if services.KindOf(err) == services.KindStorage {
		h.logger.Error(msg, fields...)
		return
	}
	h.logger.Debug(msg, fields...)
}
