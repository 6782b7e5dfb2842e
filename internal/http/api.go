package http

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"user-service/internal/domain"
	"user-service/internal/observability"
	"user-service/internal/service"
)

//go:embed openapi.yaml
var openapiSpec []byte

// Handler wires HTTP routes to the user service.
type Handler struct {
	users   service.UserService
	ready   func(ctx context.Context) error
	metrics *observability.Metrics
	logger  logrus.FieldLogger
}

func NewHandler(users service.UserService, ready func(ctx context.Context) error, metrics *observability.Metrics, logger logrus.FieldLogger) *Handler {
	return &Handler{
		users:   users,
		ready:   ready,
		metrics: metrics,
		logger:  logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/healthz", h.healthz)
	router.GET("/readyz", h.readyz)
	router.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	router.GET("/openapi.yaml", h.openapi)

	api := router.Group("/api/v1")
	{
		api.GET("/users", h.listUsers)
		api.GET("/users/:id", h.getUser)
		api.GET("/users/username/:username", h.getUserByUsername)
		api.POST("/users", h.createUser)
		api.PUT("/users/:id", h.updateUser)
		api.DELETE("/users/:id", h.deleteUser)
	}
}

func (h *Handler) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) readyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.ready(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) openapi(c *gin.Context) {
	c.Data(http.StatusOK, "application/yaml", openapiSpec)
}

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context())
	if err != nil {
		h.internalError(c, err)
		return
	}

	resp := make([]UserResponse, len(users))
	for i := range users {
		resp[i] = userToResponse(users[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getUser(c *gin.Context) {
	id, ok := h.userID(c)
	if !ok {
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, errorResponse{Message: fmt.Sprintf("User not found with id: %d", id)})
			return
		}
		h.internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, userToResponse(*user))
}

func (h *Handler) getUserByUsername(c *gin.Context) {
	username := c.Param("username")

	user, err := h.users.GetUserByUsername(c.Request.Context(), username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, errorResponse{Message: fmt.Sprintf("User not found with username: %s", username)})
			return
		}
		h.internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, userToResponse(*user))
}

func (h *Handler) createUser(c *gin.Context) {
	var req UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.validationError(c, err)
		return
	}

	user, err := h.users.CreateUser(c.Request.Context(), service.UserInput{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		h.writeMutationError(c, err, 0, req)
		return
	}

	c.JSON(http.StatusCreated, userToResponse(*user))
}

func (h *Handler) updateUser(c *gin.Context) {
	id, ok := h.userID(c)
	if !ok {
		return
	}

	var req UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.validationError(c, err)
		return
	}

	user, err := h.users.UpdateUser(c.Request.Context(), id, service.UserInput{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		h.writeMutationError(c, err, id, req)
		return
	}

	c.JSON(http.StatusOK, userToResponse(*user))
}

func (h *Handler) deleteUser(c *gin.Context) {
	id, ok := h.userID(c)
	if !ok {
		return
	}

	if err := h.users.DeleteUser(c.Request.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, errorResponse{Message: fmt.Sprintf("User not found with id: %d", id)})
			return
		}
		h.internalError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) userID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, errorResponse{Message: "Invalid user id"})
		return 0, false
	}
	return id, true
}

// writeMutationError maps the business failures of create/update to their
// status codes and user-facing messages.
func (h *Handler) writeMutationError(c *gin.Context, err error, id int64, req UserRequest) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Message: fmt.Sprintf("User not found with id: %d", id)})
	case errors.Is(err, domain.ErrDuplicateUsername):
		c.JSON(http.StatusConflict, errorResponse{Message: fmt.Sprintf("Username already exists: %s", req.Username)})
	case errors.Is(err, domain.ErrDuplicateEmail):
		c.JSON(http.StatusConflict, errorResponse{Message: fmt.Sprintf("Email already exists: %s", req.Email)})
	case errors.Is(err, domain.ErrVersionConflict):
		c.JSON(http.StatusConflict, errorResponse{Message: "User was modified concurrently, please retry"})
	default:
		h.internalError(c, err)
	}
}

func (h *Handler) validationError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			details[jsonFieldName(fe.Field())] = validationMessage(fe)
		}
		c.JSON(http.StatusBadRequest, errorResponse{Message: "Validation failed", Errors: details})
		return
	}
	c.JSON(http.StatusBadRequest, errorResponse{Message: "Invalid request body"})
}

func (h *Handler) internalError(c *gin.Context, err error) {
	h.logger.WithField("request_id", c.GetString(requestIDKey)).WithError(err).Error("request failed")
	c.JSON(http.StatusInternalServerError, errorResponse{Message: "Internal server error"})
}

func jsonFieldName(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	default:
		return "Invalid value"
	}
}
