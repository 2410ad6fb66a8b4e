package dto

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/sixcities/pkg/constants"
	"github.com/turtacn/sixcities/pkg/errors"
)

// APIResponse 通用 API 响应结构
type APIResponse struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Error     *ErrorDTO `json:"error,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp int64     `json:"timestamp"`
}

// ErrorDTO 错误信息 DTO
type ErrorDTO struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// SuccessResponse 创建成功响应
func SuccessResponse(data any, requestID string) *APIResponse {
	return &APIResponse{
		Success:   true,
		Data:      data,
		RequestID: requestID,
		Timestamp: time.Now().Unix(),
	}
}

// ErrorResponse 创建错误响应. Errors outside the taxonomy are reported as
// internal errors without their text.
func ErrorResponse(err error, requestID string) *APIResponse {
	var errorDTO *ErrorDTO
	if appErr, ok := errors.As(err); ok {
		errorDTO = &ErrorDTO{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		}
	} else {
		errorDTO = &ErrorDTO{
			Code:    errors.CodeInternal,
			Message: errors.ErrInternal.Message,
		}
	}

	return &APIResponse{
		Success:   false,
		Error:     errorDTO,
		RequestID: requestID,
		Timestamp: time.Now().Unix(),
	}
}

// RateLimitExceededResponse 创建速率限制响应
func RateLimitExceededResponse(retryAfter int64, requestID string) *APIResponse {
	return ErrorResponse(errors.ErrRateLimited.WithDetails(map[string]any{
		"retry_after": retryAfter,
	}), requestID)
}

// SendSuccess writes data in the success envelope. 204 carries no body.
func SendSuccess(c *gin.Context, status int, data any) {
	if status == http.StatusNoContent {
		c.Status(status)
		return
	}
	c.JSON(status, SuccessResponse(data, RequestID(c)))
}

// SendError writes err in the error envelope with its mapped status.
func SendError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(errors.HTTPStatus(err), ErrorResponse(err, RequestID(c)))
}

// RequestID returns the id assigned by the request id middleware.
func RequestID(c *gin.Context) string {
	return c.GetString(string(constants.ContextKeyRequestID))
}
