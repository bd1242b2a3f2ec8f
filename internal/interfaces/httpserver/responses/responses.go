package responses

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"genai-console/internal/utils/platformerrors"
)

type ErrorResponse struct {
	Code          string `json:"code"`
	Error         string `json:"error"`
	ErrorInstance error  `json:"-"`
	RequestID     string `json:"request_id,omitempty"`
}

// HandleError handles domain errors and returns appropriate HTTP responses
// The message parameter is used directly as the error message in the response
// Status code is automatically determined from the error type
func HandleError(reqCtx *gin.Context, err error, message string) {
	var domainErr *platformerrors.PlatformError
	if errors.As(err, &domainErr) {
		statusCode := platformerrors.ErrorTypeToHTTPStatus(domainErr.GetErrorType())

		errResp := ErrorResponse{
			Code:          string(domainErr.GetErrorType()),
			Error:         message,
			ErrorInstance: domainErr,
			RequestID:     domainErr.RequestID,
		}

		reqCtx.AbortWithStatusJSON(statusCode, errResp)
		return
	}

	// assign generic error response for non-domain errors
	errResp := ErrorResponse{
		Code:          string(platformerrors.ErrorTypeInternal),
		Error:         message,
		ErrorInstance: err,
	}
	reqCtx.AbortWithStatusJSON(http.StatusInternalServerError, errResp)
}

// HandleErrorWithStatus handles domain errors with a custom status code
// Use this when you need to override the default status code mapping
func HandleErrorWithStatus(reqCtx *gin.Context, statusCode int, err error, message string) {
	errResp := ErrorResponse{
		Error:         message,
		ErrorInstance: err,
	}
	var domainErr *platformerrors.PlatformError
	if errors.As(err, &domainErr) {
		errResp.Code = string(domainErr.GetErrorType())
		errResp.RequestID = domainErr.RequestID
	}
	reqCtx.AbortWithStatusJSON(statusCode, errResp)
}

type GeneralResponse[T any] struct {
	Status string `json:"status"`
	Result T      `json:"result"`
}

type ListResponse[T any] struct {
	Object string `json:"object"`
	Data   []T    `json:"data"`
}
