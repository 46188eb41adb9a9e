package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/neooriginal/FSCS/internal/apperr"
)

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// classifyStatus turns a non-2xx provider response into a taxonomy error.
// This is the only place provider failures are classified.
func classifyStatus(status int, body []byte) error {
	detail := fmt.Sprintf("provider status %d", status)
	var errResp errorResponse
	if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
		detail = fmt.Sprintf("provider status %d: %s", status, errResp.Error.Message)
	}
	cause := errors.New(detail)

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperr.Wrap(apperr.InvalidCredential, "Your API key appears to be invalid or has expired. Please enter a valid OpenAI API key.", cause)
	case status == http.StatusTooManyRequests:
		return apperr.Wrap(apperr.RateLimited, "Rate limit exceeded. Please try again later or check your OpenAI account usage limits.", cause)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return apperr.Wrap(apperr.UpstreamTimeout, "The request to the model provider timed out. Please try again.", cause)
	case status == http.StatusNotFound:
		return &apperr.Error{Kind: apperr.Validation, Code: "model_not_found", Message: "The requested model or job was not found. It may have been deleted or is not available in your account.", Err: cause}
	case status >= 400 && status < 500:
		msg := "The model provider rejected the request."
		if errResp.Error.Message != "" {
			msg = errResp.Error.Message
		}
		return apperr.Wrap(apperr.Validation, msg, cause)
	default:
		return apperr.Wrap(apperr.Upstream, "An OpenAI server error occurred. Please try again later.", cause)
	}
}

func classifyTransport(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return apperr.Wrap(apperr.UpstreamTimeout, "The request to the model provider timed out. Please try again.", err)
	}
	return apperr.Wrap(apperr.Upstream, "Could not reach the model provider.", err)
}

func malformed(detail string) error {
	return apperr.Wrap(apperr.Upstream, "The model provider returned a malformed response.", errors.New(detail))
}
