package api

import (
	"context"
	"errors"

	"github.com/solatis/linewarden/internal/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// statusFor maps engine and registry errors to gRPC status codes.
// Anything the scan returns that is not a context error comes from the
// submitted content (line too long, undecodable bytes) and is the caller's fault.
func statusFor(err error) error {
	switch {
	case errors.Is(err, types.ErrRuleSetNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, types.ErrNilSource):
		return status.Error(codes.Internal, err.Error())
	default:
		return status.Error(codes.InvalidArgument, err.Error())
	}
}
