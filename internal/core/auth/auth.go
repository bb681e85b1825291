// Package auth provides HMAC request signing for the gRPC validation service.
//
// Clients sign the content they submit with a shared secret and send
// "x-signature: <secret_id>:<hex hmac>" metadata. Several secrets may be
// active at once so keys can be rotated without downtime.
package auth

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// SignatureHeader is the metadata key carrying the request signature.
const SignatureHeader = "x-signature"

// contextKey is a typed key for context values to avoid collisions.
type contextKey string

// secretIDKey is the context key for the secret that verified the request.
const secretIDKey = contextKey("secret_id")

// PayloadFunc extracts the signed bytes from a request message. It returns
// false when the message carries nothing to sign.
type PayloadFunc func(req any) ([]byte, bool)

// Verifier checks request signatures against an in-memory secret map.
type Verifier struct {
	secrets map[string][]byte
	payload PayloadFunc
}

// NewVerifier creates a verifier over secret_id -> secret.
func NewVerifier(secrets map[string][]byte, payload PayloadFunc) *Verifier {
	return &Verifier{secrets: secrets, payload: payload}
}

// Verify checks header against payload and returns the secret ID used.
func (v *Verifier) Verify(header string, payload []byte) (string, error) {
	secretID, mac, err := ParseSignature(header)
	if err != nil {
		return "", err
	}

	secret, ok := v.secrets[secretID]
	if !ok {
		return "", ErrUnknownSecret
	}

	if !VerifyHMAC(mac, ComputeHMAC(secret, payload)) {
		return "", ErrInvalidSignature
	}
	return secretID, nil
}

// UnaryInterceptor returns a gRPC interceptor that rejects unsigned or
// wrongly signed requests. Methods whose messages carry no payload (the
// PayloadFunc returns false) pass through unchecked.
func (v *Verifier) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		payload, ok := v.payload(req)
		if !ok {
			return handler(ctx, req)
		}

		md, _ := metadata.FromIncomingContext(ctx)
		headers := md.Get(SignatureHeader)
		if len(headers) == 0 {
			return nil, status.Error(codes.Unauthenticated, ErrMissingSignature.Error())
		}

		secretID, err := v.Verify(headers[0], payload)
		if err != nil {
			if errors.Is(err, ErrInvalidSignatureFormat) {
				return nil, status.Error(codes.InvalidArgument, err.Error())
			}
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}

		ctx = context.WithValue(ctx, secretIDKey, secretID)
		return handler(ctx, req)
	}
}

// SecretIDFromContext returns the secret ID that verified the request, or
// the empty string for unsigned requests.
func SecretIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(secretIDKey).(string); ok {
		return id
	}
	return ""
}
