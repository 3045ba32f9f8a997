package auth

import (
	"context"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func passHandler(ctx context.Context, req interface{}) (interface{}, error) {
	return "ok", nil
}

func TestAPIKeyInterceptor(t *testing.T) {
	tests := []struct {
		name     string
		mode     string
		key      string
		md       metadata.MD // nil: no metadata in context
		wantCode codes.Code
	}{
		{"mode none passes", "none", "secret", nil, codes.OK},
		{"empty key passes", ModeAPIKey, "", nil, codes.OK},
		{"correct key", ModeAPIKey, "secret", metadata.Pairs("x-api-key", "secret"), codes.OK},
		{"custom header", ModeAPIKey, "secret", metadata.Pairs("x-switchwatch-token", "secret"), codes.Unauthenticated},
		{"wrong key", ModeAPIKey, "secret", metadata.Pairs("x-api-key", "wrong"), codes.Unauthenticated},
		{"header absent", ModeAPIKey, "secret", metadata.MD{}, codes.Unauthenticated},
		{"no metadata", ModeAPIKey, "secret", nil, codes.Unauthenticated},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			if tc.md != nil {
				ctx = metadata.NewIncomingContext(ctx, tc.md)
			}

			i := APIKeyInterceptor(tc.mode, "x-api-key", tc.key)
			res, err := i(ctx, nil, &grpc.UnaryServerInfo{}, passHandler)

			if code := status.Code(err); code != tc.wantCode {
				t.Fatalf("code: got %v, want %v", code, tc.wantCode)
			}
			if tc.wantCode == codes.OK && res != "ok" {
				t.Errorf("result: got %v, want ok", res)
			}
		})
	}
}
