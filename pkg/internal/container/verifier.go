package container

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yeisme/codespace/pkg/configs"
	"github.com/yeisme/codespace/pkg/errs"
)

// Verifier 校验容器的机器凭证是否可以访问 workspaceID.
type Verifier interface {
	Verify(ctx context.Context, credential, workspaceID string) error
}

// NewVerifier 按配置创建 Verifier.
func NewVerifier(cfg configs.ContainerConfig) (Verifier, error) {
	switch cfg.Mode {
	case "", "static":
		if cfg.SharedSecret == "" {
			return nil, errors.New("container.shared_secret is required in static mode")
		}

		return NewStaticSecretVerifier(cfg.SharedSecret), nil
	case "token":
		if cfg.TokenSecret == "" {
			return nil, errors.New("container.token_secret is required in token mode")
		}

		return NewTokenVerifier(cfg.TokenSecret, cfg.TokenIssuer), nil
	default:
		return nil, fmt.Errorf("unsupported container credential mode: %s", cfg.Mode)
	}
}

// StaticSecretVerifier 所有容器共享一个密钥.
type StaticSecretVerifier struct {
	secret []byte
}

// NewStaticSecretVerifier 创建 StaticSecretVerifier.
func NewStaticSecretVerifier(secret string) *StaticSecretVerifier {
	return &StaticSecretVerifier{secret: []byte(secret)}
}

func (v *StaticSecretVerifier) Verify(_ context.Context, credential, _ string) error {
	if len(v.secret) == 0 || credential == "" {
		return errs.PermissionDenied("container credential required")
	}

	if subtle.ConstantTimeCompare([]byte(credential), v.secret) != 1 {
		return errs.PermissionDenied("invalid container credential")
	}

	return nil
}

// TokenClaims 容器令牌，绑定单个工作区.
type TokenClaims struct {
	WorkspaceID string `json:"ws"`
	jwt.RegisteredClaims
}

// TokenVerifier 校验 HS256 签名、签发方、有效期以及工作区绑定.
type TokenVerifier struct {
	secret []byte
	issuer string
}

// NewTokenVerifier 创建 TokenVerifier.
func NewTokenVerifier(secret, issuer string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret), issuer: issuer}
}

// Issue 为容器签发访问 workspaceID 的令牌.
func (v *TokenVerifier) Issue(workspaceID, containerID string, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := TokenClaims{
		WorkspaceID: workspaceID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.issuer,
			Subject:   containerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

func (v *TokenVerifier) Verify(_ context.Context, credential, workspaceID string) error {
	if credential == "" {
		return errs.PermissionDenied("container credential required")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims TokenClaims

	_, err := jwt.ParseWithClaims(credential, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return errs.PermissionDenied("invalid container token").Wrap(err)
	}

	if claims.WorkspaceID != workspaceID {
		return errs.PermissionDenied("container token is not valid for this workspace").
			With("workspace_id", workspaceID)
	}

	return nil
}
