package service

import (
	"context"
	"errors"
	"os"
	"time"

	"ai-recorder-be/internal/config"
	"ai-recorder-be/internal/dto"
	"ai-recorder-be/internal/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type IAuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error)
}

type authService struct {
	operatorName  string
	operatorId    uuid.UUID
	accessKeyHash []byte
	logger        logger.ILogger
}

// NewAuthService sets up the single-operator login. The operator id is
// derived from the name so it survives restarts; sessions recorded before a
// restart still belong to the operator who logs back in.
func NewAuthService(cfg config.AuthConfig, log logger.ILogger) (IAuthService, error) {
	hash := []byte(cfg.AccessKeyHash)
	if len(hash) == 0 {
		if cfg.AccessKey == "" {
			return nil, errors.New("no operator access key configured")
		}
		derived, err := bcrypt.GenerateFromPassword([]byte(cfg.AccessKey), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		hash = derived
	}

	return &authService{
		operatorName:  cfg.OperatorName,
		operatorId:    uuid.NewSHA1(uuid.NameSpaceOID, []byte("operator:"+cfg.OperatorName)),
		accessKeyHash: hash,
		logger:        log,
	}, nil
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	// 1. Compare access key
	err := bcrypt.CompareHashAndPassword(s.accessKeyHash, []byte(req.AccessKey))
	if err != nil {
		s.logger.Warn("AUTH", "Login rejected: invalid access key", nil)
		return nil, errors.New("invalid credentials")
	}

	// 2. Generate JWT
	accessTokenExpiry := time.Hour * 24

	claims := jwt.MapClaims{
		"user_id": s.operatorId.String(),
		"role":    "operator",
		"exp":     time.Now().Add(accessTokenExpiry).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "default_secret"
	}
	signedToken, err := token.SignedString([]byte(secret))
	if err != nil {
		return nil, err
	}

	s.logger.Info("AUTH", "Operator logged in", map[string]interface{}{"operator": s.operatorName})

	return &dto.LoginResponse{
		AccessToken: signedToken,
		Operator: dto.OperatorDTO{
			Id:   s.operatorId,
			Name: s.operatorName,
			Role: "operator",
		},
	}, nil
}
