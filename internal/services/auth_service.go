package services

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
	"golang.org/x/crypto/argon2"
)

// AuthService issues the short-lived JWTs bot processes use against the
// guild routes. Clients authenticate with a pre-shared API key whose
// argon2id hash is configured on the server; raw keys are never stored.
type AuthService struct {
	redis     *redis.Client
	validator *ValidationHelper
}

func NewAuthService(redisClient *redis.Client) *AuthService {
	return &AuthService{
		redis:     redisClient,
		validator: NewValidationHelper(),
	}
}

// TokenRequest is the token exchange payload
// @Description Token request structure
type TokenRequest struct {
	ClientID string `json:"client_id" validate:"required"`
	APIKey   string `json:"api_key" validate:"required,min=16"`
}

// TokenResponse carries the issued bearer token
// @Description Token response structure
type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"` // seconds
}

// IssueToken exchanges an API key for a JWT
// @Summary Issue service token
// @Description Exchange a configured client API key for a short-lived bearer token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body TokenRequest true "Token request"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Router /auth/token [post]
func (s *AuthService) IssueToken(w http.ResponseWriter, r *http.Request) {
	log.Printf("[AUTH] Token request from IP: %s", r.RemoteAddr)

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req TokenRequest
	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	expectedClient := viper.GetString("auth.client_id")
	keyHash := viper.GetString("auth.api_key_hash")
	if expectedClient == "" || keyHash == "" {
		log.Printf("[AUTH] Auth not configured, rejecting token request")
		SendErrorResponse(w, "Invalid credentials", http.StatusUnauthorized, nil)
		return
	}

	if req.ClientID != expectedClient || !verifyAPIKey(req.APIKey, keyHash) {
		log.Printf("[AUTH] Invalid credentials for client: %s", req.ClientID)
		SendErrorResponse(w, "Invalid credentials", http.StatusUnauthorized, nil)
		return
	}

	expiry := time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}

	token, err := generateServiceJWT(req.ClientID, expiry)
	if err != nil {
		log.Printf("[AUTH] JWT generation failed for client %s: %v", req.ClientID, err)
		SendErrorResponse(w, "Failed to generate token", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[AUTH] Token issued for client %s", req.ClientID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(TokenResponse{
		Token:     token,
		ExpiresIn: int(expiry.Seconds()),
	})
}

// RevokeToken denylists a bearer token until its natural expiry
// @Summary Revoke service token
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]string
// @Router /auth/revoke [post]
func (s *AuthService) RevokeToken(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("Authorization")
	if token != "" && len(token) > 7 {
		token = token[7:] // Remove "Bearer " prefix

		if s.redis != nil {
			ctx := context.Background()
			key := fmt.Sprintf("denylist:%s", token)
			expiry := time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour
			if expiry <= 0 {
				expiry = 24 * time.Hour
			}
			if err := s.redis.Set(ctx, key, "1", expiry).Err(); err != nil {
				log.Printf("[AUTH] Failed to denylist token: %v", err)
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Token revoked"})
}

func generateServiceJWT(clientID string, expiry time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"client_id": clientID,
		"iat":       time.Now().Unix(),
		"exp":       time.Now().Add(expiry).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(viper.GetString("jwt.secret_key")))
}

// HashAPIKey produces the encoded argon2id hash stored in configuration.
// Exposed so operators can provision keys from a small helper command.
func HashAPIKey(apiKey string, salt []byte) string {
	hash := argon2.IDKey([]byte(apiKey), salt, 1, 64*1024, 4, 32)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, 64*1024, 1, 4,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash))
}

func verifyAPIKey(apiKey, encodedHash string) bool {
	salt, hash, params, err := decodeAPIKeyHash(encodedHash)
	if err != nil {
		log.Printf("[AUTH] Malformed api key hash: %v", err)
		return false
	}
	computed := argon2.IDKey([]byte(apiKey), salt, params.time, params.memory, params.threads, uint32(len(hash)))
	return subtle.ConstantTimeCompare(hash, computed) == 1
}

type argon2Params struct {
	memory  uint32
	time    uint32
	threads uint8
}

func decodeAPIKeyHash(encoded string) ([]byte, []byte, argon2Params, error) {
	var params argon2Params
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, nil, params, errors.New("unexpected hash format")
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.memory, &params.time, &params.threads); err != nil {
		return nil, nil, params, err
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, params, err
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, params, err
	}
	return salt, hash, params, nil
}
