package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
	"github.com/walletapi/backend/internal/config"
	"github.com/walletapi/backend/internal/ledger"
	"github.com/walletapi/backend/internal/models"
)

var (
	ErrPaymentRequestNotFound = errors.New("invalid or expired payment request")
	ErrPaymentRequestLimit    = errors.New("too many payment requests, try again later")
)

// PaymentRequest is a one-shot transfer intent created by the payee.
type PaymentRequest struct {
	Code        string          `json:"code"`
	PayeeID     int64           `json:"payee_id"`
	Amount      decimal.Decimal `json:"amount" swaggertype:"string"`
	Description string          `json:"description,omitempty"`
	ExpiresAt   time.Time       `json:"expires_at"`
}

type PaymentRequestService struct {
	redis   *redis.Client
	engine  *ledger.Engine
	cfg     *config.PaymentRequestConfig
	now     func() time.Time
	newCode func() (string, error)
}

func NewPaymentRequestService(redisClient *redis.Client, engine *ledger.Engine, cfg *config.PaymentRequestConfig) *PaymentRequestService {
	s := &PaymentRequestService{
		redis:  redisClient,
		engine: engine,
		cfg:    cfg,
		now:    time.Now,
	}
	s.newCode = s.generateNonce
	return s
}

// Create stores a payment request for payeeID and renders its code as a base64 PNG.
func (s *PaymentRequestService) Create(ctx context.Context, payeeID int64, amount decimal.Decimal, description string) (*PaymentRequest, string, error) {
	if err := s.checkRate(ctx, payeeID); err != nil {
		return nil, "", err
	}

	code, err := s.newCode()
	if err != nil {
		return nil, "", err
	}

	req := &PaymentRequest{
		Code:        code,
		PayeeID:     payeeID,
		Amount:      amount,
		Description: description,
		ExpiresAt:   s.now().Add(s.cfg.TTL).UTC(),
	}

	data, err := json.Marshal(req)
	if err != nil {
		return nil, "", err
	}

	if err := s.redis.Set(ctx, s.key(code), data, s.cfg.TTL).Err(); err != nil {
		return nil, "", fmt.Errorf("failed to store payment request: %w", err)
	}

	qr, err := qrcode.New(code, qrcode.Medium)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(s.cfg.QRSize)); err != nil {
		return nil, "", err
	}

	return req, base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Pay consumes the payment request and transfers its amount from the actor to the payee.
// A request is consumed by exactly one caller; if the transfer fails it is restored
// for the rest of its lifetime.
func (s *PaymentRequestService) Pay(ctx context.Context, actor ledger.Actor, code string) (*ledger.Receipt, error) {
	key := s.key(code)

	data, err := s.redis.GetDel(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrPaymentRequestNotFound
	}
	if err != nil {
		return nil, err
	}

	var req PaymentRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}

	metadata := models.Metadata{"payment_request": code}
	if req.Description != "" {
		metadata["description"] = req.Description
	}

	receipt, err := s.engine.Transfer(ctx, actor, req.PayeeID, req.Amount, metadata)
	if err != nil {
		if ttl := req.ExpiresAt.Sub(s.now()); ttl > 0 {
			if rerr := s.redis.Set(ctx, key, data, ttl).Err(); rerr != nil {
				log.Printf("[QR] failed to restore payment request: %v", rerr)
			}
		}
		return nil, err
	}

	return receipt, nil
}

func (s *PaymentRequestService) checkRate(ctx context.Context, payeeID int64) error {
	if s.cfg.MaxPerMinute <= 0 {
		return nil
	}

	key := fmt.Sprintf("%srate:%d", s.cfg.KeyPrefix, payeeID)
	count, err := s.redis.Incr(ctx, key).Result()
	if err != nil {
		return err
	}
	if count == 1 {
		if err := s.redis.Expire(ctx, key, time.Minute).Err(); err != nil {
			return err
		}
	}
	if count > int64(s.cfg.MaxPerMinute) {
		return ErrPaymentRequestLimit
	}
	return nil
}

func (s *PaymentRequestService) key(code string) string {
	return s.cfg.KeyPrefix + code
}

func (s *PaymentRequestService) generateNonce() (string, error) {
	b := make([]byte, s.cfg.NonceBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
