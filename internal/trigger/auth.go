package trigger

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/shaiso/Orbita/internal/domain"
	"github.com/shaiso/Orbita/internal/telemetry"
)

// Заголовки аутентификации webhook.
const (
	headerSecret    = "X-Webhook-Secret"
	headerSignature = "X-Webhook-Signature"
)

// Authenticator проверяет входящие webhook запросы.
//
// Проверки идут в фиксированном порядке, первая неудачная
// прерывает обработку: метод, IP, обязательные заголовки, секрет.
// Отклонённый запрос не оставляет записи об execution.
type Authenticator struct{}

// NewAuthenticator создаёт Authenticator.
func NewAuthenticator() *Authenticator {
	return &Authenticator{}
}

// Authenticate проверяет запрос против конфигурации триггера.
func (a *Authenticator) Authenticate(trig *domain.Trigger, req *WebhookRequest) error {
	cfg := &trig.Config

	if err := a.checkMethod(cfg, req.Method); err != nil {
		telemetry.WebhookRejections.WithLabelValues("method").Inc()
		return err
	}
	if err := a.checkIP(cfg, req); err != nil {
		telemetry.WebhookRejections.WithLabelValues("ip").Inc()
		return err
	}
	if err := a.checkHeaders(cfg, req.Headers); err != nil {
		telemetry.WebhookRejections.WithLabelValues("headers").Inc()
		return err
	}
	if err := a.checkSecret(cfg, req); err != nil {
		telemetry.WebhookRejections.WithLabelValues("auth").Inc()
		return err
	}
	return nil
}

// checkMethod проверяет HTTP метод. Пустой список разрешает только POST.
func (a *Authenticator) checkMethod(cfg *domain.TriggerConfig, method string) error {
	allowed := cfg.AllowedMethods
	if len(allowed) == 0 {
		allowed = []string{http.MethodPost}
	}
	for _, m := range allowed {
		if strings.EqualFold(m, method) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrMethodNotAllowed, method)
}

// checkIP проверяет IP клиента против allowlist.
func (a *Authenticator) checkIP(cfg *domain.TriggerConfig, req *WebhookRequest) error {
	if len(cfg.IPAllowlist) == 0 {
		return nil
	}

	clientIP := req.ClientIP()
	for _, ip := range cfg.IPAllowlist {
		if ip == clientIP {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrIPNotAllowed, clientIP)
}

// checkHeaders проверяет наличие обязательных заголовков с точным
// значением.
func (a *Authenticator) checkHeaders(cfg *domain.TriggerConfig, headers http.Header) error {
	for name, expected := range cfg.RequiredHeaders {
		if headers.Get(name) != expected {
			return fmt.Errorf("%w: %s", ErrHeaderMissing, name)
		}
	}
	return nil
}

// checkSecret проверяет секрет или HMAC подпись тела запроса.
//
// Принимаются два варианта: X-Webhook-Secret с самим секретом либо
// X-Webhook-Signature с base64 HMAC-SHA256 от сырого тела.
func (a *Authenticator) checkSecret(cfg *domain.TriggerConfig, req *WebhookRequest) error {
	if cfg.WebhookSecret == "" {
		return nil
	}

	if secret := req.Headers.Get(headerSecret); secret != "" {
		if hmac.Equal([]byte(secret), []byte(cfg.WebhookSecret)) {
			return nil
		}
		return fmt.Errorf("%w: secret mismatch", ErrAuthFailed)
	}

	if signature := req.Headers.Get(headerSignature); signature != "" {
		mac := hmac.New(sha256.New, []byte(cfg.WebhookSecret))
		mac.Write(req.Body)
		expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
		return fmt.Errorf("%w: signature mismatch", ErrAuthFailed)
	}

	return fmt.Errorf("%w: no credentials provided", ErrAuthFailed)
}

// GenerateSecret генерирует криптографически стойкий webhook секрет.
func GenerateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// clientIP извлекает IP клиента: первый адрес X-Forwarded-For,
// затем X-Real-IP, затем host часть RemoteAddr.
func clientIP(headers http.Header, remoteAddr string) string {
	if fwd := headers.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	if real := headers.Get("X-Real-IP"); real != "" {
		return strings.TrimSpace(real)
	}
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
