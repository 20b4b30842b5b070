package email

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/example/stock-alerts/internal/alert"
)

// Service sends stock alert emails via SMTP.
type Service struct {
	host string
	port string
	from string
}

func NewService(host, port, from string) *Service {
	return &Service{
		host: host,
		port: port,
		from: from,
	}
}

// SendStockAlert emails one recipient about one alert record.
func (s *Service) SendStockAlert(ctx context.Context, to string, record alert.Record) error {
	var subject string
	switch record.Classification {
	case alert.ClassificationLowStock:
		subject = fmt.Sprintf("[Stock alert] Low stock: %s", record.ProductName)
	case alert.ClassificationOverstock:
		subject = fmt.Sprintf("[Stock alert] Overstock: %s", record.ProductName)
	default:
		subject = fmt.Sprintf("[Stock alert] %s", record.ProductName)
	}

	body := BuildStockAlertBody(record)
	return s.send(ctx, to, subject, body)
}

// send runs the blocking SMTP exchange under the caller's deadline. SendMail
// itself cannot be interrupted, so the exchange runs in its own goroutine
// and the caller stops waiting when the context expires.
func (s *Service) send(ctx context.Context, to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)

	errCh := make(chan error, 1)
	go func() {
		errCh <- smtp.SendMail(addr, nil, s.from, []string{to}, []byte(msg))
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
