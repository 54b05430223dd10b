package email

import (
	"context"
	"fmt"
	"net/smtp"
)

type RefundApprovedData struct {
	Email       string
	OrderNumber string
	Amount      int64 // minor currency units
}

type RefundRejectedData struct {
	Email       string
	OrderNumber string
	Reason      string
}

type EmailService interface {
	SendRefundApprovedEmail(ctx context.Context, data RefundApprovedData) error
	SendRefundRejectedEmail(ctx context.Context, data RefundRejectedData) error
}

type smtpEmailService struct {
	smtpAddr string
	smtpFrom string
}

func NewSMTPEmailService(smtpHost, smtpPort, from string) EmailService {
	return &smtpEmailService{
		smtpAddr: smtpHost + ":" + smtpPort,
		smtpFrom: from,
	}
}

func (s *smtpEmailService) SendRefundApprovedEmail(ctx context.Context, data RefundApprovedData) error {
	subject := fmt.Sprintf("Your refund for order %s has been approved", data.OrderNumber)
	body := fmt.Sprintf(`Hello,

Your refund request for order %s has been approved.

Refund amount: %d.%02d

The amount will be returned to your original payment method within 5-10 business days.`,
		data.OrderNumber, data.Amount/100, data.Amount%100)

	return s.send(data.Email, subject, body)
}

func (s *smtpEmailService) SendRefundRejectedEmail(ctx context.Context, data RefundRejectedData) error {
	subject := fmt.Sprintf("Your refund request for order %s was declined", data.OrderNumber)
	body := fmt.Sprintf(`Hello,

Unfortunately your refund request for order %s was declined.

Reason: %s

If you believe this is a mistake, please reply to this email.`,
		data.OrderNumber, data.Reason)

	return s.send(data.Email, subject, body)
}

func (s *smtpEmailService) send(to, subject, body string) error {
	msg := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		s.smtpFrom, to, subject, body))
	return smtp.SendMail(s.smtpAddr, nil, s.smtpFrom, []string{to}, msg)
}
