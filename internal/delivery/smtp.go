package delivery

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
)

const smtpDialTimeout = 10 * time.Second

// SMTPTransport 通用 SMTP 提交传输
//
// 端口 465 使用隐式 TLS，其余端口要求 STARTTLS；
// 配置了用户名密码时使用 SASL PLAIN 认证。
type SMTPTransport struct {
	Host     string
	Port     int
	Username string
	Password string

	name string
}

// NewSMTPTransport 创建通用 SMTP 传输
func NewSMTPTransport(host string, port int, username, password string) *SMTPTransport {
	if port <= 0 {
		port = 587
	}
	return &SMTPTransport{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		name:     "smtp",
	}
}

// Name 实现 Transport
func (t *SMTPTransport) Name() string {
	return t.name
}

// Send 实现 Transport
func (t *SMTPTransport) Send(ctx context.Context, email *Email) (string, error) {
	addr := net.JoinHostPort(t.Host, strconv.Itoa(t.Port))

	dialer := &net.Dialer{Timeout: smtpDialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(30 * time.Second))
	}

	var client *smtp.Client
	if t.Port == 465 {
		// 465 端口约定为隐式 TLS
		conn = tls.Client(conn, &tls.Config{ServerName: t.Host})
		client = smtp.NewClient(conn)
	} else {
		client, err = smtp.NewClientStartTLS(conn, &tls.Config{ServerName: t.Host})
		if err != nil {
			_ = conn.Close()
			return "", fmt.Errorf("starttls failed: %w", err)
		}
	}
	defer client.Close()

	if t.Username != "" && t.Password != "" {
		auth := sasl.NewPlainClient("", t.Username, t.Password)
		if err := client.Auth(auth); err != nil {
			return "", fmt.Errorf("smtp auth failed: %w", err)
		}
	}

	messageID := fmt.Sprintf("%s@%s", uuid.NewString(), t.Host)
	raw, err := buildRawMessage(email, messageID)
	if err != nil {
		return "", fmt.Errorf("failed to build message: %w", err)
	}

	if err := client.Mail(email.From, nil); err != nil {
		return "", fmt.Errorf("mail from rejected: %w", err)
	}
	if err := client.Rcpt(email.To, nil); err != nil {
		return "", fmt.Errorf("rcpt to rejected: %w", err)
	}

	wc, err := client.Data()
	if err != nil {
		return "", fmt.Errorf("data command failed: %w", err)
	}
	if _, err := wc.Write(raw); err != nil {
		_ = wc.Close()
		return "", fmt.Errorf("failed to write message body: %w", err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("message rejected: %w", err)
	}

	_ = client.Quit()
	return "<" + messageID + ">", nil
}

// buildRawMessage 生成 RFC 5322 消息
//
// 同时存在 HTML 和纯文本时发送 multipart/alternative；
// 头部编码与传输编码交给 go-message 处理。
func buildRawMessage(email *Email, messageID string) ([]byte, error) {
	var h mail.Header
	h.SetDate(time.Now().UTC())
	h.SetAddressList("From", []*mail.Address{{Address: email.From}})
	h.SetAddressList("To", []*mail.Address{{Address: email.To}})
	h.SetSubject(email.Subject)
	h.SetMessageID(messageID)

	var buf bytes.Buffer
	switch {
	case email.BodyHTML != "" && email.BodyText != "":
		w, err := mail.CreateInlineWriter(&buf, h)
		if err != nil {
			return nil, err
		}
		if err := writeInlinePart(w, "text/plain", email.BodyText); err != nil {
			return nil, err
		}
		if err := writeInlinePart(w, "text/html", email.BodyHTML); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	case email.BodyHTML != "":
		if err := writeSinglePart(&buf, h, "text/html", email.BodyHTML); err != nil {
			return nil, err
		}
	default:
		if err := writeSinglePart(&buf, h, "text/plain", email.BodyText); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func writeInlinePart(w *mail.InlineWriter, contentType, body string) error {
	var h mail.InlineHeader
	h.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	pw, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(pw, body); err != nil {
		return err
	}
	return pw.Close()
}

func writeSinglePart(buf *bytes.Buffer, h mail.Header, contentType, body string) error {
	h.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	w, err := mail.CreateSingleInlineWriter(buf, h)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, body); err != nil {
		return err
	}
	return w.Close()
}
