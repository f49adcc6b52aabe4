package mailsync

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
	"go.uber.org/zap"
)

// imapFetch 连接远端 IMAP 服务器并抓取 INBOX 尾部 window 封邮件
//
// 993 端口隐式 TLS，其余端口明文连接后尝试 STARTTLS。
func (s *Syncer) imapFetch(ctx context.Context, host string, port int, user, password string, window uint32) ([]*RemoteMessage, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	dialer := &net.Dialer{Timeout: 10 * time.Second}

	var c *client.Client
	var err error
	if port == 993 {
		c, err = client.DialWithDialerTLS(dialer, addr, &tls.Config{ServerName: host})
	} else {
		c, err = client.DialWithDialer(dialer, addr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to imap server %s: %w", addr, err)
	}
	defer c.Logout()

	if deadline, ok := ctx.Deadline(); ok {
		c.Timeout = time.Until(deadline)
	}

	if port != 993 {
		if ok, _ := c.SupportStartTLS(); ok {
			if err := c.StartTLS(&tls.Config{ServerName: host}); err != nil {
				return nil, fmt.Errorf("starttls failed: %w", err)
			}
		}
	}

	if err := c.Login(user, password); err != nil {
		return nil, fmt.Errorf("imap login failed: %w", err)
	}

	status, err := c.Select("INBOX", true)
	if err != nil {
		return nil, fmt.Errorf("failed to select inbox: %w", err)
	}
	if status.Messages == 0 {
		return nil, nil
	}

	from := uint32(1)
	if status.Messages > window {
		from = status.Messages - window + 1
	}
	seqset := new(imap.SeqSet)
	seqset.AddRange(from, status.Messages)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, section.FetchItem()}

	ch := make(chan *imap.Message, window)
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, items, ch)
	}()

	var result []*RemoteMessage
	for msg := range ch {
		rm := s.parseMessage(msg, section)
		if rm != nil {
			result = append(result, rm)
		}
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("imap fetch failed: %w", err)
	}
	return result, nil
}

// parseMessage 从 IMAP 应答中提取元数据并解析 MIME 正文
func (s *Syncer) parseMessage(msg *imap.Message, section *imap.BodySectionName) *RemoteMessage {
	if msg == nil || msg.Envelope == nil {
		return nil
	}

	rm := &RemoteMessage{
		MessageID: msg.Envelope.MessageId,
		Subject:   msg.Envelope.Subject,
		Date:      msg.Envelope.Date.UTC(),
	}
	if len(msg.Envelope.From) > 0 {
		rm.From = msg.Envelope.From[0].Address()
	}

	body := msg.GetBody(section)
	if body == nil {
		return rm
	}

	mr, err := mail.CreateReader(body)
	if err != nil {
		s.logger.Debug("failed to parse message body", zap.Error(err))
		return rm
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			s.logger.Debug("failed to read message part", zap.Error(err))
			break
		}

		header, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := header.ContentType()
		content, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}

		switch {
		case strings.HasPrefix(contentType, "text/html") && rm.BodyHTML == "":
			rm.BodyHTML = string(content)
		case strings.HasPrefix(contentType, "text/plain") && rm.BodyText == "":
			rm.BodyText = string(content)
		}
	}

	return rm
}
