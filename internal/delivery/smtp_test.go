package delivery

import (
	"bytes"
	"io"
	"testing"

	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSMTPTransport(t *testing.T) {
	t.Run("端口缺省为587", func(t *testing.T) {
		transport := NewSMTPTransport("smtp.example.com", 0, "u", "p")
		assert.Equal(t, 587, transport.Port)
		assert.Equal(t, "smtp", transport.Name())
	})
}

func TestBuildRawMessage(t *testing.T) {
	t.Run("双正文生成multipart且头部可解码", func(t *testing.T) {
		raw, err := buildRawMessage(&Email{
			From:     "alice@example.com",
			To:       "bob@other.com",
			Subject:  "会议纪要",
			BodyText: "纯文本正文",
			BodyHTML: "<p>HTML 正文</p>",
		}, "m1@example.com")
		require.NoError(t, err)

		r, err := mail.CreateReader(bytes.NewReader(raw))
		require.NoError(t, err)

		subject, err := r.Header.Subject()
		require.NoError(t, err)
		assert.Equal(t, "会议纪要", subject)

		id, err := r.Header.MessageID()
		require.NoError(t, err)
		assert.Equal(t, "m1@example.com", id)

		from, err := r.Header.AddressList("From")
		require.NoError(t, err)
		require.Len(t, from, 1)
		assert.Equal(t, "alice@example.com", from[0].Address)

		var bodies []string
		for {
			part, err := r.NextPart()
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
			data, err := io.ReadAll(part.Body)
			require.NoError(t, err)
			bodies = append(bodies, string(data))
		}
		require.Len(t, bodies, 2)
		assert.Equal(t, "纯文本正文", bodies[0])
		assert.Contains(t, bodies[1], "HTML 正文")
	})

	t.Run("仅文本为单部件消息", func(t *testing.T) {
		raw, err := buildRawMessage(&Email{
			From: "a@x.com", To: "b@y.com", Subject: "hi", BodyText: "hello",
		}, "m2@x.com")
		require.NoError(t, err)

		r, err := mail.CreateReader(bytes.NewReader(raw))
		require.NoError(t, err)

		part, err := r.NextPart()
		require.NoError(t, err)
		data, err := io.ReadAll(part.Body)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(data))

		_, err = r.NextPart()
		assert.Equal(t, io.EOF, err)
	})
}
