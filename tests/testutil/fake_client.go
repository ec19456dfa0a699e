// Package testutil provides shared helpers for package tests: an
// in-memory history store and a scripted fake of the wire-protocol
// client.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/billylighter/telegrab/internal/telegram"
)

// SentMessage records one SendMessage call made against a fake client.
type SentMessage struct {
	Target string
	Text   string
}

// FakeService scripts the behavior of the remote messaging service. All
// clients built by its Factory share it, mirroring how real clients
// bound to different session artifacts talk to one backend.
//
// A fake session artifact is a plain file whose content is either
// "blank" or "authorized"; renaming the file carries authorization with
// it, exactly like an opaque real artifact would.
type FakeService struct {
	Me          telegram.Identity
	CorrectCode string
	CodeHash    string

	// Password, when non-empty, enables two-step verification.
	Password string

	Dialogs  []telegram.Dialog
	Messages map[int64][]telegram.Message

	// HasPhoto makes GetMe report a profile photo and
	// DownloadProfilePhoto produce a file.
	HasPhoto bool

	// ConnectErr, SendCodeErr make the corresponding calls fail.
	ConnectErr  error
	SendCodeErr error

	mu       sync.Mutex
	Sent     []SentMessage
	Connects int
}

// NewFakeService returns a service with a usable default script: user
// "alice", code "54321", no 2FA.
func NewFakeService() *FakeService {
	return &FakeService{
		Me: telegram.Identity{
			ID:        1001,
			Username:  "alice",
			FirstName: "Alice",
			Phone:     "+15551234567",
		},
		CorrectCode: "54321",
		CodeHash:    "hash-1",
		Messages:    map[int64][]telegram.Message{},
	}
}

// Factory returns a telegram.Factory building fake clients against this
// service.
func (s *FakeService) Factory() telegram.Factory {
	return func(sessionPath string, apiID int, apiHash string) (telegram.Client, error) {
		return &fakeClient{svc: s, path: sessionPath}, nil
	}
}

// SentMessages returns a copy of the messages sent so far.
func (s *FakeService) SentMessages() []SentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SentMessage(nil), s.Sent...)
}

type fakeClient struct {
	svc       *FakeService
	path      string
	connected bool
}

const (
	artifactBlank      = "blank"
	artifactAuthorized = "authorized"
)

func (c *fakeClient) Connect(ctx context.Context) error {
	if c.svc.ConnectErr != nil {
		return c.svc.ConnectErr
	}
	if _, err := os.Stat(c.path); os.IsNotExist(err) {
		if err := os.WriteFile(c.path, []byte(artifactBlank), 0o600); err != nil {
			return err
		}
	}
	c.connected = true
	c.svc.mu.Lock()
	c.svc.Connects++
	c.svc.mu.Unlock()
	return nil
}

func (c *fakeClient) IsAuthorized(ctx context.Context) (bool, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return false, err
	}
	return string(data) == artifactAuthorized, nil
}

func (c *fakeClient) authorize() error {
	return os.WriteFile(c.path, []byte(artifactAuthorized), 0o600)
}

func (c *fakeClient) SendCodeRequest(ctx context.Context, phone string) (*telegram.SentCode, error) {
	if c.svc.SendCodeErr != nil {
		return nil, c.svc.SendCodeErr
	}
	if phone == "" {
		return nil, errors.New("empty phone number")
	}
	return &telegram.SentCode{PhoneCodeHash: c.svc.CodeHash}, nil
}

func (c *fakeClient) SignIn(ctx context.Context, phone, code, phoneCodeHash string) (*telegram.SignInResult, error) {
	if phoneCodeHash != c.svc.CodeHash {
		return nil, fmt.Errorf("phone code hash %q does not match", phoneCodeHash)
	}
	if code != c.svc.CorrectCode {
		return nil, errors.New("the confirmation code is invalid")
	}
	if c.svc.Password != "" {
		return &telegram.SignInResult{Status: telegram.SignInSecondFactor}, nil
	}
	if err := c.authorize(); err != nil {
		return nil, err
	}
	me := c.me()
	return &telegram.SignInResult{Status: telegram.SignInOK, Identity: &me}, nil
}

func (c *fakeClient) SignInPassword(ctx context.Context, password string) (*telegram.Identity, error) {
	if password != c.svc.Password {
		return nil, errors.New("the password is invalid")
	}
	if err := c.authorize(); err != nil {
		return nil, err
	}
	me := c.me()
	return &me, nil
}

func (c *fakeClient) me() telegram.Identity {
	me := c.svc.Me
	me.HasPhoto = c.svc.HasPhoto
	return me
}

func (c *fakeClient) GetMe(ctx context.Context) (*telegram.Identity, error) {
	me := c.me()
	return &me, nil
}

func (c *fakeClient) GetDialogs(ctx context.Context, limit int) ([]telegram.Dialog, error) {
	dialogs := append([]telegram.Dialog(nil), c.svc.Dialogs...)
	if limit > 0 && len(dialogs) > limit {
		dialogs = dialogs[:limit]
	}
	return dialogs, nil
}

func (c *fakeClient) GetMessages(ctx context.Context, dialogID int64, limit int) ([]telegram.Message, error) {
	msgs := append([]telegram.Message(nil), c.svc.Messages[dialogID]...)
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

func (c *fakeClient) DownloadProfilePhoto(ctx context.Context, dest string) (string, error) {
	if !c.svc.HasPhoto {
		return "", nil
	}
	if err := os.WriteFile(dest, []byte("png-bytes"), 0o644); err != nil {
		return "", err
	}
	return dest, nil
}

func (c *fakeClient) DownloadMedia(ctx context.Context, dialogID, messageID int64, dest string) (string, error) {
	if err := os.WriteFile(dest, []byte("media-bytes"), 0o644); err != nil {
		return "", err
	}
	return dest, nil
}

func (c *fakeClient) SendMessage(ctx context.Context, target, text string) error {
	c.svc.mu.Lock()
	defer c.svc.mu.Unlock()
	c.svc.Sent = append(c.svc.Sent, SentMessage{Target: target, Text: text})
	return nil
}

func (c *fakeClient) Disconnect(ctx context.Context) error {
	c.connected = false
	return nil
}
