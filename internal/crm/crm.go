package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/myrjola/tripguide/internal/errors"
	"github.com/myrjola/tripguide/internal/models"
)

var ErrInvalidContact = errors.NewSentinel("invalid contact")

// Contact is what the traveller hands over to unlock the full guide.
type Contact struct {
	Email     string
	FirstName string
	LastName  string
	FlowType  models.FlowType
	Tags      models.TagSet
	// Summary is an opaque description of the trip for the sales team.
	Summary string
}

// Validate normalises the email address and checks the required fields.
func (c *Contact) Validate() error {
	addr, err := mail.ParseAddress(strings.TrimSpace(c.Email))
	if err != nil {
		return errors.Wrap(ErrInvalidContact, "parse email", slog.String("reason", err.Error()))
	}
	c.Email = strings.ToLower(addr.Address)
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	if c.FirstName == "" {
		return errors.Wrap(ErrInvalidContact, "first name missing")
	}
	return nil
}

// Sink creates contacts and returns their id in the CRM.
type Sink interface {
	CreateContact(ctx context.Context, c Contact) (string, error)
}

// Error is a failed contact submission. The traveller may try again.
type Error struct {
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("crm: %v", e.Err)
	}
	return fmt.Sprintf("crm status %d: %v", e.StatusCode, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Client posts contacts as JSON to a CRM webhook.
type Client struct {
	httpClient *http.Client
	url        string
	token      string
	logger     *slog.Logger
}

func NewClient(url, token string, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second}, //nolint:exhaustruct // defaults are fine
		url:        url,
		token:      token,
		logger:     logger.With("source", "crm.Client"),
	}
}

type contactRequest struct {
	Email     string   `json:"email"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name,omitempty"`
	FlowType  string   `json:"flow_type"`
	Tags      []string `json:"tags"`
	Summary   string   `json:"summary,omitempty"`
}

type contactResponse struct {
	ID string `json:"id"`
}

// maxErrorBody limits how much of an error response ends up in logs.
const maxErrorBody = 512

func (c *Client) CreateContact(ctx context.Context, contact Contact) (string, error) {
	body, err := json.Marshal(contactRequest{
		Email:     contact.Email,
		FirstName: contact.FirstName,
		LastName:  contact.LastName,
		FlowType:  string(contact.FlowType),
		Tags:      contact.Tags.Strings(),
		Summary:   contact.Summary,
	})
	if err != nil {
		return "", errors.Wrap(err, "marshal contact")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "new contact request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &Error{StatusCode: 0, Err: errors.Wrap(err, "send contact")}
	}
	defer func() {
		if err = resp.Body.Close(); err != nil {
			c.logger.LogAttrs(ctx, slog.LevelWarn, "could not close response body", errors.SlogError(err))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &Error{StatusCode: resp.StatusCode, Err: errors.New("unexpected status",
			slog.String("body", string(snippet)))}
	}

	var created contactResponse
	if err = json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", &Error{StatusCode: resp.StatusCode, Err: errors.Wrap(err, "decode contact response")}
	}
	if created.ID == "" {
		return "", &Error{StatusCode: resp.StatusCode, Err: errors.New("contact response without id")}
	}
	return created.ID, nil
}

// Offline accepts every contact without a CRM. Used when none is configured.
type Offline struct {
	logger *slog.Logger
}

func NewOffline(logger *slog.Logger) *Offline {
	return &Offline{logger: logger.With("source", "crm.Offline")}
}

func (o *Offline) CreateContact(ctx context.Context, c Contact) (string, error) {
	id := "offline-" + uuid.NewString()
	o.logger.LogAttrs(ctx, slog.LevelInfo, "contact accepted without CRM",
		slog.String("contact_id", id),
		slog.String("flow_type", string(c.FlowType)),
		slog.Int("tags", len(c.Tags)),
	)
	return id, nil
}
