package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/workspacekit/internal/apierror"
	"github.com/teemow/workspacekit/internal/batch"
	"github.com/teemow/workspacekit/internal/logging"
	"github.com/teemow/workspacekit/internal/provider"
)

const (
	// MaxSubjectLength is the RFC 5322 line length limit.
	MaxSubjectLength = 998
	// MaxMessageSize is the largest message the provider accepts (25 MB).
	MaxMessageSize = 25 * 1024 * 1024
)

// FileAttachment is an outgoing attachment.
type FileAttachment struct {
	Filename string
	MimeType string
	Data     []byte
}

// Draft is an outgoing message. At least one of Body and HTML should be set;
// with both the message is sent as multipart/alternative.
type Draft struct {
	From        string
	To          []string
	Cc          []string
	Bcc         []string
	Subject     string
	Body        string
	HTML        string
	Attachments []FileAttachment

	// Threading, set by Reply.
	ThreadID   string
	InReplyTo  string
	References string
}

// Validate checks d before anything is sent.
func (d *Draft) Validate() error {
	if len(d.To)+len(d.Cc)+len(d.Bcc) == 0 {
		return apierror.Invalid("at least one recipient is required")
	}
	for _, list := range [][]string{d.To, d.Cc, d.Bcc} {
		for _, a := range list {
			if _, err := mail.ParseAddress(a); err != nil {
				return apierror.Invalid("invalid recipient %q: %v", a, err)
			}
		}
	}
	if d.From != "" {
		if _, err := mail.ParseAddress(d.From); err != nil {
			return apierror.Invalid("invalid sender %q: %v", d.From, err)
		}
	}
	if strings.ContainsAny(d.Subject, "\r\n") {
		return apierror.Invalid("subject must not contain line breaks")
	}
	if len(d.Subject) > MaxSubjectLength {
		return apierror.Invalid("subject is %d characters, maximum is %d", len(d.Subject), MaxSubjectLength)
	}
	size := len(d.Body) + len(d.HTML)
	for _, a := range d.Attachments {
		size += len(a.Data)
	}
	if size > MaxMessageSize {
		return apierror.Invalid("message size %d exceeds maximum size %d", size, MaxMessageSize)
	}
	return nil
}

// RFC822 renders d as a MIME message.
func (d *Draft) RFC822(date time.Time) ([]byte, error) {
	var buf bytes.Buffer
	header := func(name, value string) {
		if value != "" {
			fmt.Fprintf(&buf, "%s: %s\r\n", name, value)
		}
	}

	header("From", formatAddresses([]string{d.From}))
	header("To", formatAddresses(d.To))
	header("Cc", formatAddresses(d.Cc))
	header("Bcc", formatAddresses(d.Bcc))
	header("Subject", encodeRFC2047(sanitizeHeader(d.Subject)))
	header("Date", date.Format(time.RFC1123Z))
	header("In-Reply-To", sanitizeHeader(d.InReplyTo))
	header("References", sanitizeHeader(d.References))
	header("MIME-Version", "1.0")

	if err := writeEntity(&buf, bodyEntity(d.Body, d.HTML, d.Attachments)); err != nil {
		return nil, fmt.Errorf("failed to build message: %w", err)
	}
	return buf.Bytes(), nil
}

func formatAddresses(list []string) string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s == "" {
			continue
		}
		if a, err := mail.ParseAddress(s); err == nil {
			out = append(out, a.String())
		}
	}
	return strings.Join(out, ", ")
}

func (s *Service) encode(d *Draft) (*gmail.Message, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	raw, err := d.RFC822(s.env.Time())
	if err != nil {
		return nil, err
	}
	return &gmail.Message{Raw: base64.URLEncoding.EncodeToString(raw), ThreadId: d.ThreadID}, nil
}

// Send sends d and returns the sent message as acknowledged by the provider
// (ids and labels only).
func (s *Service) Send(ctx context.Context, d Draft) (*Message, error) {
	msg, err := s.encode(&d)
	if err != nil {
		return nil, err
	}
	var sent gmail.Message
	if err := s.do(ctx, "messages.send", http.MethodPost, "messages/send", "", nil, msg, &sent); err != nil {
		return nil, err
	}
	s.logger.Debug("message sent",
		logging.Service(provider.ServiceGmail),
		slog.String("message_id", sent.Id),
		logging.Count(len(d.To)+len(d.Cc)+len(d.Bcc)))
	return fromAPIMessage(&sent, s.env.Loc()), nil
}

// BatchSend sends every draft. A draft that fails validation is reported as a
// failure for its position without affecting the others. Result ids are the
// input positions.
func (s *Service) BatchSend(ctx context.Context, drafts []Draft) (batch.Results[*Message], error) {
	ids := make([]string, len(drafts))
	for i := range drafts {
		ids[i] = strconv.Itoa(i)
	}
	return batch.Run(ctx, s.batchOptions("messages.batchSend"), ids, func(ctx context.Context, i int, _ string) (*Message, error) {
		return s.Send(ctx, drafts[i])
	})
}

// SavedDraft is a draft stored in the mailbox.
type SavedDraft struct {
	ID      string   `json:"id"`
	Message *Message `json:"message"`
}

// CreateDraft stores d as a draft without sending it.
func (s *Service) CreateDraft(ctx context.Context, d Draft) (*SavedDraft, error) {
	msg, err := s.encode(&d)
	if err != nil {
		return nil, err
	}
	var out gmail.Draft
	if err := s.do(ctx, "drafts.create", http.MethodPost, "drafts", "", nil, &gmail.Draft{Message: msg}, &out); err != nil {
		return nil, err
	}
	saved := &SavedDraft{ID: out.Id}
	if out.Message != nil {
		saved.Message = fromAPIMessage(out.Message, s.env.Loc())
	}
	return saved, nil
}

// SendDraft sends a stored draft.
func (s *Service) SendDraft(ctx context.Context, draftID string) (*Message, error) {
	if err := requireID("draft", draftID); err != nil {
		return nil, err
	}
	var sent gmail.Message
	if err := s.do(ctx, "drafts.send", http.MethodPost, "drafts/send", draftID, nil, &gmail.Draft{Id: draftID}, &sent); err != nil {
		return nil, err
	}
	return fromAPIMessage(&sent, s.env.Loc()), nil
}

func (s *Service) DeleteDraft(ctx context.Context, draftID string) error {
	if err := requireID("draft", draftID); err != nil {
		return err
	}
	return s.do(ctx, "drafts.delete", http.MethodDelete, "drafts/"+draftID, draftID, nil, nil, nil)
}

// ReplyOptions configures Reply.
type ReplyOptions struct {
	Body string
	HTML string
	// ReplyAll addresses every original recipient except the user.
	ReplyAll bool
	Cc       []string
	Bcc      []string
}

// Reply answers original in its thread. The reply goes to the sender, or to
// the original recipients when the user sent the original.
func (s *Service) Reply(ctx context.Context, original *Message, opts ReplyOptions) (*Message, error) {
	if original == nil || original.ID == "" {
		return nil, apierror.Invalid("original message is required")
	}
	if opts.Body == "" && opts.HTML == "" {
		return nil, apierror.Invalid("reply body is required")
	}
	self, err := s.selfAddress(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve own address: %w", err)
	}

	to, cc := ReplyRecipients(original, self, opts.ReplyAll)
	d := Draft{
		To:         addressStrings(to),
		Cc:         append(addressStrings(cc), opts.Cc...),
		Bcc:        opts.Bcc,
		Subject:    prefixSubject("Re: ", original.Subject, "re:"),
		Body:       opts.Body,
		HTML:       opts.HTML,
		ThreadID:   original.ThreadID,
		InReplyTo:  original.MessageIDHeader,
		References: strings.TrimSpace(original.References + " " + original.MessageIDHeader),
	}
	return s.Send(ctx, d)
}

// ReplyAll is Reply with ReplyAll set.
func (s *Service) ReplyAll(ctx context.Context, original *Message, opts ReplyOptions) (*Message, error) {
	opts.ReplyAll = true
	return s.Reply(ctx, original, opts)
}

// ReplyRecipients computes the To and Cc lists of a reply to m sent by self.
// A reply goes to the sender, or Reply-To when set. A reply-all goes to the
// original To and Cc without self, every address once, compared
// case-insensitively; the sender is not added. When nothing is left the
// plain reply recipients are used.
func ReplyRecipients(m *Message, self string, all bool) (to, cc []Address) {
	fromSelf := strings.EqualFold(m.From.Email, self)

	var primary []Address
	switch {
	case fromSelf:
		primary = append(primary, m.To...)
	case len(m.ReplyTo) > 0:
		primary = append(primary, m.ReplyTo...)
	default:
		primary = append(primary, m.From)
	}

	seen := map[string]bool{strings.ToLower(self): true}
	keep := func(list []Address) []Address {
		var out []Address
		for _, a := range list {
			key := strings.ToLower(a.Email)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, a)
		}
		return out
	}

	if all {
		to, cc = keep(m.To), keep(m.Cc)
	}
	if len(to) == 0 && len(cc) == 0 {
		to = keep(primary)
	}
	if len(to) == 0 && len(cc) == 0 {
		// A note to self.
		to = []Address{m.From}
	}
	return to, cc
}

// ForwardOptions configures Forward.
type ForwardOptions struct {
	To  []string
	Cc  []string
	Bcc []string
	// Body is written above the forwarded content.
	Body               string
	IncludeAttachments bool
}

// Forward sends original to new recipients, quoting its headers and body.
func (s *Service) Forward(ctx context.Context, original *Message, opts ForwardOptions) (*Message, error) {
	if original == nil || original.ID == "" {
		return nil, apierror.Invalid("original message is required")
	}
	if len(opts.To)+len(opts.Cc)+len(opts.Bcc) == 0 {
		return nil, apierror.Invalid("at least one recipient is required")
	}

	d := Draft{
		To:      opts.To,
		Cc:      opts.Cc,
		Bcc:     opts.Bcc,
		Subject: prefixSubject("Fwd: ", original.Subject, "fwd:", "fw:"),
		Body:    forwardText(original, opts.Body),
	}
	if original.BodyHTML != "" {
		d.HTML = forwardHTML(original, opts.Body)
	}

	if opts.IncludeAttachments {
		for _, a := range original.Attachments {
			data, err := s.AttachmentData(ctx, original.ID, a.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to fetch attachment %q: %w", a.Filename, err)
			}
			d.Attachments = append(d.Attachments, FileAttachment{Filename: a.Filename, MimeType: a.MimeType, Data: data})
		}
	}
	return s.Send(ctx, d)
}

func forwardText(m *Message, note string) string {
	var b strings.Builder
	if note != "" {
		b.WriteString(note)
		b.WriteString("\n\n")
	}
	b.WriteString("---------- Forwarded message ---------\n")
	fmt.Fprintf(&b, "From: %s\n", m.From)
	fmt.Fprintf(&b, "Date: %s\n", m.Date.Format(time.RFC1123Z))
	fmt.Fprintf(&b, "Subject: %s\n", m.Subject)
	fmt.Fprintf(&b, "To: %s\n\n", joinAddresses(m.To))
	b.WriteString(m.BodyText)
	return b.String()
}

func forwardHTML(m *Message, note string) string {
	var b strings.Builder
	if note != "" {
		b.WriteString(html.EscapeString(note))
		b.WriteString("<br><br>")
	}
	b.WriteString("---------- Forwarded message ---------<br>")
	fmt.Fprintf(&b, "From: %s<br>", html.EscapeString(m.From.String()))
	fmt.Fprintf(&b, "Date: %s<br>", m.Date.Format(time.RFC1123Z))
	fmt.Fprintf(&b, "Subject: %s<br>", html.EscapeString(m.Subject))
	fmt.Fprintf(&b, "To: %s<br><br>", html.EscapeString(joinAddresses(m.To)))
	b.WriteString(m.BodyHTML)
	return b.String()
}

// prefixSubject adds prefix unless subject already starts with one of the
// given lower-case markers.
func prefixSubject(prefix, subject string, markers ...string) string {
	lower := strings.ToLower(strings.TrimSpace(subject))
	for _, m := range markers {
		if strings.HasPrefix(lower, m) {
			return subject
		}
	}
	return prefix + subject
}

func addressStrings(list []Address) []string {
	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, a.String())
	}
	return out
}

func joinAddresses(list []Address) string {
	return strings.Join(addressStrings(list), ", ")
}
