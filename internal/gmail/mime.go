package gmail

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/textproto"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// entity is one MIME entity: its header fields and a writer for its content.
type entity struct {
	header textproto.MIMEHeader
	write  func(io.Writer) error
}

func newBoundary() string {
	return "wk" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func textEntity(mediaType, content string) entity {
	h := textproto.MIMEHeader{}
	h.Set("Content-Type", mediaType+`; charset="UTF-8"`)
	h.Set("Content-Transfer-Encoding", "quoted-printable")
	return entity{header: h, write: func(w io.Writer) error {
		qp := quotedprintable.NewWriter(w)
		if _, err := io.WriteString(qp, content); err != nil {
			return err
		}
		return qp.Close()
	}}
}

func multipartEntity(subtype string, parts []entity) entity {
	boundary := newBoundary()
	h := textproto.MIMEHeader{}
	h.Set("Content-Type", mime.FormatMediaType("multipart/"+subtype, map[string]string{"boundary": boundary}))
	return entity{header: h, write: func(w io.Writer) error {
		mw := multipart.NewWriter(w)
		if err := mw.SetBoundary(boundary); err != nil {
			return err
		}
		for _, p := range parts {
			pw, err := mw.CreatePart(p.header)
			if err != nil {
				return err
			}
			if err := p.write(pw); err != nil {
				return err
			}
		}
		return mw.Close()
	}}
}

func attachmentEntity(a FileAttachment) entity {
	mediaType := a.MimeType
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	filename := sanitizeFilename(a.Filename)
	h := textproto.MIMEHeader{}
	h.Set("Content-Type", mime.FormatMediaType(mediaType, map[string]string{"name": filename}))
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	h.Set("Content-Transfer-Encoding", "base64")
	return entity{header: h, write: func(w io.Writer) error {
		encoded := base64.StdEncoding.EncodeToString(a.Data)
		for len(encoded) > 76 {
			if _, err := io.WriteString(w, encoded[:76]+"\r\n"); err != nil {
				return err
			}
			encoded = encoded[76:]
		}
		_, err := io.WriteString(w, encoded+"\r\n")
		return err
	}}
}

// bodyEntity renders text and HTML bodies, as multipart/alternative when
// both are present, wrapped in multipart/mixed when there are attachments.
func bodyEntity(text, html string, attachments []FileAttachment) entity {
	var body entity
	switch {
	case text != "" && html != "":
		body = multipartEntity("alternative", []entity{
			textEntity("text/plain", text),
			textEntity("text/html", html),
		})
	case html != "":
		body = textEntity("text/html", html)
	default:
		body = textEntity("text/plain", text)
	}
	if len(attachments) == 0 {
		return body
	}
	parts := []entity{body}
	for _, a := range attachments {
		parts = append(parts, attachmentEntity(a))
	}
	return multipartEntity("mixed", parts)
}

// writeEntity writes e's header fields in a stable order, the separating
// blank line and the content.
func writeEntity(w io.Writer, e entity) error {
	keys := make([]string, 0, len(e.header))
	for k := range e.header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range e.header[k] {
			if _, err := fmt.Fprintf(w, "%s: %s\r\n", k, v); err != nil {
				return err
			}
		}
	}
	if _, err := io.WriteString(w, "\r\n"); err != nil {
		return err
	}
	return e.write(w)
}

// encodeRFC2047 encodes non-ASCII header text, e.g. subjects with umlauts.
func encodeRFC2047(s string) string {
	for _, r := range s {
		if r > 127 {
			return mime.BEncoding.Encode("UTF-8", s)
		}
	}
	return s
}

// sanitizeHeader drops control characters from a header value.
func sanitizeHeader(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}

// sanitizeFilename strips path components from an attachment name.
func sanitizeFilename(name string) string {
	name = strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(sanitizeHeader(name))
	if name == "" {
		return "attachment"
	}
	return name
}
