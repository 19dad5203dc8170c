package ai

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Content part types accepted by vision-capable chat endpoints.
const (
	PartText     = "text"
	PartImageURL = "image_url"
)

// Message is one role-tagged chat message. Plain messages carry Content;
// multimodal messages carry Parts and serialise content as a list.
type Message struct {
	Role    string
	Content string
	Parts   []ContentPart
}

type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

// TextPart builds a text segment.
func TextPart(s string) ContentPart { return ContentPart{Type: PartText, Text: s} }

// ImagePart builds an inline image segment from raw bytes as a base64 data URL.
func ImagePart(mime string, data []byte) ContentPart {
	url := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(data))
	return ContentPart{Type: PartImageURL, ImageURL: &ImageURL{URL: url}}
}

// Text returns Content, or the concatenated text parts of a multimodal message.
func (m Message) Text() string {
	if len(m.Parts) == 0 {
		return m.Content
	}
	var b strings.Builder
	for _, p := range m.Parts {
		if p.Type != PartText {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(p.Text)
	}
	return b.String()
}

type wireMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

func (m Message) MarshalJSON() ([]byte, error) {
	var (
		content []byte
		err     error
	)
	if len(m.Parts) > 0 {
		content, err = json.Marshal(m.Parts)
	} else {
		content, err = json.Marshal(m.Content)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireMessage{Role: m.Role, Content: content})
}

// UnmarshalJSON accepts content as a string, a list of parts, or null.
// Anything else does not match the completion schema.
func (m *Message) UnmarshalJSON(b []byte) error {
	var w wireMessage
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*m = Message{Role: w.Role}
	raw := strings.TrimSpace(string(w.Content))
	switch {
	case raw == "" || raw == "null":
		return nil
	case strings.HasPrefix(raw, "\""):
		return json.Unmarshal(w.Content, &m.Content)
	case strings.HasPrefix(raw, "["):
		return json.Unmarshal(w.Content, &m.Parts)
	default:
		return fmt.Errorf("%w: unexpected message content %.32s", ErrMalformedResponse, raw)
	}
}
