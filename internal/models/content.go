package models

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ContentType tags a generation with the kind of content it produced.
type ContentType string

const (
	// ContentTypeShortPost is a batch of four standalone short posts
	ContentTypeShortPost ContentType = "short-post"
	// ContentTypeCaption is an image caption with hashtags
	ContentTypeCaption ContentType = "caption"
	// ContentTypeProfessionalPost is a long-form professional post
	ContentTypeProfessionalPost ContentType = "professional-post"
)

// ValidateContentType checks that a string is a member of the closed set.
func ValidateContentType(s string) error {
	switch ContentType(s) {
	case ContentTypeShortPost, ContentTypeCaption, ContentTypeProfessionalPost:
		return nil
	}
	return fmt.Errorf("invalid content type: must be one of %q, %q, %q",
		ContentTypeShortPost, ContentTypeCaption, ContentTypeProfessionalPost)
}

// GeneratedContent is one immutable history record: the prompt the user
// typed, the raw generated output, and the content type that produced it.
// Multi-item outputs (short posts) are stored as a JSON array in Content.
type GeneratedContent struct {
	ID          uuid.UUID   `json:"id"`
	UserID      uuid.UUID   `json:"user_id"`
	Prompt      string      `json:"prompt"`
	Content     string      `json:"content"`
	ContentType ContentType `json:"content_type"`
	CreatedAt   time.Time   `json:"created_at"`
}

var postMarkerRe = regexp.MustCompile(`POST\d+:\s*`)

// SplitPosts splits a multi-post generation on its POST<n>: markers,
// trimming whitespace and dropping empty segments.
func SplitPosts(text string) []string {
	parts := postMarkerRe.Split(text, -1)
	posts := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			posts = append(posts, p)
		}
	}
	return posts
}

// ParseItems parses a stored multi-item content value back into its ordered
// items. Records are written as a JSON array of strings; rows from before
// that format (or rows with malformed JSON) fall back to a blank-line split.
func ParseItems(content string) []string {
	var items []string
	if err := json.Unmarshal([]byte(content), &items); err == nil {
		return items
	}

	parts := strings.Split(content, "\n\n")
	items = make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}
	return items
}
