// Package nlu holds the semantic classifiers that map free text onto a
// catalog (device, action) pair when the deterministic rules miss.
package nlu

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrTimeout is returned when the classifier did not answer in time.
	ErrTimeout = errors.New("semantic match timeout")
	// ErrMalformed is returned when the provider answer is not the expected JSON.
	ErrMalformed = errors.New("malformed classifier response")
	// ErrNotConfigured is returned by providers missing credentials.
	ErrNotConfigured = errors.New("classifier not configured")
)

// Classifier proposes the catalog pair that best matches an instruction.
type Classifier interface {
	Classify(ctx context.Context, text string, summary CatalogSummary) (Classification, error)
}

// Classification is a classifier proposal. None means the classifier found no
// suitable pair; ids are unvalidated until the caller checks them.
type Classification struct {
	DeviceID   string
	ActionID   string
	Confidence float64
	Reason     string
	None       bool
}

// CatalogSummary is the view of the catalog given to a classifier.
type CatalogSummary struct {
	Devices []DeviceSummary `json:"devices"`
}

type DeviceSummary struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	App     string          `json:"app,omitempty"`
	Actions []ActionSummary `json:"actions"`
}

type ActionSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"` // rendered command
}

// BuildPrompt renders the instruction and summary into the prompt shared by
// the chat providers.
func BuildPrompt(text string, summary CatalogSummary) string {
	devices, _ := json.MarshalIndent(summary.Devices, "", "  ")
	var b strings.Builder
	b.WriteString("你是一个智能家居助手。用户说了一句话，请从以下设备列表中找出最匹配的设备和操作。\n\n")
	fmt.Fprintf(&b, "用户说的话：%q\n\n", text)
	b.WriteString("可用的设备和操作：\n")
	b.Write(devices)
	b.WriteString("\n\n请分析用户的意图，返回最匹配的设备ID和操作ID。如果无法匹配到任何设备或操作，device_id 和 action_id 返回 null。\n")
	b.WriteString(`请只返回 JSON，格式如下：{"device_id": "设备ID", "action_id": "操作ID", "confidence": 0.9, "reason": "匹配原因"}`)
	b.WriteString("\n不要有其他内容。")
	return b.String()
}

// answer is the JSON shape the providers are asked to return.
type answer struct {
	DeviceID   *string   `json:"device_id"`
	ActionID   *string   `json:"action_id"`
	Confidence flexFloat `json:"confidence"`
	Reason     string    `json:"reason"`
}

// flexFloat accepts a number or a numeric string ("0.9").
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// a non-numeric confidence is not worth rejecting the answer over
		*f = 0
		return nil
	}
	*f = flexFloat(v)
	return nil
}

// ParseAnswer decodes a provider reply, tolerating markdown code fences
// around the JSON.
func ParseAnswer(content string) (Classification, error) {
	s := strings.TrimSpace(content)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	if s == "" {
		return Classification{}, fmt.Errorf("%w: empty content", ErrMalformed)
	}

	var a answer
	if err := json.Unmarshal([]byte(s), &a); err != nil {
		return Classification{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	c := Classification{Confidence: float64(a.Confidence), Reason: a.Reason}
	if a.DeviceID == nil || a.ActionID == nil || *a.DeviceID == "" || *a.ActionID == "" {
		c.None = true
		return c, nil
	}
	c.DeviceID, c.ActionID = *a.DeviceID, *a.ActionID
	if c.Confidence <= 0 || c.Confidence > 1 {
		c.Confidence = 1
	}
	return c, nil
}

// deadlineErr maps context expiry to ErrTimeout and leaves other errors alone.
func deadlineErr(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}
