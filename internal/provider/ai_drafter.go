package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/HoussemEK/Direction-Project/internal/domain"
	"github.com/tidwall/gjson"
)

const (
	trackPath       = "/generate/track"
	maxResponseSize = 1 << 20

	defaultTrackText     = "Continue building on your progress"
	jsonLikeFocusGoal    = "Complete the level objectives"
	titleEllipsisCut     = 47
	defaultAccomplishing = "Making progress"
	defaultReflection    = "Ready for the next challenge"
)

var headingPrefix = regexp.MustCompile(`^#+\s*`)

// DraftRequest is the context sent to the text-generation service.
type DraftRequest struct {
	UserName              string `json:"user_name"`
	TrackTheme            string `json:"track_theme"`
	CurrentLevel          int    `json:"current_level"`
	RecentAccomplishments string `json:"recent_accomplishments"`
	ReflectionSnippet     string `json:"reflection_snippet"`
}

// TrackDrafter asks the AI service for the content of a track's next level.
type TrackDrafter struct {
	baseURL string
	logger  *slog.Logger
	client  *http.Client
}

// NewTrackDrafter creates a drafter for the AI service at baseURL.
func NewTrackDrafter(baseURL string, timeout time.Duration, logger *slog.Logger) *TrackDrafter {
	return &TrackDrafter{
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
		client:  &http.Client{Timeout: timeout},
	}
}

// DraftLevel requests a level draft. The service's answer is read tolerantly:
// whatever fields are missing are derived from the raw text. Transport
// failures and non-2xx answers return UpstreamUnavailable.
func (d *TrackDrafter) DraftLevel(ctx context.Context, req DraftRequest) (*domain.LevelDraft, error) {
	if req.UserName == "" {
		req.UserName = "User"
	}
	if req.RecentAccomplishments == "" {
		req.RecentAccomplishments = defaultAccomplishing
	}
	if req.ReflectionSnippet == "" {
		req.ReflectionSnippet = defaultReflection
	}

	body, err := d.post(ctx, trackPath, req)
	if err != nil {
		d.logger.Warn("ai track draft failed", "error", err, "theme", req.TrackTheme)
		return nil, domain.ErrUpstreamUnavailable("ai service", err)
	}

	draft := ParseLevelDraft(body)
	return &draft, nil
}

func (d *TrackDrafter) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("api returned %d", resp.StatusCode)
	}
	return body, nil
}

// ParseLevelDraft turns a /generate/track answer into a sanitized level draft.
//
// Field resolution, in order:
//  1. parsed.level_title etc. from the service, when a title is present
//  2. a JSON object embedded in the generated text
//  3. heuristics over the raw text (first line as title, second as focus goal)
func ParseLevelDraft(body []byte) domain.LevelDraft {
	text := defaultTrackText
	var parsed gjson.Result

	if gjson.ValidBytes(body) {
		if t := gjson.GetBytes(body, "track"); t.Exists() && strings.TrimSpace(t.String()) != "" {
			text = t.String()
		}
		parsed = gjson.GetBytes(body, "parsed")
	} else if s := strings.TrimSpace(string(body)); s != "" {
		text = s
	}

	if !parsed.Get("level_title").Exists() || parsed.Get("level_title").String() == "" {
		parsed = embeddedObject(text)
	}

	draft := domain.LevelDraft{
		Title:       firstNonEmpty(parsed.Get("level_title").String(), extractTitle(text)),
		Description: firstNonEmpty(parsed.Get("level_description").String(), text),
		FocusGoal:   firstNonEmpty(parsed.Get("focus_goal").String(), extractFocusGoal(text)),
	}
	return draft.Sanitize()
}

// embeddedObject returns the outermost {...} span of text if it is valid JSON.
func embeddedObject(text string) gjson.Result {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return gjson.Result{}
	}
	candidate := text[start : end+1]
	if !gjson.Valid(candidate) {
		return gjson.Result{}
	}
	return gjson.Parse(candidate)
}

func extractTitle(text string) string {
	if strings.HasPrefix(strings.TrimSpace(text), "{") {
		return domain.DefaultLevelTitle
	}
	firstLine := strings.SplitN(text, "\n", 2)[0]
	firstLine = headingPrefix.ReplaceAllString(firstLine, "")
	if utf8.RuneCountInString(firstLine) <= domain.MaxLevelTitleLen {
		return firstLine
	}
	return string([]rune(firstLine)[:titleEllipsisCut]) + "..."
}

func extractFocusGoal(text string) string {
	if strings.HasPrefix(strings.TrimSpace(text), "{") {
		return jsonLikeFocusGoal
	}
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) < 2 {
		return domain.DefaultLevelFocusGoal
	}
	second := []rune(lines[1])
	if len(second) > domain.MaxLevelFocusGoalLen {
		second = second[:domain.MaxLevelFocusGoalLen]
	}
	return string(second)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
