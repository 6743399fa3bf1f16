package scraper

import (
	"regexp"
	"strings"
)

// Block kinds reported by BotDetector.
const (
	BlockNone      = ""
	BlockCaptcha   = "captcha"
	BlockHTTPError = "http_error"
	BlockBotWall   = "bot_wall"
)

const (
	botWeight     = 0.3
	captchaWeight = 0.5
	statusWeight  = 0.4
	hintWeight    = 0.2
	// shortPage is the visible text length under which bot hints weigh more.
	shortPage = 1000
	// blockThreshold is the score above which a page counts as a wall.
	blockThreshold = 0.3
)

// Verdict is the outcome of inspecting a fetched page for an anti-bot wall.
type Verdict struct {
	Blocked bool
	Kind    string
	Score   float64
	Reasons []string
}

// BotDetector recognises interstitials, captchas and block pages so they are
// not mistaken for product pages.
type BotDetector struct {
	botPatterns     []*regexp.Regexp
	captchaPatterns []*regexp.Regexp
	statusPatterns  []*regexp.Regexp
}

// NewBotDetector creates a detector with the built-in pattern set.
func NewBotDetector() *BotDetector {
	return &BotDetector{
		botPatterns: compileAll(
			`unfortunately we are unable`,
			`access denied`,
			`bot detected`,
			`please verify you are human`,
			`security check`,
			`checking your browser`,
			`ddos protection`,
			`distil networks`,
			`too many requests`,
			`attention required`,
		),
		captchaPatterns: compileAll(
			`\b(?:re|h)?captcha\b`,
			`cf-turnstile`,
			`verify you are human`,
			`select all images`,
			`click the checkbox`,
		),
		statusPatterns: compileAll(
			`403 forbidden`,
			`429 too many requests`,
			`503 service unavailable`,
			`site temporarily unavailable`,
		),
	}
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(`(?i)`+p))
	}
	return out
}

// Inspect scores the title and visible text of doc.
func (bd *BotDetector) Inspect(doc *Document) Verdict {
	if doc == nil {
		return Verdict{}
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	return bd.Detect(doc.VisibleText(), title)
}

// Detect scores page text and title. A captcha alone is enough to block; a
// single generic bot phrase on a full-size page is not.
func (bd *BotDetector) Detect(text, title string) Verdict {
	content := strings.ToLower(text + " " + title)

	var v Verdict
	captcha := bd.match(&v, bd.captchaPatterns, captchaWeight, "captcha: ", content)
	status := bd.match(&v, bd.statusPatterns, statusWeight, "status: ", content)
	bd.match(&v, bd.botPatterns, botWeight, "", content)

	if strings.Contains(content, "javascript") && strings.Contains(content, "disabled") {
		v.Score += hintWeight
		v.Reasons = append(v.Reasons, "javascript disabled notice")
	}
	if v.Score > 0 && len(strings.TrimSpace(text)) < shortPage {
		v.Score += hintWeight
		v.Reasons = append(v.Reasons, "short page")
	}
	if v.Score > 1 {
		v.Score = 1
	}

	v.Blocked = v.Score > blockThreshold
	switch {
	case !v.Blocked:
		v.Kind = BlockNone
	case captcha:
		v.Kind = BlockCaptcha
	case status:
		v.Kind = BlockHTTPError
	default:
		v.Kind = BlockBotWall
	}
	return v
}

func (bd *BotDetector) match(v *Verdict, patterns []*regexp.Regexp, weight float64, prefix, content string) bool {
	hit := false
	for _, p := range patterns {
		if p.MatchString(content) {
			v.Score += weight
			v.Reasons = append(v.Reasons, prefix+p.String())
			hit = true
		}
	}
	return hit
}

// Reason joins the verdict's reasons for logging.
func (v Verdict) Reason() string {
	return strings.Join(v.Reasons, "; ")
}
