package timeextract

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/width"

	taggererrors "github.com/hrygo/hmmseg/internal/errors"
	"github.com/hrygo/hmmseg/internal/observability"
	"github.com/hrygo/hmmseg/plugin/hmm"
)

var (
	// pureNumberPattern matches candidates that are only a number, such as a
	// quantity or a room number.
	pureNumberPattern = regexp.MustCompile(`^[0-9]+$`)
	trailingDayDigits = regexp.MustCompile(`[号日][0-9]+$`)

	// chinesePattern splits a candidate into year, month, day, period, hour,
	// minute and second. Minutes and seconds only count after an hour.
	chinesePattern = regexp.MustCompile(
		`^(?:([0-9零〇一二两三四五六七八九十]+)\s*年)?\s*` +
			`(?:([0-9一二两三四五六七八九十]+)\s*月)?\s*` +
			`(?:([0-9一二两三四五六七八九十]+)\s*[号日])?\s*` +
			`([上中下午晚早]+)?\s*` +
			`(?:([0-9零〇一二两三四五六七八九十百]+)\s*[点:.时]\s*` +
			`(?:([0-9零〇一二两三四五六七八九十百]+)\s*分?)?\s*` +
			`(?:([0-9零〇一二两三四五六七八九十百]+)\s*秒)?)?`)
)

// dayKeywords start a candidate at now plus the given number of days.
var dayKeywords = map[string]int{
	"今天": 0,
	"明天": 1,
	"后天": 2,
}

// pmPeriods move hours before noon into the afternoon.
var pmPeriods = map[string]bool{
	"下午": true,
	"晚上": true,
	"中午": true,
}

// standardLayouts are tried before the Chinese pattern.
var standardLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006/01/02",
	"2006年01月02日 15:04",
	"2006年01月02日",
	"2006年1月2日 15:04",
	"2006年1月2日",
	"01/02/2006",
	"15:04:05",
	"15:04",
}

// Extractor implements Service on top of a Segmenter.
type Extractor struct {
	seg      Segmenter
	timezone *time.Location
	now      func() time.Time
	logger   *slog.Logger
}

// NewExtractor creates an extractor that resolves relative dates in loc.
func NewExtractor(seg Segmenter, loc *time.Location) *Extractor {
	if loc == nil {
		loc = time.Local
	}
	return &Extractor{
		seg:      seg,
		timezone: loc,
		now:      time.Now,
		logger:   slog.Default(),
	}
}

// WithNow returns a copy of the extractor with a fixed clock.
func (e *Extractor) WithNow(now func() time.Time) *Extractor {
	c := *e
	c.now = now
	return &c
}

// WithLogger returns a copy of the extractor that logs to logger.
func (e *Extractor) WithLogger(logger *slog.Logger) *Extractor {
	c := *e
	if logger != nil {
		c.logger = logger
	}
	return &c
}

// Extract implements Service.
func (e *Extractor) Extract(ctx context.Context, text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, taggererrors.EmptyInput("extract called with empty text")
	}
	reqCtx := observability.NewRequestContextFrom(ctx, e.logger, "extract", "")
	now := e.now().In(e.timezone)

	words, err := e.seg.Cut(ctx, width.Fold.String(text))
	if err != nil {
		reqCtx.Error("failed to segment text", err)
		return nil, err
	}

	out := []string{}
	for _, cand := range Candidates(words, now) {
		cand, ok := cleanCandidate(cand)
		if !ok {
			continue
		}
		t, ok := e.ParseCandidate(cand, now)
		if !ok {
			reqCtx.Debug("dropped time candidate", slog.String("candidate", cand))
			continue
		}
		out = append(out, t.Format(OutputLayout))
	}

	reqCtx.Debug("extracted times",
		slog.Int("count", len(out)),
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()),
	)
	return out, nil
}

// Candidates joins consecutive time words into candidate strings.
// 今天, 明天 and 后天 start a new candidate holding the absolute date; words
// tagged m or t extend the open candidate or start one; anything else closes it.
func Candidates(words []hmm.WordTag, now time.Time) []string {
	var (
		out  []string
		cand string
	)
	for _, w := range words {
		if offset, ok := dayKeywords[w.Word]; ok {
			if cand != "" {
				out = append(out, cand)
			}
			d := now.AddDate(0, 0, offset)
			cand = fmt.Sprintf("%04d 年 %02d 月 %02d 日 ", d.Year(), int(d.Month()), d.Day())
			continue
		}
		isTime := w.POS == hmm.NumeralLabel || w.POS == "t"
		switch {
		case isTime:
			cand += w.Word
		case cand != "":
			out = append(out, cand)
			cand = ""
		}
	}
	if cand != "" {
		out = append(out, cand)
	}
	return out
}

// cleanCandidate drops bare numbers of up to six digits and trims digits that
// trail a day marker ("28号15" becomes "28日").
func cleanCandidate(cand string) (string, bool) {
	if pureNumberPattern.MatchString(cand) && len(cand) <= 6 {
		return "", false
	}
	for {
		next := trailingDayDigits.ReplaceAllString(cand, "日")
		if next == cand {
			return cand, true
		}
		cand = next
	}
}

// ParseCandidate resolves one candidate against now. Fields the candidate
// leaves out take the date of now and midnight.
func (e *Extractor) ParseCandidate(cand string, now time.Time) (time.Time, bool) {
	cand = strings.TrimSpace(cand)
	if cand == "" {
		return time.Time{}, false
	}
	if t, ok := e.tryStandardFormats(cand, now); ok {
		return t, true
	}
	return e.parseChinese(cand, now)
}

func (e *Extractor) tryStandardFormats(input string, now time.Time) (time.Time, bool) {
	for _, layout := range standardLayouts {
		t, err := time.ParseInLocation(layout, input, e.timezone)
		if err != nil {
			continue
		}
		if layout == "15:04:05" || layout == "15:04" {
			return time.Date(now.Year(), now.Month(), now.Day(),
				t.Hour(), t.Minute(), t.Second(), 0, e.timezone), true
		}
		return t, true
	}
	return time.Time{}, false
}

func (e *Extractor) parseChinese(input string, now time.Time) (time.Time, bool) {
	m := chinesePattern.FindStringSubmatch(input)
	if m == nil {
		return time.Time{}, false
	}

	year, month, day := now.Year(), int(now.Month()), now.Day()
	hour, minute, second := 0, 0, 0
	found := false

	if v, ok := YearToInt(m[1], now); ok {
		year, found = v, true
	}
	fields := []struct {
		raw string
		dst *int
	}{
		{m[2], &month}, {m[3], &day}, {m[5], &hour}, {m[6], &minute}, {m[7], &second},
	}
	for _, f := range fields {
		if v, ok := ChineseToInt(f.raw); ok {
			*f.dst, found = v, true
		}
	}
	if !found {
		return time.Time{}, false
	}

	if month < 1 || month > 12 || day < 1 || day > daysIn(year, time.Month(month)) ||
		hour > 23 || minute > 59 || second > 59 {
		return time.Time{}, false
	}
	if pmPeriods[m[4]] && hour < 12 {
		hour += 12
	}
	return time.Date(year, time.Month(month), day, hour, minute, second, 0, e.timezone), true
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
