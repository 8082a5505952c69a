package news

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"newsbot/internal/models"
)

const (
	defaultUserAgent   = "newsbot/1.0"
	defaultHTTPTimeout = 10 * time.Second
	maxBodySize        = 2 << 20
	minParagraphLength = 40
)

// ErrEmptyArticle is returned when a page has no readable body text.
var ErrEmptyArticle = errors.New("no article text found")

// boilerplate nodes stripped before text extraction
const boilerplate = "script, style, noscript, nav, header, footer, aside, form, iframe, svg, figure"

// Extractor downloads one page and extracts its main text.
type Extractor interface {
	Extract(ctx context.Context, link string) (*models.Article, error)
}

// HTMLExtractor fetches pages over HTTP and pulls paragraphs out with goquery.
type HTMLExtractor struct {
	httpClient *http.Client
	userAgent  string
}

func NewHTMLExtractor(timeout time.Duration, userAgent string) *HTMLExtractor {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &HTMLExtractor{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
	}
}

func (e *HTMLExtractor) Extract(ctx context.Context, link string) (*models.Article, error) {
	body, err := e.fetchURL(ctx, link)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	article := parseArticle(doc)
	if article.Text == "" {
		return nil, ErrEmptyArticle
	}
	article.URL = link
	return article, nil
}

func (e *HTMLExtractor) fetchURL(ctx context.Context, target string) (io.ReadCloser, error) {
	parsed, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, errors.New("unsupported url scheme")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch url: %s", resp.Status)
	}
	return resp.Body, nil
}

func parseArticle(doc *goquery.Document) *models.Article {
	title := strings.TrimSpace(doc.Find(`meta[property="og:title"]`).AttrOr("content", ""))
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	doc.Find(boilerplate).Remove()

	var text string
	for _, scope := range []string{"article", "main", "body"} {
		sel := doc.Find(scope)
		if sel.Length() == 0 {
			continue
		}
		if text = collectParagraphs(sel); text != "" {
			break
		}
	}
	return &models.Article{Title: title, Text: text}
}

// collectParagraphs joins the <p> texts of a selection, dropping short
// fragments such as bylines and captions.
func collectParagraphs(sel *goquery.Selection) string {
	var parts []string
	sel.Find("p").Each(func(_ int, p *goquery.Selection) {
		t := normalizeSpace(p.Text())
		if len([]rune(t)) < minParagraphLength {
			return
		}
		parts = append(parts, t)
	})
	return strings.Join(parts, "\n\n")
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func looksLikeURL(input string) bool {
	lower := strings.ToLower(input)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
