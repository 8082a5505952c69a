package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!doctype html>
<html><head>
<title>Fallback title</title>
<meta property="og:title" content="Rates held steady">
</head><body>
<header><p>Subscribe to our newsletter for the freshest headlines every single morning.</p></header>
<nav><p>Home | World | Business | Sport | Culture | Weather | Video | Live</p></nav>
<article>
  <p>By Staff</p>
  <p>The central bank kept its benchmark interest rate unchanged on Thursday, citing stable inflation.</p>
  <script>var tracking = "ignored paragraph text that should never appear in output";</script>
  <p>Officials signalled that future decisions would depend on incoming labour market data.</p>
</article>
<footer><p>Copyright notice and a long list of legal links that is not part of the story.</p></footer>
</body></html>`

func TestHTMLExtractorPullsArticleParagraphs(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	ex := NewHTMLExtractor(time.Second, "newsbot-test")
	article, err := ex.Extract(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "newsbot-test", gotUA)
	assert.Equal(t, srv.URL, article.URL)
	assert.Equal(t, "Rates held steady", article.Title)
	assert.Equal(t,
		"The central bank kept its benchmark interest rate unchanged on Thursday, citing stable inflation.\n\n"+
			"Officials signalled that future decisions would depend on incoming labour market data.",
		article.Text)
	assert.NotContains(t, article.Text, "newsletter")
	assert.NotContains(t, article.Text, "Copyright")
}

func TestHTMLExtractorFallsBackToBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><div><p>` + strings.Repeat("plain body text ", 5) + `</p></div></body></html>`))
	}))
	defer srv.Close()

	article, err := NewHTMLExtractor(0, "").Extract(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(article.Text, "plain body text"))
}

func TestHTMLExtractorErrors(t *testing.T) {
	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><p>short</p></body></html>`))
	}))
	defer empty.Close()
	missing := httptest.NewServer(http.NotFoundHandler())
	defer missing.Close()

	ex := NewHTMLExtractor(time.Second, "")

	_, err := ex.Extract(context.Background(), empty.URL)
	assert.ErrorIs(t, err, ErrEmptyArticle)

	_, err = ex.Extract(context.Background(), missing.URL)
	assert.ErrorContains(t, err, "404")

	_, err = ex.Extract(context.Background(), "ftp://example.com/file")
	assert.ErrorContains(t, err, "unsupported url scheme")
}
