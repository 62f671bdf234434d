package web

import (
	"context"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/smtg-ai/quotewidget/log"
	"github.com/smtg-ai/quotewidget/metrics"
	"github.com/smtg-ai/quotewidget/quote"
	"github.com/smtg-ai/quotewidget/share"
)

const (
	errorCodeInternal    = "INTERNAL_ERROR"
	errorCodeUnavailable = "QUOTE_UNAVAILABLE"
)

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorDetail `json:"error"`
}

func newErrorResponse(code, message string) errorResponse {
	return errorResponse{Error: errorDetail{Code: code, Message: message}}
}

// quoteResponse is the JSON body of GET /api/v1/quote.
type quoteResponse struct {
	Text     string `json:"text"`
	Author   string `json:"author"`
	Long     bool   `json:"long"`
	ShareURL string `json:"share_url"`
}

type pageData struct {
	Text      string
	Author    string
	Long      bool
	ShareLink string
	Error     string
}

// fetch gets one quote under the configured retry policy.
func (s *Server) fetch(ctx context.Context) (quote.Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.FetchTimeout)
	defer cancel()
	return quote.FetchWithRetry(ctx, s.opts.Fetcher, s.opts.Retry, func(attempt int, err error) {
		log.WarningLog.Printf("quote fetch attempt %d failed: %v", attempt, err)
	})
}

func (s *Server) page(c *gin.Context) {
	q, err := s.fetch(c.Request.Context())
	if err != nil {
		log.ErrorLog.Printf("page: %v", err)
		c.HTML(http.StatusServiceUnavailable, "page", pageData{
			Error: "Couldn't fetch a quote right now. Try again in a moment.",
		})
		return
	}

	shown := q.Displayed()
	c.HTML(http.StatusOK, "page", pageData{
		Text:   shown.Text,
		Author: shown.Author,
		Long:   q.IsLong(s.opts.LongQuoteThreshold),
		ShareLink: "/share?" + url.Values{
			"text":   {shown.Text},
			"author": {shown.Author},
		}.Encode(),
	})
}

func (s *Server) apiQuote(c *gin.Context) {
	q, err := s.fetch(c.Request.Context())
	if err != nil {
		log.ErrorLog.Printf("api: %v", err)
		c.JSON(http.StatusServiceUnavailable, newErrorResponse(errorCodeUnavailable, err.Error()))
		return
	}

	shown := q.Displayed()
	c.JSON(http.StatusOK, quoteResponse{
		Text:     shown.Text,
		Author:   shown.Author,
		Long:     q.IsLong(s.opts.LongQuoteThreshold),
		ShareURL: share.BuildURL(s.opts.ShareBaseURL, shown.Text, shown.Author),
	})
}

// shareRedirect sends the browser to the share intent. An empty author is
// shared as Unknown.
func (s *Server) shareRedirect(c *gin.Context) {
	shown := quote.Quote{Text: c.Query("text"), Author: c.Query("author")}.Displayed()
	s.opts.Metrics.ObserveShare(metrics.SurfaceWeb)
	c.Redirect(http.StatusFound, share.BuildURL(s.opts.ShareBaseURL, shown.Text, shown.Author))
}

func liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
