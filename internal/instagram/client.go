package instagram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"reelscope/internal/config"
	"reelscope/internal/logging"
	"reelscope/internal/media"
	"reelscope/internal/platform"
	"reelscope/internal/services"
	"reelscope/internal/stage"
)

const stageName = "fetch_comments"

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the transport (for tests). The client's Jar is
// replaced per fetch.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client fetches Instagram comments.
type Client struct {
	cfg    config.Instagram
	base   *url.URL
	http   *http.Client
	logger *slog.Logger
}

// New builds a client from configuration.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.Instagram.BaseURL, "/"))
	if err != nil || base.Host == "" {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "init", fmt.Sprintf("invalid instagram base_url %q", cfg.Instagram.BaseURL), err)
	}
	c := &Client{
		cfg:    cfg.Instagram,
		base:   base,
		http:   &http.Client{Timeout: time.Duration(cfg.Instagram.RequestTimeout) * time.Second},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "instagram")
	return c, nil
}

type session struct {
	client    *http.Client
	csrf      string
	loginUsed bool
}

func (c *Client) newSession(cookiesFile string) (*session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	s := &session{client: &http.Client{
		Transport: c.http.Transport,
		Timeout:   c.http.Timeout,
		Jar:       jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if strings.Contains(req.URL.Path, "/accounts/login") {
				return http.ErrUseLastResponse
			}
			if len(via) >= 5 {
				return errors.New("too many redirects")
			}
			return nil
		},
	}}
	if cookiesFile == "" {
		return s, nil
	}
	cookies, err := LoadCookies(cookiesFile, c.base.Hostname())
	if err != nil {
		return nil, err
	}
	jar.SetCookies(c.base, cookies)
	s.csrf = findCookie(cookies, csrfCookie)
	s.loginUsed = findCookie(cookies, sessionCookie) != ""
	return s, nil
}

// FetchComments retrieves up to req.MaxComments comments for the post in
// req.URL. report receives values in [0,1].
func (c *Client) FetchComments(ctx context.Context, req media.Request, report stage.ProgressFunc) (*media.CommentSet, error) {
	if report == nil {
		report = func(float64, string) {}
	}
	logger := logging.WithContext(ctx, c.logger)

	shortcode, ok := platform.InstagramShortcode(req.URL)
	if !ok {
		return nil, services.Wrap(services.ErrValidation, stageName, "shortcode", fmt.Sprintf("could not extract Instagram shortcode from URL: %s", req.URL), nil)
	}
	mediaID, err := MediaID(shortcode)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, stageName, "shortcode", err.Error(), nil)
	}
	limit := req.MaxComments
	if limit <= 0 {
		limit = 200
	}

	report(0.1, "Connecting to Instagram...")

	cookiesFile := req.CookiesFile
	if cookiesFile == "" {
		cookiesFile = c.cfg.CookiesFile
	}
	sess, err := c.newSession(cookiesFile)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "session", "load cookies", err)
	}
	if creds := req.Credentials; creds != nil && creds.Password != "" && !sess.loginUsed {
		logger.Warn("password login is not supported; fetching anonymously",
			logging.String(logging.FieldEventType, "instagram_login_skipped"),
			logging.String(logging.FieldErrorHint, "export Instagram cookies and pass cookies_file"),
			logging.String("username", creds.Username),
		)
	}

	report(0.3, "Fetching post data...")
	postURL := c.base.JoinPath("p", shortcode).String() + "/"
	meta, err := c.fetchMetadata(ctx, sess, shortcode, postURL)
	if err != nil {
		logger.Warn("post metadata unavailable",
			logging.String(logging.FieldEventType, "instagram_metadata_failed"),
			logging.String(logging.FieldImpact, "post_info will be sparse"),
			logging.Error(err),
		)
		meta = media.PostMetadata{Shortcode: shortcode, URL: postURL, MediaType: "image"}
	}

	report(0.5, "Fetching comments...")
	var comments []media.Comment
	cursor := ""
	for len(comments) < limit {
		page, err := c.fetchPage(ctx, sess, mediaID, cursor, postURL)
		if err != nil {
			if len(comments) == 0 {
				return nil, err
			}
			logger.Warn("comment paging stopped early; keeping partial results",
				logging.String(logging.FieldEventType, "instagram_partial_fetch"),
				logging.Int("fetched", len(comments)),
				logging.Error(err),
			)
			break
		}
		for _, item := range page.Comments {
			if len(comments) >= limit {
				break
			}
			comments = append(comments, item.toComment())
		}
		ratio := min(float64(len(comments))/float64(limit), 1.0)
		report(0.5+0.4*ratio, fmt.Sprintf("Fetched %d comments...", len(comments)))
		if page.NextMinID == "" || len(page.Comments) == 0 {
			break
		}
		cursor = page.NextMinID
	}

	report(1.0, "Comments fetched")
	logger.Info("comments fetched",
		logging.String("shortcode", shortcode),
		logging.Int("comments", len(comments)),
		logging.Bool("login_used", sess.loginUsed),
	)
	return media.NewCommentSet(comments, meta, sess.loginUsed), nil
}

func (c *Client) fetchMetadata(ctx context.Context, sess *session, shortcode, postURL string) (media.PostMetadata, error) {
	resp, err := c.do(ctx, sess, postURL, "")
	if err != nil {
		return media.PostMetadata{}, err
	}
	defer resp.Body.Close()
	if err := statusError(resp, "post"); err != nil {
		return media.PostMetadata{}, err
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return media.PostMetadata{}, fmt.Errorf("parse post page: %w", err)
	}
	return parseMetadata(doc, shortcode, postURL), nil
}

type commentPage struct {
	Comments     []apiComment `json:"comments"`
	NextMinID    string       `json:"next_min_id"`
	Status       string       `json:"status"`
	Message      string       `json:"message"`
	RequireLogin bool         `json:"require_login"`
}

type apiComment struct {
	Text      string `json:"text"`
	CreatedAt int64  `json:"created_at"`
	LikeCount int    `json:"comment_like_count"`
	User      struct {
		Username string `json:"username"`
	} `json:"user"`
}

func (a apiComment) toComment() media.Comment {
	out := media.Comment{Text: a.Text, Author: a.User.Username, LikeCount: a.LikeCount}
	if a.CreatedAt > 0 {
		out.Timestamp = time.Unix(a.CreatedAt, 0).UTC()
	}
	return out
}

func (c *Client) fetchPage(ctx context.Context, sess *session, mediaID, cursor, referer string) (commentPage, error) {
	endpoint := c.base.JoinPath("api", "v1", "media", mediaID, "comments").String() + "/"
	query := url.Values{}
	query.Set("can_support_threading", "true")
	query.Set("permalink_enabled", "false")
	if cursor != "" {
		query.Set("min_id", cursor)
	}
	resp, err := c.do(ctx, sess, endpoint+"?"+query.Encode(), referer)
	if err != nil {
		return commentPage{}, err
	}
	defer resp.Body.Close()
	if err := statusError(resp, "comments"); err != nil {
		return commentPage{}, err
	}

	var page commentPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return commentPage{}, services.Wrap(services.ErrExternalTool, stageName, "comments", "unexpected response from Instagram", err)
	}
	if page.RequireLogin {
		return commentPage{}, services.Wrap(services.ErrAuthRequired, stageName, "comments", "this post requires authentication; provide a cookies file", nil)
	}
	if page.Status != "" && page.Status != "ok" {
		return commentPage{}, services.Wrap(services.ErrExternalTool, stageName, "comments", strings.TrimSpace("Instagram returned status "+page.Status+" "+page.Message), nil)
	}
	return page, nil
}

func (c *Client) do(ctx context.Context, sess *session, target, referer string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, stageName, "request", "build request", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("X-IG-App-ID", c.cfg.AppID)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	if referer != "" {
		req.Header.Set("Referer", referer)
		req.Header.Set("X-Requested-With", "XMLHttpRequest")
	}
	if sess.csrf != "" {
		req.Header.Set("X-CSRFToken", sess.csrf)
	}
	resp, err := sess.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, services.FromContextErr(ctx, stageName, "request", err)
		}
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, services.Wrap(services.ErrTimeout, stageName, "request", "Instagram did not respond in time", err)
		}
		return nil, services.Wrap(services.ErrExternalTool, stageName, "request", "", err)
	}
	return resp, nil
}

func statusError(resp *http.Response, operation string) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode >= 300 && resp.StatusCode < 400:
		return services.Wrap(services.ErrAuthRequired, stageName, operation, "Instagram requires login for this post; provide a cookies file", nil)
	case resp.StatusCode == http.StatusNotFound:
		return services.Wrap(services.ErrNotFound, stageName, operation, "post not found; it may be private or deleted", nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return services.Wrap(services.ErrTransient, stageName, operation, "rate limited by Instagram", nil)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return services.Wrap(services.ErrExternalTool, stageName, operation, fmt.Sprintf("Instagram returned %s %s", resp.Status, strings.TrimSpace(string(body))), nil)
	}
}

// HealthCheck reports whether a session cookie file is configured. Anonymous
// fetches work but are heavily limited.
func (c *Client) HealthCheck(context.Context) stage.Health {
	if strings.TrimSpace(c.cfg.CookiesFile) == "" {
		return stage.Health{Name: stageName, Ready: true, Detail: "no cookies_file configured; anonymous fetches are limited"}
	}
	cookies, err := LoadCookies(c.cfg.CookiesFile, c.base.Hostname())
	if err != nil {
		return stage.Unhealthy(stageName, err.Error())
	}
	if findCookie(cookies, sessionCookie) == "" {
		return stage.Unhealthy(stageName, "cookies file has no Instagram session")
	}
	return stage.Healthy(stageName)
}
