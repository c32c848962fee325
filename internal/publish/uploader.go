package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"dubshorts/internal/config"
	"dubshorts/internal/logging"
	"dubshorts/internal/services"
)

const (
	defaultChunkSize     = 5 * 1024 * 1024
	defaultRetryInterval = 5 * time.Second
	defaultHTTPTimeout   = 2 * time.Minute
	assetContentType     = "video/mp4"
)

// RetryPolicy bounds transient-failure retries. MaxAttempts counts
// consecutive failed attempts for one request; 0 retries until the context
// is cancelled.
type RetryPolicy struct {
	Interval    time.Duration
	MaxAttempts int
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// ProgressFunc receives integer upload percentages. Repeated values are
// suppressed.
type ProgressFunc func(percent int)

// Result identifies a published video.
type Result struct {
	VideoID       string
	ScheduledTime time.Time
	Slot          Slot
}

// Uploader publishes assets through a resumable upload session.
type Uploader struct {
	endpoint      string
	accessToken   string
	categoryID    string
	privacyStatus string
	chunkSize     int64

	httpClient *http.Client
	strategy   SlotStrategy
	retry      RetryPolicy
	sleep      Sleeper
	now        func() time.Time
	progress   ProgressFunc
	logger     *slog.Logger
}

// Option customizes the uploader.
type Option func(*Uploader)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(u *Uploader) {
		if client != nil {
			u.httpClient = client
		}
	}
}

// WithSleeper overrides how retry waits are performed (useful for tests).
func WithSleeper(sleeper Sleeper) Option {
	return func(u *Uploader) {
		if sleeper != nil {
			u.sleep = sleeper
		}
	}
}

// WithClock overrides the clock used for slot assignment.
func WithClock(now func() time.Time) Option {
	return func(u *Uploader) {
		if now != nil {
			u.now = now
		}
	}
}

// WithProgress registers a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(u *Uploader) {
		u.progress = fn
	}
}

// WithRetryPolicy overrides the retry policy.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(u *Uploader) {
		u.retry = policy
	}
}

// WithChunkSize overrides the upload chunk size in bytes.
func WithChunkSize(size int64) Option {
	return func(u *Uploader) {
		if size > 0 {
			u.chunkSize = size
		}
	}
}

// NewUploader constructs an uploader from the [publish] section.
func NewUploader(cfg config.Publish, strategy SlotStrategy, logger *slog.Logger, opts ...Option) *Uploader {
	u := &Uploader{
		endpoint:      strings.TrimSpace(cfg.UploadURL),
		accessToken:   strings.TrimSpace(cfg.AccessToken),
		categoryID:    strings.TrimSpace(cfg.CategoryID),
		privacyStatus: strings.TrimSpace(cfg.PrivacyStatus),
		chunkSize:     int64(cfg.ChunkSizeMiB) * 1024 * 1024,
		httpClient:    &http.Client{Timeout: defaultHTTPTimeout},
		strategy:      strategy,
		retry: RetryPolicy{
			Interval:    time.Duration(cfg.RetryIntervalSeconds) * time.Second,
			MaxAttempts: cfg.RetryMaxAttempts,
		},
		sleep:  contextSleep,
		now:    time.Now,
		logger: logging.NewComponentLogger(logger, "publish"),
	}
	for _, opt := range opts {
		opt(u)
	}
	if u.chunkSize <= 0 {
		u.chunkSize = defaultChunkSize
	}
	if u.retry.Interval <= 0 {
		u.retry.Interval = defaultRetryInterval
	}
	if u.categoryID == "" {
		u.categoryID = "22"
	}
	if u.privacyStatus == "" {
		u.privacyStatus = "private"
	}
	if u.strategy == nil {
		u.strategy = Alternating{Morning: ClockTime{9, 45}, Evening: ClockTime{19, 30}}
	}
	return u
}

// Strategy returns the slot strategy in use.
func (u *Uploader) Strategy() SlotStrategy {
	return u.strategy
}

type statusError struct {
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("upload request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Publish uploads asset with meta, scheduled into the slot for position
// alreadyScheduled. Transient failures retry the same chunk; exhausting the
// retry policy returns ErrTransientUpload and other failures ErrPublish.
func (u *Uploader) Publish(ctx context.Context, asset string, meta Metadata, alreadyScheduled int) (Result, error) {
	logger := logging.WithContext(ctx, u.logger)
	if u.endpoint == "" {
		return Result{}, services.Wrap(services.ErrConfiguration, "publishing", "check config", "publish.upload_url not set", nil)
	}
	if u.accessToken == "" {
		return Result{}, services.Wrap(services.ErrConfiguration, "publishing", "check config",
			"publish.access_token not set (or DUBSHORTS_YOUTUBE_TOKEN)", nil)
	}

	file, err := os.Open(asset)
	if err != nil {
		return Result{}, services.Wrap(services.ErrPublish, "publishing", "open asset", asset, err)
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return Result{}, services.Wrap(services.ErrPublish, "publishing", "stat asset", asset, err)
	}
	size := info.Size()
	if size == 0 {
		return Result{}, services.Wrap(services.ErrPublish, "publishing", "check asset", "asset is empty", nil)
	}

	slot := u.strategy.Next(u.now(), alreadyScheduled)
	logger.Info("upload starting",
		logging.String("asset", asset),
		logging.String("size", humanize.IBytes(uint64(size))),
		logging.String("title", meta.Title),
		logging.String("publish_at", slot.ScheduledTime.Format(time.RFC3339)),
		logging.String("slot", slot.Parity.String()),
		logging.String(logging.FieldEventType, "upload_started"),
	)

	session, err := u.withRetry(ctx, logger, "start session", func() (string, error) {
		return u.startSession(ctx, meta, slot, size)
	})
	if err != nil {
		return Result{}, err
	}

	tracker := newProgressTracker(u.progress)
	sampler := logging.NewProgressSampler(25)
	var offset int64
	buf := make([]byte, u.chunkSize)
	for {
		var videoID string
		var committed int64
		_, err := u.withRetry(ctx, logger, "upload chunk", func() (string, error) {
			end := min(offset+u.chunkSize, size)
			chunk := buf[:end-offset]
			if _, err := file.ReadAt(chunk, offset); err != nil && !errors.Is(err, io.EOF) {
				return "", fmt.Errorf("read chunk of %s: %w", asset, err)
			}
			var putErr error
			videoID, committed, putErr = u.putChunk(ctx, session, chunk, offset, size)
			if putErr == nil && videoID == "" && committed <= offset {
				// Resend from whatever the server still holds.
				offset = committed
				return "", errUploadStalled
			}
			return "", putErr
		})
		if err != nil {
			return Result{}, err
		}
		if videoID != "" {
			tracker.report(100)
			logger.Info("upload complete",
				logging.String("video_id", videoID),
				logging.String("publish_at", slot.ScheduledTime.Format(time.RFC3339)),
				logging.String(logging.FieldEventType, "upload_completed"),
			)
			return Result{VideoID: videoID, ScheduledTime: slot.ScheduledTime, Slot: slot}, nil
		}
		offset = committed
		percent := int(offset * 100 / size)
		tracker.report(percent)
		if sampler.ShouldLog(float64(percent), "upload") {
			logger.Info("upload progress",
				logging.Int("percent", percent),
				logging.String("sent", humanize.IBytes(uint64(offset))),
			)
		}
	}
}

// withRetry runs op until it succeeds, fails permanently, exhausts the retry
// policy, or ctx is cancelled.
func (u *Uploader) withRetry(ctx context.Context, logger *slog.Logger, stage string, op func() (string, error)) (string, error) {
	attempts := 0
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		value, err := op()
		if err == nil {
			return value, nil
		}
		if !isTransient(err) {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", services.Wrap(services.ErrPublish, "publishing", stage, "", err)
		}
		attempts++
		if u.retry.MaxAttempts > 0 && attempts >= u.retry.MaxAttempts {
			return "", services.Wrap(services.ErrTransientUpload, "publishing", stage,
				fmt.Sprintf("gave up after %d attempts", attempts), err)
		}
		logging.WarnWithContext(logger, "transient upload error; retrying", "upload_retry",
			logging.String("stage", stage),
			logging.Int("attempt", attempts),
			logging.Duration("retry_in", u.retry.Interval),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check network connectivity and API quota"),
			logging.String(logging.FieldImpact, "upload delayed"),
		)
		if err := u.sleep(ctx, u.retry.Interval); err != nil {
			return "", err
		}
	}
}

type uploadBody struct {
	Snippet struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Tags        []string `json:"tags"`
		CategoryID  string   `json:"categoryId"`
	} `json:"snippet"`
	Status struct {
		PrivacyStatus           string `json:"privacyStatus"`
		PublishAt               string `json:"publishAt"`
		SelfDeclaredMadeForKids bool   `json:"selfDeclaredMadeForKids"`
	} `json:"status"`
}

func (u *Uploader) startSession(ctx context.Context, meta Metadata, slot Slot, size int64) (string, error) {
	var body uploadBody
	body.Snippet.Title = meta.Title
	body.Snippet.Description = meta.Description
	body.Snippet.Tags = meta.Tags
	if body.Snippet.Tags == nil {
		body.Snippet.Tags = []string{}
	}
	body.Snippet.CategoryID = u.categoryID
	body.Status.PrivacyStatus = u.privacyStatus
	body.Status.PublishAt = slot.ScheduledTime.UTC().Format(time.RFC3339)
	encoded, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode upload body: %w", err)
	}

	endpoint, err := url.Parse(u.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse upload url: %w", err)
	}
	query := endpoint.Query()
	query.Set("uploadType", "resumable")
	query.Set("part", "snippet,status")
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("new session request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+u.accessToken)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("X-Upload-Content-Length", strconv.FormatInt(size, 10))
	req.Header.Set("X-Upload-Content-Type", assetContentType)

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", &statusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	location := strings.TrimSpace(resp.Header.Get("Location"))
	if location == "" {
		return "", errors.New("upload session: missing Location header")
	}
	return location, nil
}

// putChunk sends one chunk. It returns the created video ID when the upload
// finished, otherwise the committed byte offset reported by the server.
func (u *Uploader) putChunk(ctx context.Context, session string, chunk []byte, offset, size int64) (string, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, session, bytes.NewReader(chunk))
	if err != nil {
		return "", 0, fmt.Errorf("new chunk request: %w", err)
	}
	last := offset + int64(len(chunk)) - 1
	req.ContentLength = int64(len(chunk))
	req.Header.Set("Authorization", "Bearer "+u.accessToken)
	req.Header.Set("Content-Type", assetContentType)
	req.Header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", offset, last, size))

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		var created struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(body, &created); err != nil {
			return "", 0, fmt.Errorf("decode upload response: %w", err)
		}
		if strings.TrimSpace(created.ID) == "" {
			return "", 0, errors.New("upload response missing video id")
		}
		return created.ID, size, nil
	case http.StatusPermanentRedirect:
		// No Range header means the server holds no bytes yet.
		committed, _ := parseRange(resp.Header.Get("Range"))
		return "", committed, nil
	default:
		return "", 0, &statusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
}

// parseRange converts "bytes=0-N" into the next offset N+1.
func parseRange(header string) (int64, bool) {
	header = strings.TrimSpace(header)
	_, span, ok := strings.Cut(header, "=")
	if !ok {
		return 0, false
	}
	_, last, ok := strings.Cut(span, "-")
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(last), 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n + 1, true
}

// errUploadStalled marks a 308 that committed nothing past the chunk start.
var errUploadStalled = errors.New("upload session made no progress")

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, errUploadStalled) {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var status *statusError
	if errors.As(err, &status) {
		switch status.StatusCode {
		case http.StatusRequestTimeout, http.StatusTooManyRequests,
			http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr) || errors.Is(err, io.ErrUnexpectedEOF)
}

func contextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type progressTracker struct {
	fn   ProgressFunc
	last int
}

func newProgressTracker(fn ProgressFunc) *progressTracker {
	return &progressTracker{fn: fn, last: -1}
}

func (p *progressTracker) report(percent int) {
	percent = min(max(percent, 0), 100)
	if p.fn == nil || percent == p.last {
		return
	}
	p.last = percent
	p.fn(percent)
}
