package ecosapiens

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"ecoscan/internal/transport"
	"ecoscan/pkg/config"
	errs "ecoscan/pkg/errors"
	"ecoscan/pkg/logger"
	"ecoscan/pkg/models"
	"ecoscan/pkg/ratelimit"
)

// Client talks to the scan API on behalf of one account
type Client struct {
	http          *transport.Client
	baseURL       string
	uploadTimeout time.Duration
	logger        logger.Logger
}

// NewClient creates a client authenticated by the account's session cookie
func NewClient(cfg config.EcosapiensConfig, cookie string, limiter ratelimit.Limiter, log logger.Logger) *Client {
	if log == nil {
		log = logger.NewNopLogger()
	}
	log = log.WithField("component", "ecosapiens")

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = BaseURL
	}

	httpClient := transport.New(cfg.Timeout, limiter, log)
	httpClient.SetHeaders(map[string]string{
		"Accept":          "application/json",
		"Accept-Language": "en-US,en;q=0.9",
		"User-Agent":      cfg.UserAgent,
		"Cookie":          cookie,
		"Referer":         cfg.Referer,
	})

	return &Client{
		http:          httpClient,
		baseURL:       baseURL,
		uploadTimeout: cfg.UploadTimeout,
		logger:        log,
	}
}

// SetHTTPClient replaces the underlying http.Client
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.http.SetHTTPClient(hc)
}

// Identity fetches the user behind the session cookie. A rejected cookie is
// reported as KindInvalidCredential.
func (c *Client) Identity(ctx context.Context) (models.CurrentUser, error) {
	var resp models.SessionResponse
	if err := c.http.GetJSON(ctx, endpoint(c.baseURL, SessionEndpoint), &resp); err != nil {
		if errs.IsAuth(err) {
			return models.CurrentUser{}, errs.Wrap(errs.KindInvalidCredential, "Cookie is invalid or expired", err)
		}
		return models.CurrentUser{}, errs.Wrap(errs.KindServiceError, "session lookup failed", err)
	}
	return resp.CurrentUser, nil
}

// Points returns the account's total points
func (c *Client) Points(ctx context.Context) (float64, error) {
	var resp models.LootTotal
	if err := c.http.GetJSON(ctx, endpoint(c.baseURL, LootTotalEndpoint), &resp); err != nil {
		return 0, errs.Wrap(errs.KindServiceError, "points lookup failed", err)
	}
	return resp.TotalPoints, nil
}

// Submit uploads an image and returns the id of the created scan
func (c *Client) Submit(ctx context.Context, image []byte, filename string) (string, error) {
	body, contentType, err := encodeUpload(image, filename)
	if err != nil {
		return "", errs.Wrap(errs.KindUploadFailed, "failed to encode upload", err)
	}

	url := endpoint(c.baseURL, ScansEndpoint)
	data, err := c.http.Send(ctx, http.MethodPost, url, body, map[string]string{"Content-Type": contentType}, c.uploadTimeout)
	if err != nil {
		return "", errs.Wrap(errs.KindUploadFailed, "upload failed", err)
	}

	var submission models.ScanSubmission
	if err := c.http.DecodeJSON(url, data, &submission); err != nil {
		return "", errs.Wrap(errs.KindUploadFailed, "upload failed", err)
	}
	if submission.ID == "" {
		return "", errs.New(errs.KindUploadFailed, "upload response carried no scan id")
	}

	c.logger.DebugWithFields("image uploaded", map[string]interface{}{
		"scan_id":  string(submission.ID),
		"filename": filename,
		"bytes":    len(image),
	})

	return string(submission.ID), nil
}

// Poll returns the current state of a scan
func (c *Client) Poll(ctx context.Context, scanID string) (models.ScanResult, error) {
	var result models.ScanResult
	if err := c.http.GetJSON(ctx, GetScanURL(c.baseURL, scanID), &result); err != nil {
		return models.ScanResult{}, errs.Wrap(errs.KindServiceError, "scan status lookup failed", err)
	}
	return result, nil
}

func encodeUpload(image []byte, filename string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, UploadField, filename))
	header.Set("Content-Type", UploadContentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return body, writer.FormDataContentType(), nil
}
