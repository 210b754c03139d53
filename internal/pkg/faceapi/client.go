package faceapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/camera"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/face"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/pkg/imaging"
)

// detectQuality is enough for counting faces and keeps poll requests small.
const detectQuality = 75

// Client is a face.Engine backed by a remote recognition service exposing
// /enroll, /detect and /verify.
type Client struct {
	baseURL string
	http    *http.Client
}

var _ face.Engine = (*Client)(nil)

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type enrollRequest struct {
	EmployeeID string `json:"employee_id"`
	Image      string `json:"image"`
}

type enrollResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type detectRequest struct {
	Image string `json:"image"`
}

type detectedFace struct {
	Quality float64 `json:"quality"`
}

type detectResponse struct {
	DetectedFaces []detectedFace `json:"detected_faces"`
}

type verifyRequest struct {
	EmployeeID string `json:"employee_id"`
	Image      string `json:"image"`
}

// Enroll sends a reference image, given as a URL or data URL, to the engine.
func (c *Client) Enroll(ctx context.Context, employeeID string, ref face.Reference) error {
	var resp enrollResponse
	status, err := c.post(ctx, "/enroll", enrollRequest{EmployeeID: employeeID, Image: string(ref)}, &resp)
	if err != nil {
		return err
	}
	switch {
	case status == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", face.ErrNoFaceInReference, resp.Message)
	case status == http.StatusBadRequest:
		return fmt.Errorf("%w: %s", face.ErrInvalidReference, resp.Message)
	case status >= 300 || !resp.Success:
		return fmt.Errorf("%w: enroll responded %d %s", face.ErrEngineUnavailable, status, resp.Message)
	}
	return nil
}

func (c *Client) Detect(ctx context.Context, frame image.Image) (int, error) {
	data, err := imaging.EncodeJPEG(frame, detectQuality)
	if err != nil {
		return 0, err
	}

	var resp detectResponse
	status, err := c.post(ctx, "/detect", detectRequest{Image: camera.EncodeDataURL(imaging.MIMEJPEG, data)}, &resp)
	if err != nil {
		return 0, err
	}
	if status >= 300 {
		return 0, fmt.Errorf("%w: detect responded %d", face.ErrEngineUnavailable, status)
	}
	return len(resp.DetectedFaces), nil
}

func (c *Client) Verify(ctx context.Context, employeeID string, jpeg []byte) (face.Result, error) {
	var resp face.Result
	req := verifyRequest{EmployeeID: employeeID, Image: camera.EncodeDataURL(imaging.MIMEJPEG, jpeg)}
	status, err := c.post(ctx, "/verify", req, &resp)
	if err != nil {
		return face.Result{}, err
	}
	switch {
	case status == http.StatusNotFound:
		return face.Result{}, face.ErrNotEnrolled
	case status >= 300:
		return face.Result{Success: false, Message: resp.Message}, nil
	}
	return resp, nil
}

// post returns the status code; transport failures are ErrEngineUnavailable.
func (c *Client) post(ctx context.Context, path string, body, out any) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, fmt.Errorf("%w: %v", face.ErrEngineUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("%w: %v", face.ErrEngineUnavailable, err)
	}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, out); err != nil && resp.StatusCode < 300 {
			return resp.StatusCode, fmt.Errorf("%w: malformed response: %v", face.ErrEngineUnavailable, err)
		}
	}
	return resp.StatusCode, nil
}
