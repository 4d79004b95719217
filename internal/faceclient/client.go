package faceclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"smartcampus/internal/recognition"
)

// Face is one detection returned by the vision service.
type Face struct {
	Label      string             `json:"label"`
	Confidence float64            `json:"confidence"`
	Box        recognition.Region `json:"box"`
}

// EnrollResult contains the face enrollment response.
type EnrollResult struct {
	StudentID string `json:"student_id"`
	Success   bool   `json:"success"`
	Message   string `json:"message"`
}

// Client calls the face recognition microservice. With Skip set no request
// is made: Recognize finds no faces and Enroll reports success.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Skip    bool
}

// New creates a client with configurable timeout.
func New(baseURL string, skip bool) *Client {
	return &Client{
		BaseURL: baseURL,
		Skip:    skip,
		HTTP: &http.Client{
			Timeout: 30 * time.Second, // Face processing can take time
		},
	}
}

// Recognize posts the frame as multipart field "photo" to /recognize and
// returns the detected faces in the order the service reported them.
func (c *Client) Recognize(ctx context.Context, frame []byte) ([]recognition.Result, error) {
	if c.Skip {
		return nil, nil
	}
	if len(frame) == 0 {
		return nil, fmt.Errorf("%w: empty frame", recognition.ErrInvalidFrame)
	}

	body, contentType, err := multipartBody(map[string]string{}, "photo", "frame.jpg", frame)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/recognize", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	var out struct {
		Faces []Face `json:"faces"`
	}
	if err := c.do(req, &out); err != nil {
		return nil, err
	}

	results := make([]recognition.Result, 0, len(out.Faces))
	for _, f := range out.Faces {
		results = append(results, recognition.Result{
			IdentityKey: f.Label,
			Confidence:  f.Confidence,
			Region:      f.Box,
		})
	}
	return results, nil
}

// Enroll registers a student's reference photo with the vision service.
func (c *Client) Enroll(ctx context.Context, studentID string, photo []byte, filename string) (*EnrollResult, error) {
	if c.Skip {
		return &EnrollResult{StudentID: studentID, Success: true, Message: "Face enrolled (mock)"}, nil
	}
	if filename == "" {
		filename = studentID + ".jpg"
	}

	body, contentType, err := multipartBody(map[string]string{"student_id": studentID}, "photo", filename, photo)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/enroll", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	var out EnrollResult
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health checks if the face service is available.
func (c *Client) Health(ctx context.Context) error {
	if c.Skip {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: face service unavailable: %w", recognition.ErrRecognizerUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: face service unhealthy: %s", recognition.ErrRecognizerUnavailable, resp.Status)
	}

	return nil
}

// do sends req and decodes a JSON response into out. 4xx responses mean the
// image was rejected; anything else unexpected means the service is down.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: face service request failed: %w", recognition.ErrRecognizerUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("%w: face service rejected image: %s", recognition.ErrInvalidFrame, bytes.TrimSpace(bodyBytes))
	}
	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("%w: face service error %s: %s", recognition.ErrRecognizerUnavailable, resp.Status, bytes.TrimSpace(bodyBytes))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %w", recognition.ErrRecognizerUnavailable, err)
	}
	return nil
}

func multipartBody(fields map[string]string, fileField, filename string, data []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	fw, err := w.CreateFormFile(fileField, filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := fw.Write(data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
