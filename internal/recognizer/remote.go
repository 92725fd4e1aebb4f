package recognizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/rs/zerolog"

	"parking-anpr-service/internal/domain/recognition"
)

// RemoteRecognizer posts the image to an external recognition service and
// reports its answer verbatim. Every failure mode is classified uniformly
// as ErrRemoteUnavailable.
type RemoteRecognizer struct {
	endpoint string
	client   *http.Client
	log      zerolog.Logger
}

type remoteResponse struct {
	PlateNumber       string   `json:"plate_number"`
	CountryIdentifier string   `json:"country_identifier"`
	Confidence        *float64 `json:"confidence"`
	Error             string   `json:"error"`
}

func NewRemoteRecognizer(endpoint string, timeout time.Duration, log zerolog.Logger) *RemoteRecognizer {
	return &RemoteRecognizer{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		log:      log,
	}
}

func (r *RemoteRecognizer) Recognize(ctx context.Context, req recognition.Request) (*recognition.Result, error) {
	if r.endpoint == "" {
		return nil, ErrRemoteUnavailable
	}

	body, contentType, err := buildImageForm(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := r.client.Do(httpReq)
	if err != nil {
		r.log.Warn().Err(err).Str("endpoint", r.endpoint).Msg("remote recognition request failed")
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		r.log.Warn().Int("status", resp.StatusCode).Msg("remote recognition returned non-success status")
		return nil, fmt.Errorf("%w: status %d", ErrRemoteUnavailable, resp.StatusCode)
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}

	var remote remoteResponse
	if err := json.Unmarshal(payload, &remote); err != nil {
		r.log.Warn().Err(err).Msg("remote recognition returned malformed body")
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	if remote.Error != "" {
		r.log.Warn().Str("remote_error", remote.Error).Msg("remote recognition reported an error")
		return nil, fmt.Errorf("%w: %s", ErrRemoteUnavailable, remote.Error)
	}

	confidence := 0.5
	if remote.Confidence != nil {
		confidence = *remote.Confidence
	}

	return &recognition.Result{
		PlateNumber:       remote.PlateNumber,
		CountryIdentifier: remote.CountryIdentifier,
		Confidence:        confidence,
		Origin:            recognition.OriginRemote,
	}, nil
}

func buildImageForm(req recognition.Request) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	filename := req.Filename
	if filename == "" {
		filename = "upload.jpg"
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filename))
	header.Set("Content-Type", req.MimeType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(req.Image); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return body, writer.FormDataContentType(), nil
}
