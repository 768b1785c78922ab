package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/pprof/profile"
	"github.com/rs/zerolog"
)

type Config struct {
	PyroscopeURL string
	AuthToken    string
	AppName      string
	Logger       zerolog.Logger
}

type Sender struct {
	config Config
	client *http.Client
}

func New(config Config) *Sender {
	return &Sender{
		config: config,
		client: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

// SendProfile uploads a call profile to the Pyroscope ingest endpoint
func (s *Sender) SendProfile(ctx context.Context, prof *profile.Profile, sampleTypeConfig map[string]map[string]interface{}) error {
	// Validate the profile
	if err := prof.CheckValid(); err != nil {
		return errors.Wrap(err, "invalid profile")
	}

	// Convert the profile data to bytes
	var buf bytes.Buffer
	if err := prof.Write(&buf); err != nil {
		return errors.Wrap(err, "writing profile")
	}

	sampleTypeConfigJSON, err := json.Marshal(sampleTypeConfig)
	if err != nil {
		return errors.Wrap(err, "marshalling sampleTypeConfig")
	}

	// Create a multipart form body
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	profilePart, err := writer.CreateFormFile("profile", "profile.pprof")
	if err != nil {
		return errors.Wrap(err, "creating profile part")
	}
	if _, err := profilePart.Write(buf.Bytes()); err != nil {
		return errors.Wrap(err, "writing profile data")
	}

	sampleTypeConfigPart, err := writer.CreateFormFile("sample_type_config", "config.json")
	if err != nil {
		return errors.Wrap(err, "creating sample_type_config part")
	}
	if _, err := sampleTypeConfigPart.Write(sampleTypeConfigJSON); err != nil {
		return errors.Wrap(err, "writing sample_type_config data")
	}

	// Close the writer to finalize the multipart form body
	if err := writer.Close(); err != nil {
		return errors.Wrap(err, "closing writer")
	}

	params := url.Values{}
	params.Set("name", s.config.AppName)
	ingestURL := s.config.PyroscopeURL + "/ingest?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ingestURL, &body)
	if err != nil {
		return errors.Wrap(err, "creating request")
	}

	req.Header.Set("Content-Type", writer.FormDataContentType())
	if s.config.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.AuthToken)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "sending request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		respBody, _ := io.ReadAll(resp.Body)
		return errors.Newf("unexpected status code: %d, response: %s", resp.StatusCode, string(respBody))
	}
	s.config.Logger.Info().Str("app", s.config.AppName).Msg("profile sent")

	return nil
}
