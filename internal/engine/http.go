package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// HTTP is a shared client for the model sidecar services.
type HTTP struct{ c *http.Client }

func NewHTTP(timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &HTTP{c: &http.Client{Timeout: timeout}}
}

// postFile uploads path as multipart field "file" plus extra form fields
// and decodes the JSON response into out.
func (h *HTTP) postFile(ctx context.Context, url, path string, fields map[string]string, out any) error {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	fw, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return err
	}
	fd, err := os.Open(path)
	if err != nil {
		return err
	}
	defer fd.Close()

	if _, err = io.Copy(fw, fd); err != nil {
		return err
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return err
		}
	}
	if err = w.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &b)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return h.do(req, out)
}

func (h *HTTP) postJSON(ctx context.Context, url string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return h.do(req, out)
}

func (h *HTTP) do(req *http.Request, out any) error {
	resp, err := h.c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

type httpTranscriber struct {
	http *HTTP
	url  string
}

// NewHTTPTranscriber posts audio to <url>/transcribe.
func NewHTTPTranscriber(h *HTTP, url string) Transcriber {
	return &httpTranscriber{http: h, url: strings.TrimRight(url, "/")}
}

func (t *httpTranscriber) Transcribe(ctx context.Context, audioPath, language string) (Transcript, error) {
	var out Transcript
	err := t.http.postFile(ctx, t.url+"/transcribe", audioPath, map[string]string{"language": language}, &out)
	if err != nil {
		return Transcript{}, fmt.Errorf("asr: %w", err)
	}
	if out.Language == "" {
		out.Language = language
	}
	return out, nil
}

type diarizeResp struct {
	Segments []Turn `json:"segments"`
}

type httpDiarizer struct {
	http *HTTP
	url  string
}

// NewHTTPDiarizer posts audio to <url>/diarize.
func NewHTTPDiarizer(h *HTTP, url string) Diarizer {
	return &httpDiarizer{http: h, url: strings.TrimRight(url, "/")}
}

func (d *httpDiarizer) Diarize(ctx context.Context, audioPath string) ([]Turn, error) {
	var out diarizeResp
	if err := d.http.postFile(ctx, d.url+"/diarize", audioPath, nil, &out); err != nil {
		return nil, fmt.Errorf("diarization: %w", err)
	}
	return out.Segments, nil
}

type embedReq struct {
	Samples    []float32 `json:"samples"`
	SampleRate int       `json:"sample_rate"`
}

type embedResp struct {
	Embedding []float32 `json:"embedding"`
}

type httpEmbedder struct {
	http       *HTTP
	url        string
	sampleRate int
}

// NewHTTPEmbedder posts samples to <url>/embed.
func NewHTTPEmbedder(h *HTTP, url string, sampleRate int) Embedder {
	return &httpEmbedder{http: h, url: strings.TrimRight(url, "/"), sampleRate: sampleRate}
}

func (e *httpEmbedder) SampleRate() int { return e.sampleRate }

func (e *httpEmbedder) Embed(ctx context.Context, samples []float32, sampleRate int) ([]float32, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("embed: no samples")
	}
	var out embedResp
	if err := e.http.postJSON(ctx, e.url+"/embed", embedReq{Samples: samples, SampleRate: sampleRate}, &out); err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("embed: empty embedding")
	}
	return out.Embedding, nil
}

// HTTPEmbedderFactory rebuilds an HTTP embedder from metadata keys "url" and
// "sample_rate". Numbers read back from the JSON index arrive as float64.
func HTTPEmbedderFactory(h *HTTP) EmbedderFactory {
	return func(ctx context.Context, md map[string]any) (Embedder, error) {
		url, _ := md["url"].(string)
		if url == "" {
			return nil, fmt.Errorf("embedder metadata missing url")
		}
		rate := 16000
		switch v := md["sample_rate"].(type) {
		case int:
			rate = v
		case float64:
			rate = int(v)
		}
		return NewHTTPEmbedder(h, url, rate), nil
	}
}
