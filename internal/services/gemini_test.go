package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/desertthunder/gerak/internal/models"
	"github.com/desertthunder/gerak/internal/shared"
	tu "github.com/desertthunder/gerak/internal/testing"
	"google.golang.org/genai"
)

const samplePayload = `{
  "pose": {"nose": {"x": 0.5, "y": 0.1}, "left_knee": {"x": 0.4, "y": 0.7}, "right_knee": {"x": 0, "y": 0}},
  "feedback": {"left_knee": "incorrect", "nose": "correct"},
  "text": "Hebat! Coba angkat lututmu sedikit lebih tinggi lagi ya!"
}`

// generateRequest mirrors the JSON body the SDK sends to generateContent.
type generateRequest struct {
	Contents []struct {
		Role  string `json:"role"`
		Parts []struct {
			Text       string `json:"text"`
			InlineData *struct {
				MIMEType string `json:"mimeType"`
				Data     string `json:"data"`
			} `json:"inlineData"`
		} `json:"parts"`
	} `json:"contents"`
	GenerationConfig *struct {
		ResponseMIMEType string `json:"responseMimeType"`
		ResponseSchema   *struct {
			Type     string   `json:"type"`
			Required []string `json:"required"`
		} `json:"responseSchema"`
	} `json:"generationConfig"`
}

const apiKeyHeader = "x-goog-api-key"

func candidateBody(t *testing.T, texts ...string) []byte {
	t.Helper()
	parts := make([]map[string]string, 0, len(texts))
	for _, s := range texts {
		parts = append(parts, map[string]string{"text": s})
	}
	body, err := json.Marshal(map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"role": "model", "parts": parts}, "finishReason": "STOP"},
		},
	})
	if err != nil {
		t.Fatalf("failed to build response: %v", err)
	}
	return body
}

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		img.Set(x, h/2, color.White)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func newTestGemini(t *testing.T, url string, timeout time.Duration) *GeminiService {
	t.Helper()
	g, err := NewGeminiService(GeminiOpts{
		APIKey:  "test-key",
		Model:   "gemini-test",
		BaseURL: url,
		Timeout: timeout,
		Logger:  shared.NewLogger(io.Discard),
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	return g
}

func TestGeminiService(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		t.Run("Requires API Key", func(t *testing.T) {
			_, err := NewGeminiService(GeminiOpts{APIKey: "  "})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Defaults", func(t *testing.T) {
			g, err := NewGeminiService(GeminiOpts{APIKey: "k"})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if g.Model() != defaultGeminiModel {
				t.Errorf("expected model %s, got %s", defaultGeminiModel, g.Model())
			}
			if g.timeout != defaultGeminiTimeout {
				t.Errorf("expected timeout %v, got %v", defaultGeminiTimeout, g.timeout)
			}
			if g.Name() != "Gemini" {
				t.Errorf("unexpected name %s", g.Name())
			}
		})
	})

	t.Run("Analyze", func(t *testing.T) {
		t.Run("Request Shape", func(t *testing.T) {
			frame := testJPEG(t, 64, 48)

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("expected POST, got %s", r.Method)
				}
				if r.URL.Path != "/v1beta/models/gemini-test:generateContent" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				if got := r.Header.Get(apiKeyHeader); got != "test-key" {
					t.Errorf("expected api key header, got %q", got)
				}

				var req generateRequest
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					t.Fatalf("failed to decode request: %v", err)
				}
				if len(req.Contents) != 1 || req.Contents[0].Role != "user" || len(req.Contents[0].Parts) != 2 {
					t.Fatalf("expected one content with two parts, got %+v", req.Contents)
				}

				text := req.Contents[0].Parts[0].Text
				if strings.Count(text, "'Berjalan'") != 2 {
					t.Errorf("expected movement name twice in instruction, got %q", text)
				}

				inline := req.Contents[0].Parts[1].InlineData
				if inline == nil || inline.MIMEType != "image/jpeg" {
					t.Fatalf("expected inline jpeg part, got %+v", inline)
				}
				raw, err := base64.StdEncoding.DecodeString(inline.Data)
				if err != nil {
					t.Fatalf("inline data is not base64: %v", err)
				}
				cfg, err := jpeg.DecodeConfig(bytes.NewReader(raw))
				if err != nil {
					t.Fatalf("inline data is not a jpeg: %v", err)
				}
				if cfg.Width != 64 || cfg.Height != 48 {
					t.Errorf("expected 64x48 frame, got %dx%d", cfg.Width, cfg.Height)
				}

				gc := req.GenerationConfig
				if gc == nil || gc.ResponseMIMEType != "application/json" || gc.ResponseSchema == nil {
					t.Fatalf("expected JSON generation config, got %+v", gc)
				}
				if gc.ResponseSchema.Type != "OBJECT" || len(gc.ResponseSchema.Required) != 3 {
					t.Errorf("expected pose, feedback and text required, got %v", gc.ResponseSchema.Required)
				}

				w.Write(candidateBody(t, samplePayload))
			}))
			defer server.Close()

			g := newTestGemini(t, server.URL, time.Second)
			res, err := g.Analyze(context.Background(), frame, "", "Berjalan")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.HasPrefix(res.Text, "Hebat!") {
				t.Errorf("unexpected text %q", res.Text)
			}
			if kp := res.Pose.Get(models.LeftKnee); kp.X != 0.4 || kp.Y != 0.7 {
				t.Errorf("unexpected left knee %+v", kp)
			}
			if res.Pose.Get(models.RightKnee).Detected() {
				t.Error("expected sentinel keypoint to be undetected")
			}
			if s, ok := res.Feedback.Status(models.LeftKnee); !ok || s != models.StatusIncorrect {
				t.Errorf("expected left knee incorrect, got %q %v", s, ok)
			}
		})

		t.Run("Joins Parts And Strips Fences", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write(candidateBody(t, "```json\n", samplePayload, "\n```"))
			}))
			defer server.Close()

			res, err := newTestGemini(t, server.URL, time.Second).Analyze(context.Background(), []byte{0xff}, "image/jpeg", "Berlari")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if res.Text == "" {
				t.Error("expected text to be decoded")
			}
		})

		t.Run("Errors", func(t *testing.T) {
			tests := []struct {
				name   string
				status int
				body   string
				want   error
			}{
				{"Non-2xx", http.StatusTooManyRequests, `{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`, shared.ErrAPIRequest},
				{"Malformed Envelope", http.StatusOK, `not json`, shared.ErrAPIRequest},
				{"No Candidates", http.StatusOK, `{"candidates":[]}`, shared.ErrInvalidResponse},
				{"Blocked Prompt", http.StatusOK, `{"promptFeedback":{"blockReason":"SAFETY"}}`, shared.ErrInvalidResponse},
				{"Candidate Not JSON", http.StatusOK, string(candidateBody(t, "Hebat!")), shared.ErrInvalidResponse},
				{"Empty Candidate", http.StatusOK, string(candidateBody(t, "  ")), shared.ErrInvalidResponse},
			}

			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
						w.WriteHeader(tt.status)
						w.Write([]byte(tt.body))
					}))
					defer server.Close()

					res, err := newTestGemini(t, server.URL, time.Second).Analyze(context.Background(), []byte{1}, "image/jpeg", "Melompat")
					if !errors.Is(err, tt.want) {
						t.Errorf("expected %v, got %v", tt.want, err)
					}
					if res != nil {
						t.Errorf("expected nil result, got %+v", res)
					}
				})
			}
		})

		t.Run("Timeout", func(t *testing.T) {
			release := make(chan struct{})
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-release:
				case <-r.Context().Done():
				}
			}))
			defer server.Close()
			defer close(release)

			_, err := newTestGemini(t, server.URL, 20*time.Millisecond).Analyze(context.Background(), []byte{1}, "image/jpeg", "Berjalan")
			if !errors.Is(err, shared.ErrAPIRequest) || !errors.Is(err, shared.ErrTimeout) {
				t.Errorf("expected timeout API error, got %v", err)
			}
		})

		t.Run("Transport Failure", func(t *testing.T) {
			g, _ := NewGeminiService(GeminiOpts{
				APIKey:     "k",
				BaseURL:    "http://example.com",
				HTTPClient: &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("dial failed"))},
				Logger:     shared.NewLogger(io.Discard),
			})
			if _, err := g.Analyze(context.Background(), []byte{1}, "image/jpeg", "Berjalan"); !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
		})

		t.Run("Empty Image", func(t *testing.T) {
			g := newTestGemini(t, "http://example.com", time.Second)
			if _, err := g.Analyze(context.Background(), nil, "image/jpeg", "Berjalan"); !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	})

	t.Run("Check", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet || r.URL.Path != "/v1beta/models/gemini-test" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			if r.Header.Get(apiKeyHeader) == "test-key" {
				w.Write([]byte(`{"name":"models/gemini-test"}`))
				return
			}
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		if err := newTestGemini(t, server.URL, time.Second).Check(context.Background()); err != nil {
			t.Errorf("expected no error, got %v", err)
		}

		t.Run("Rejected Key", func(t *testing.T) {
			g, _ := NewGeminiService(GeminiOpts{APIKey: "wrong", Model: "gemini-test", BaseURL: server.URL, Logger: shared.NewLogger(io.Discard)})
			if err := g.Check(context.Background()); !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
		})
	})
}

func TestErrorMessage(t *testing.T) {
	t.Run("API Error", func(t *testing.T) {
		got := errorMessage(genai.APIError{Code: 429, Message: "quota", Status: "RESOURCE_EXHAUSTED"})
		if got != "status 429: quota" {
			t.Errorf("unexpected message %q", got)
		}
	})

	t.Run("Truncates On Rune Boundary", func(t *testing.T) {
		long := strings.Repeat("a", maxErrorMessage-1) + "ééé"
		got := errorMessage(errors.New(long))
		if len(got) > maxErrorMessage || !utf8.ValidString(got) {
			t.Errorf("expected valid UTF-8 within %d bytes, got %d bytes valid=%v", maxErrorMessage, len(got), utf8.ValidString(got))
		}
		if got != strings.Repeat("a", maxErrorMessage-1) {
			t.Errorf("expected the partial rune to be dropped, got suffix %q", got[len(got)-3:])
		}
	})
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"abcdef", 3, "abc"},
		{"héllo", 2, "h"},
		{"日本語", 4, "日"},
		{"日本語", 6, "日本"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct{ in, want string }{
		{`{"a":1}`, `{"a":1}`},
		{"  {\"a\":1}\n", `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}```", `{"a":1}`},
		{"```json{\"a\":1}```", `{"a":1}`},
	}
	for _, tt := range tests {
		if got := stripFences(tt.in); got != tt.want {
			t.Errorf("stripFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResponseSchema(t *testing.T) {
	s := ResponseSchema()
	pose := s.Properties["pose"]
	if pose == nil || len(pose.Properties) != models.BodyPartCount {
		t.Fatalf("expected %d pose properties", models.BodyPartCount)
	}
	if pose.Properties["left_ankle"].Properties["x"].Type != genai.TypeNumber {
		t.Error("expected numeric coordinates")
	}
	if s.Properties["feedback"].Properties["nose"].Type != genai.TypeString {
		t.Error("expected string feedback")
	}
}
