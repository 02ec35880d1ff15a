// Package services implements the Remote Analysis Client: one request/response exchange with
// a hosted multimodal model per analysis tick.
//
// # Analyzer Interface
//
// Capture and rendering code depend only on [Analyzer], so the vendor behind it can be swapped
// without touching the capture loop or the overlay.
//
// # Gemini Implementation
//
// [GeminiService] talks to the Gemini API through the google.golang.org/genai client. Each call
// sends a user turn with the instruction text (see prompt.go) and the frame as inline image
// bytes, and declares a [genai.Schema] response schema so the model answers with JSON only.
// The configured *http.Client and base URL are handed to the SDK, which keeps the client
// testable against an httptest server.
//
// A call is a single best-effort attempt: no retries, no backoff, no rate limiting. The
// capture loop's next tick is the retry.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrAPIRequest] : transport failure, timeout, non-2xx status or an undecodable envelope
//   - [shared.ErrInvalidResponse] : no candidate text, or the text is not the expected JSON
//
// Callers treat every error as "no result" and never inspect partial output.
package services
