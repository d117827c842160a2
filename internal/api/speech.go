// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"sort"
	"strings"
)

// Audio upload defaults.
const (
	DefaultAudioFilename    = "recording.webm"
	DefaultAudioContentType = "audio/webm;codecs=opus"

	// NoSpeechDetected is the transcription the backend returns for silence.
	NoSpeechDetected = "No speech detected"
)

type transcriptionResponse struct {
	Transcription string `json:"transcription"`
}

// Transcribe uploads an audio clip as multipart field "file" and returns the
// transcription. Empty and "No speech detected" results are returned as-is;
// callers decide how to treat them.
func (c *Client) Transcribe(ctx context.Context, audio []byte, filename, contentType string) (string, error) {
	if filename == "" {
		filename = DefaultAudioFilename
	}
	if contentType == "" {
		contentType = DefaultAudioContentType
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", fmt.Errorf("failed to create form part: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("failed to write audio: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to close form: %w", err)
	}

	r := request{
		method:      http.MethodPost,
		base:        c.baseURL,
		path:        "/api/speech/record/",
		body:        &buf,
		contentType: mw.FormDataContentType(),
		accept:      "application/json",
	}
	var resp transcriptionResponse
	if err := c.doJSON(ctx, r, &resp); err != nil {
		return "", err
	}
	return resp.Transcription, nil
}

// IsNoSpeech reports whether a transcription carries no usable text.
func IsNoSpeech(text string) bool {
	text = strings.TrimSpace(text)
	return text == "" || strings.EqualFold(text, NoSpeechDetected)
}

// =============================================================================
// TEXT TO SPEECH
// =============================================================================

type ttsRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// TextToSpeech returns MP3 audio for text in the given language code.
func (c *Client) TextToSpeech(ctx context.Context, text, language string) ([]byte, error) {
	if language == "" {
		language = "en"
	}
	r, err := jsonRequest(http.MethodPost, c.baseURL, "/tts/text-to-speech/", ttsRequest{Text: text, Language: language})
	if err != nil {
		return nil, err
	}
	r.accept = "audio/mpeg"
	body, _, err := c.do(ctx, r)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// Language is a supported TTS language.
type Language struct {
	Code string
	Name string
}

type languagesResponse struct {
	SupportedLanguages []string          `json:"supported_languages"`
	LanguageNames      map[string]string `json:"language_names"`
}

// SupportedLanguages lists TTS languages sorted by code.
func (c *Client) SupportedLanguages(ctx context.Context) ([]Language, error) {
	r, err := jsonRequest(http.MethodGet, c.baseURL, "/tts/supported-languages/", nil)
	if err != nil {
		return nil, err
	}
	var resp languagesResponse
	if err := c.doJSON(ctx, r, &resp); err != nil {
		return nil, err
	}
	codes := append([]string(nil), resp.SupportedLanguages...)
	sort.Strings(codes)
	out := make([]Language, 0, len(codes))
	for _, code := range codes {
		name := resp.LanguageNames[code]
		if name == "" {
			name = code
		}
		out = append(out, Language{Code: code, Name: name})
	}
	return out, nil
}
