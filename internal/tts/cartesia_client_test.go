package tts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/voxloop/voxloop/internal/config"
)

func TestCartesiaClient_Synthesize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("Missing API key header")
		}

		var req CartesiaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if req.Text != "Hello there" {
			t.Errorf("Expected text 'Hello there', got %q", req.Text)
		}
		if req.OutputFormat != "pcm" {
			t.Errorf("Expected pcm output, got %q", req.OutputFormat)
		}
		if req.SampleRate != 24000 {
			t.Errorf("Expected sample rate 24000, got %d", req.SampleRate)
		}

		// Two 16-bit samples, little-endian: 256 and -1
		w.Write([]byte{0x00, 0x01, 0xFF, 0xFF})
	}))
	defer server.Close()

	client := NewCartesiaClient(&config.Config{
		CartesiaAPIKey:  "test-key",
		CartesiaVoiceID: "sonic-english",
		CartesiaModelID: "sonic",
		TTSSampleRate:   24000,
	})
	client.apiURL = server.URL

	clip, err := client.Synthesize(context.Background(), "Hello there")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if clip.SampleRate != 24000 {
		t.Errorf("Expected clip sample rate 24000, got %d", clip.SampleRate)
	}
	if len(clip.PCM) != 2 || clip.PCM[0] != 256 || clip.PCM[1] != -1 {
		t.Errorf("Unexpected decoded samples: %v", clip.PCM)
	}
}

func TestCartesiaClient_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewCartesiaClient(&config.Config{CartesiaAPIKey: "bad-key", TTSSampleRate: 24000})
	client.apiURL = server.URL

	if _, err := client.Synthesize(context.Background(), "Hello"); err == nil {
		t.Error("Expected error for unauthorized response")
	}
}

func TestCartesiaClient_EmptyAudio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 200 with no body
	}))
	defer server.Close()

	client := NewCartesiaClient(&config.Config{CartesiaAPIKey: "test-key", TTSSampleRate: 24000})
	client.apiURL = server.URL

	if _, err := client.Synthesize(context.Background(), "Hello"); err == nil {
		t.Error("Expected error for empty audio response")
	}
}

func TestAudioClip_Duration(t *testing.T) {
	clip := &AudioClip{PCM: make([]int16, 24000), SampleRate: 24000}
	if d := clip.Duration(); d != 1.0 {
		t.Errorf("Expected 1s duration, got %g", d)
	}

	empty := &AudioClip{SampleRate: 24000}
	if d := empty.Duration(); d != 0 {
		t.Errorf("Expected 0 duration for empty clip, got %g", d)
	}
}
