package notifier

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Synthesizer renders text as MP3 audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Player plays an audio file and returns once playback ends.
type Player interface {
	Play(ctx context.Context, path string) error
}

// HTTPSynthesizer fetches speech from a translate_tts compatible endpoint.
type HTTPSynthesizer struct {
	endpoint string
	language string
	client   *http.Client
}

func NewHTTPSynthesizer(endpoint, language string, timeout time.Duration) *HTTPSynthesizer {
	return &HTTPSynthesizer{
		endpoint: endpoint,
		language: language,
		client:   &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("q", text)
	q.Set("tl", s.language)
	q.Set("client", "tw-ob")
	q.Set("total", "1")
	q.Set("idx", "0")
	q.Set("textlen", strconv.Itoa(len(text)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create tts request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read tts response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tts endpoint returned %d", resp.StatusCode)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("tts endpoint returned no audio")
	}
	return audio, nil
}

// ExecPlayer plays files with an external command such as mpg123.
type ExecPlayer struct {
	Command string
	Args    []string
}

func (p ExecPlayer) Play(ctx context.Context, path string) error {
	args := append(append([]string{}, p.Args...), path)
	cmd := exec.CommandContext(ctx, p.Command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", p.Command, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return nil
}

// Speaker synthesises a sentence into a temp file, plays it and removes it.
type Speaker struct {
	synth   Synthesizer
	player  Player
	tempDir string
}

func NewSpeaker(synth Synthesizer, player Player, tempDir string) *Speaker {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Speaker{synth: synth, player: player, tempDir: tempDir}
}

// Speak blocks until playback ends. The temp file never outlives the call.
func (s *Speaker) Speak(ctx context.Context, text string) error {
	audio, err := s.synth.Synthesize(ctx, text)
	if err != nil {
		return err
	}

	path := filepath.Join(s.tempDir, uuid.New().String()+".mp3")
	defer os.Remove(path)

	if err := os.WriteFile(path, audio, 0o600); err != nil {
		return fmt.Errorf("write audio: %w", err)
	}
	return s.player.Play(ctx, path)
}
