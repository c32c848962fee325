package edgetts_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"dubshorts/internal/logging"
	"dubshorts/internal/services"
	"dubshorts/internal/services/edgetts"
)

func TestSynthesizePassesTextThroughFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "voice.mp3")
	var gotText string
	var gotArgs []string
	client := edgetts.New("", "hi-IN-MadhurNeural", logging.NewNop(), edgetts.WithCommand(
		func(_ context.Context, binary string, args []string) ([]byte, error) {
			if binary != "edge-tts" {
				t.Fatalf("binary = %q", binary)
			}
			gotArgs = args
			data, err := os.ReadFile(args[3])
			if err != nil {
				t.Fatalf("read text file: %v", err)
			}
			gotText = string(data)
			return nil, os.WriteFile(args[5], []byte("mp3"), 0o644)
		}))

	if err := client.Synthesize(context.Background(), "  नमस्ते दुनिया  ", out); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if gotText != "नमस्ते दुनिया" {
		t.Fatalf("text = %q", gotText)
	}
	if gotArgs[0] != "--voice" || gotArgs[1] != "hi-IN-MadhurNeural" || gotArgs[5] != out {
		t.Fatalf("args = %v", gotArgs)
	}
	if _, err := os.Stat(gotArgs[3]); !os.IsNotExist(err) {
		t.Fatalf("temp text file not removed: %v", err)
	}
}

func TestSynthesizeFailures(t *testing.T) {
	dir := t.TempDir()
	ok := edgetts.WithCommand(func(context.Context, string, []string) ([]byte, error) { return nil, nil })

	if err := edgetts.New("", "v", logging.NewNop(), ok).Synthesize(context.Background(), " ", filepath.Join(dir, "a.mp3")); !errors.Is(err, services.ErrSynthesis) {
		t.Fatalf("empty text: expected ErrSynthesis, got %v", err)
	}
	if err := edgetts.New("", "", logging.NewNop(), ok).Synthesize(context.Background(), "x", filepath.Join(dir, "b.mp3")); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("no voice: expected ErrConfiguration, got %v", err)
	}
	// Command succeeds but writes nothing.
	if err := edgetts.New("", "v", logging.NewNop(), ok).Synthesize(context.Background(), "x", filepath.Join(dir, "c.mp3")); !errors.Is(err, services.ErrSynthesis) {
		t.Fatalf("missing output: expected ErrSynthesis, got %v", err)
	}
	failing := edgetts.WithCommand(func(context.Context, string, []string) ([]byte, error) {
		return []byte("network unreachable"), errors.New("exit status 1")
	})
	if err := edgetts.New("", "v", logging.NewNop(), failing).Synthesize(context.Background(), "x", filepath.Join(dir, "d.mp3")); !errors.Is(err, services.ErrSynthesis) {
		t.Fatalf("command failure: expected ErrSynthesis, got %v", err)
	}
}
