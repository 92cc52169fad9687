package services

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"podcastSummarize/core"
)

// Acquisition is the result of fetching a remote media reference.
type Acquisition struct {
	AudioPath string
	Meta      core.SourceMeta
}

// Acquirer resolves a remote media reference to a local audio file plus
// descriptive metadata. The metadata feeds prompt context only.
type Acquirer interface {
	Acquire(ctx context.Context, ref string) (Acquisition, error)
}

// YtDlpAcquirer shells out to yt-dlp to download a remote reference and
// extract mono 16 kHz WAV audio suitable for transcription and feature
// extraction.
type YtDlpAcquirer struct {
	OutputDir string
}

func (a YtDlpAcquirer) Acquire(ctx context.Context, ref string) (Acquisition, error) {
	outDir := a.OutputDir
	if outDir == "" {
		outDir = os.TempDir()
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return Acquisition{}, fmt.Errorf("create download dir: %w", err)
	}

	// Title and channel first; cheap, and fails fast on a bad reference.
	probe := exec.CommandContext(ctx, "yt-dlp", "--no-warnings", "--print", "%(title)s\n%(channel)s", "--skip-download", ref)
	probeOut, err := probe.Output()
	if err != nil {
		return Acquisition{}, fmt.Errorf("yt-dlp probe: %w", err)
	}
	lines := strings.SplitN(strings.TrimSpace(string(probeOut)), "\n", 2)
	meta := core.SourceMeta{Title: strings.TrimSpace(lines[0])}
	if len(lines) > 1 {
		meta.Channel = strings.TrimSpace(lines[1])
	}

	template := filepath.Join(outDir, "%(id)s.%(ext)s")
	dl := exec.CommandContext(ctx, "yt-dlp",
		"--no-warnings",
		"-x", "--audio-format", "wav",
		"--postprocessor-args", "ffmpeg:-ac 1 -ar 16000",
		"-o", template,
		"--print", "after_move:filepath",
		ref,
	)
	out, err := dl.Output()
	if err != nil {
		return Acquisition{}, fmt.Errorf("yt-dlp download: %w", err)
	}
	audioPath := strings.TrimSpace(string(out))
	if audioPath == "" {
		return Acquisition{}, fmt.Errorf("yt-dlp reported no output file for %s", ref)
	}
	if _, err := os.Stat(audioPath); err != nil {
		return Acquisition{}, fmt.Errorf("downloaded file missing: %w", err)
	}
	return Acquisition{AudioPath: audioPath, Meta: meta}, nil
}

// MockAcquirer treats the reference as a local path and invents metadata
// from the file name. Used when no downloader is available.
type MockAcquirer struct{}

func (MockAcquirer) Acquire(_ context.Context, ref string) (Acquisition, error) {
	if _, err := os.Stat(ref); err != nil {
		return Acquisition{}, fmt.Errorf("mock acquirer needs a local file: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(ref), filepath.Ext(ref))
	return Acquisition{
		AudioPath: ref,
		Meta:      core.SourceMeta{Title: name, Channel: "local"},
	}, nil
}
