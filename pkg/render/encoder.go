package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/echiweshe/sceneforge/pkg/errors"
)

// DefaultCodec is the video codec used when the job does not name one.
const DefaultCodec = "libx264"

// frameSink receives raw RGBA frames and produces the encoded artifact.
// Close finishes the artifact; Abort discards the work in progress.
type frameSink interface {
	WriteFrame(pix []byte) error
	Close() error
	Abort()
}

// sinkFactory creates the sink for a job. Swapped in tests.
type sinkFactory func(ctx context.Context, path string, job Job) (frameSink, error)

// ffmpegSink pipes raw RGBA frames into an ffmpeg process over stdin.
type ffmpegSink struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer
}

func newFFmpegSink(ctx context.Context, path string, job Job) (frameSink, error) {
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", job.Width, job.Height),
		"-framerate", fmt.Sprintf("%d", job.FPS),
		"-i", "-",
		"-c:v", job.Codec,
		"-pix_fmt", "yuv420p",
		path,
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	s := &ffmpegSink{cmd: cmd}
	cmd.Stderr = &s.stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRender, err, "open encoder pipe")
	}
	s.stdin = stdin

	if err := cmd.Start(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeRender, err, "start ffmpeg")
	}
	return s, nil
}

func (s *ffmpegSink) WriteFrame(pix []byte) error {
	if _, err := s.stdin.Write(pix); err != nil {
		return errors.Wrap(errors.ErrCodeRender, err, "write frame to encoder: %s", s.stderrTail())
	}
	return nil
}

func (s *ffmpegSink) Close() error {
	if err := s.stdin.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeRender, err, "close encoder pipe")
	}
	if err := s.cmd.Wait(); err != nil {
		return errors.Wrap(errors.ErrCodeRender, err, "ffmpeg failed: %s", s.stderrTail())
	}
	return nil
}

func (s *ffmpegSink) Abort() {
	s.stdin.Close()
	if s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
	s.cmd.Wait()
}

// stderrTail returns the last ffmpeg diagnostics line, where ffmpeg puts
// its actual error.
func (s *ffmpegSink) stderrTail() string {
	lines := strings.Split(strings.TrimSpace(s.stderr.String()), "\n")
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1]
}
