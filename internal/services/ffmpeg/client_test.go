package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dral/internal/services"
)

type captured struct {
	name     string
	args     []string
	listFile string
}

func stubCommand(t *testing.T, mode string) *captured {
	t.Helper()
	c := &captured{}
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		c.name = name
		c.args = append([]string(nil), args...)
		if i := findArg(args, "-f"); i >= 0 && i+1 < len(args) && args[i+1] == "concat" {
			if j := findArg(args, "-i"); j >= 0 {
				data, _ := os.ReadFile(args[j+1])
				c.listFile = string(data)
			}
		}
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "FFMPEG_HELPER_MODE="+mode)
		return cmd
	}
	t.Cleanup(func() {
		commandContext = original
	})
	return c
}

func TestTrimBuildsSeekAndRemixArgs(t *testing.T) {
	c := stubCommand(t, "success")
	cli := NewCLI(WithBinary("/opt/ffmpeg"))

	err := cli.Trim(context.Background(), TrimRequest{
		Input:   "/in/EN_001.wav",
		Output:  "/out/EN_001_1.wav",
		Start:   1500 * time.Millisecond,
		End:     4 * time.Second,
		Channel: 2,
	})
	if err != nil {
		t.Fatalf("Trim: %v", err)
	}
	if c.name != "/opt/ffmpeg" {
		t.Fatalf("expected binary override, got %q", c.name)
	}
	assertArgPair(t, c.args, "-i", "/in/EN_001.wav")
	assertArgPair(t, c.args, "-ss", "1.5")
	assertArgPair(t, c.args, "-t", "2.5")
	assertArgPair(t, c.args, "-af", "pan=mono|c0=c1")
	if c.args[len(c.args)-1] != "/out/EN_001_1.wav" {
		t.Fatalf("expected output last, got %v", c.args)
	}
	if findArg(c.args, "-ss") < findArg(c.args, "-i") {
		t.Fatalf("expected output seeking after -i, got %v", c.args)
	}
}

func TestTrimWithoutRemixKeepsChannels(t *testing.T) {
	c := stubCommand(t, "success")
	if err := NewCLI().Trim(context.Background(), TrimRequest{Input: "a.wav", Output: "b.wav", End: time.Second}); err != nil {
		t.Fatalf("Trim: %v", err)
	}
	if findArg(c.args, "-af") >= 0 {
		t.Fatalf("expected no remix filter, got %v", c.args)
	}
}

func TestTrimRejectsReversedSpan(t *testing.T) {
	err := NewCLI().Trim(context.Background(), TrimRequest{Input: "a", Output: "b", Start: time.Second})
	if err == nil {
		t.Fatal("expected error for end before start")
	}
}

func TestTrimFailureIsExternalToolError(t *testing.T) {
	stubCommand(t, "failure")
	err := NewCLI().Trim(context.Background(), TrimRequest{Input: "a.wav", Output: "b.wav", End: time.Second})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Invalid data found") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
}

func TestConcatWritesInputList(t *testing.T) {
	c := stubCommand(t, "success")
	dir := t.TempDir()
	inputs := []string{filepath.Join(dir, "EN_001_1.wav"), filepath.Join(dir, "it's.wav")}
	output := filepath.Join(dir, "EN_001l.wav")

	if err := NewCLI().Concat(context.Background(), inputs, output, 16000); err != nil {
		t.Fatalf("Concat: %v", err)
	}
	assertArgPair(t, c.args, "-ar", "16000")
	assertArgPair(t, c.args, "-safe", "0")
	want := fmt.Sprintf("file '%s'\nfile '%s'\n", inputs[0], filepath.Join(dir, `it'\''s.wav`))
	if c.listFile != want {
		t.Fatalf("unexpected concat list:\n%s\nwant:\n%s", c.listFile, want)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("expected list file removed, found %v", entries)
	}
}

func TestConcatRequiresInputs(t *testing.T) {
	if err := NewCLI().Concat(context.Background(), nil, "out.wav", 16000); err == nil {
		t.Fatal("expected error without inputs")
	}
}

func TestConvertSelectsFLACAndSampleFormat(t *testing.T) {
	c := stubCommand(t, "success")
	err := NewCLI().Convert(context.Background(), ConvertRequest{
		Input: "in.wav", Output: "out.flac", SampleRate: 16000, BitDepth: 16,
	})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	assertArgPair(t, c.args, "-ar", "16000")
	assertArgPair(t, c.args, "-sample_fmt", "s16")
	assertArgPair(t, c.args, "-c:a", "flac")
}

func TestConvertRejectsUnknownBitDepth(t *testing.T) {
	if err := NewCLI().Convert(context.Background(), ConvertRequest{Input: "a", Output: "b.flac", BitDepth: 12}); err == nil {
		t.Fatal("expected error for unsupported bit depth")
	}
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	switch os.Getenv("FFMPEG_HELPER_MODE") {
	case "failure":
		fmt.Fprintln(os.Stderr, "in.wav: Invalid data found when processing input")
		os.Exit(1)
	default:
		os.Exit(0)
	}
}

func assertArgPair(t *testing.T, args []string, flag, value string) {
	t.Helper()
	i := findArg(args, flag)
	if i < 0 || i+1 >= len(args) {
		t.Fatalf("expected %s in args %v", flag, args)
	}
	if args[i+1] != value {
		t.Fatalf("expected %s %q, got %q", flag, value, args[i+1])
	}
}

func findArg(args []string, target string) int {
	for i, arg := range args {
		if arg == target {
			return i
		}
	}
	return -1
}
