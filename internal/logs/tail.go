package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// TailOptions controls one Tail call. A negative Offset asks for the last
// Limit lines of the file; a non-negative Offset reads forward from that
// byte position. With Follow set, Tail polls until a line arrives or Wait
// elapses.
type TailOptions struct {
	Offset int64
	Limit  int
	Follow bool
	Wait   time.Duration
}

// TailResult carries the lines read and the offset to resume from.
type TailResult struct {
	Lines  []string
	Offset int64
}

const pollInterval = 250 * time.Millisecond

// Tail reads from the log file at path. A missing file is not an error; it
// yields an empty result at offset zero so a fresh daemon can be followed
// before it writes anything.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	var (
		result TailResult
		err    error
	)

	if opts.Offset < 0 {
		result.Lines, result.Offset, err = lastLines(path, opts.Limit)
	} else {
		result.Lines, result.Offset, err = linesFrom(path, opts.Offset)
	}
	if err != nil {
		return result, err
	}

	if !opts.Follow || opts.Wait <= 0 || len(result.Lines) > 0 {
		return result, nil
	}

	// Nothing new yet; poll until a line shows up or the wait expires.
	deadline := time.Now().Add(opts.Wait)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-ticker.C:
		}

		result.Lines, result.Offset, err = linesFrom(path, result.Offset)
		if err != nil {
			return result, err
		}
		if len(result.Lines) > 0 || time.Now().After(deadline) {
			return result, nil
		}
	}
}

// lastLines returns up to limit trailing lines and the end-of-file offset.
func lastLines(path string, limit int) ([]string, int64, error) {
	file, size, err := openLog(path)
	if file == nil || err != nil {
		return nil, 0, err
	}
	defer file.Close()

	if limit <= 0 {
		return nil, size, nil
	}

	ring := make([]string, limit)
	count, next := 0, 0
	scanner := newLineScanner(file)
	for scanner.Scan() {
		ring[next] = scanner.Text()
		next = (next + 1) % limit
		if count < limit {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}

	lines := make([]string, 0, count)
	if count == limit {
		for i := 0; i < limit; i++ {
			lines = append(lines, ring[(next+i)%limit])
		}
	} else {
		lines = append(lines, ring[:count]...)
	}
	return lines, size, nil
}

// linesFrom reads complete lines starting at the given byte offset and
// returns the offset after the last line consumed. An offset beyond the
// current size (truncated or rotated file) restarts from the end.
func linesFrom(path string, offset int64) ([]string, int64, error) {
	file, size, err := openLog(path)
	if file == nil || err != nil {
		return nil, 0, err
	}
	defer file.Close()

	if offset > size {
		return nil, size, nil
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}

	var lines []string
	scanner := newLineScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}

	end, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, 0, fmt.Errorf("determine log offset: %w", err)
	}
	return lines, end, nil
}

func openLog(path string) (*os.File, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, 0, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		_ = file.Close()
		return nil, 0, fmt.Errorf("log path %q is a directory", path)
	}
	return file, info.Size(), nil
}

func newLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return scanner
}
