package runtime

import (
	"bufio"
	"io"
	"sync"
	"time"
)

const (
	defaultLogBatchSize     = 64
	defaultLogFlushInterval = time.Second
	maxLogLineSize          = 1024 * 1024
)

// pumpLogs reads lines from all readers and hands them to handler in
// batches of at most batchSize lines, or whatever arrived within interval.
// It returns once every reader reached EOF and the last batch was handled.
func pumpLogs(readers []io.Reader, batchSize int, interval time.Duration, handler func([]string)) {
	if batchSize <= 0 {
		batchSize = defaultLogBatchSize
	}
	if interval <= 0 {
		interval = defaultLogFlushInterval
	}

	lineCh := make(chan string, batchSize)
	wg := sync.WaitGroup{}
	for _, r := range readers {
		wg.Add(1)
		go func(r io.Reader) {
			defer wg.Done()
			scanner := bufio.NewScanner(r)
			scanner.Buffer(make([]byte, 0, 64*1024), maxLogLineSize)
			for scanner.Scan() {
				lineCh <- scanner.Text()
			}
			// drain so the writer never blocks on a full pipe
			io.Copy(io.Discard, r)
		}(r)
	}
	go func() {
		wg.Wait()
		close(lineCh)
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	batch := make([]string, 0, batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		handler(batch)
		batch = make([]string, 0, batchSize)
	}

	for {
		select {
		case line, ok := <-lineCh:
			if !ok {
				flush()
				return
			}
			if batch = append(batch, line); len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
