package fuzzsplit

import (
	"bufio"
	"bytes"
	"io"
	"os"
)

// Wordlist is the newline separated file being partitioned.
type Wordlist struct {
	File *os.File
}

// OpenWordlist opens the wordlist at path for counting.
func OpenWordlist(path string) (*Wordlist, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Wordlist{File: file}, nil
}

// Count returns the number of lines in a wordlist.
// A final line without a trailing newline still counts. The file is rewound afterwards.
func (w *Wordlist) Count() (int, error) {
	var count int
	const lineBreak = '\n'

	buf := make([]byte, bufio.MaxScanTokenSize)
	var last byte
	var seen bool

	for {
		bufferSize, err := w.File.Read(buf)
		if err != nil && err != io.EOF {
			return 0, err
		}

		if bufferSize > 0 {
			count += bytes.Count(buf[:bufferSize], []byte{lineBreak})
			last = buf[bufferSize-1]
			seen = true
		}

		if err == io.EOF {
			break
		}
	}

	// Unterminated final line
	if seen && last != lineBreak {
		count++
	}

	// Move back to the head of the file
	_, err := w.File.Seek(0, io.SeekStart)
	if err != nil {
		return count, err
	}

	return count, nil
}

// Close closes the underlying file.
func (w *Wordlist) Close() error {
	return w.File.Close()
}
