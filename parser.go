package fuzzsplit

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// CheckRequestFile makes sure a raw request file can be handed to ffuf -request.
// Only the request line is checked, the same way ffuf does: it needs a method, a target and a protocol.
// Headers and body are left to ffuf, so HTTP/2 exports from proxies are accepted.
func CheckRequestFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("reading request line: %w", err)
	}

	line = strings.TrimRight(line, "\r\n")
	if parts := strings.Split(line, " "); len(parts) < 3 {
		return fmt.Errorf("malformed request line %q", line)
	}

	return nil
}
