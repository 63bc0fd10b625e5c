package fuzzsplit

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// EngineArgs builds the ffuf command line for one partition.
// The Authorization header only comes first when a token was fetched; the wordlist is always read from stdin.
func EngineArgs(target Target, rate string, extra []string, token, outputFile string) []string {
	args := []string{}
	if token != "" {
		args = append(args, "-H", "Authorization: "+token)
	}

	flag, value := target.Flag()
	args = append(args, flag, value, "-rate", rate, "-of", "csv")
	args = append(args, extra...)
	args = append(args, "-w", "-")
	args = append(args, "-o", outputFile)
	return args
}

// OutputFile returns the ffuf output path for a partition started at now.
// The name embeds the time since the Unix epoch, e.g. _1697712345.5s_.txt, so repeated runs don't collide.
func OutputFile(dir string, now time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("_%s_.txt", epochStamp(now)))
}

func epochStamp(now time.Time) string {
	nanos := now.UnixNano()
	secs := nanos / int64(time.Second)
	frac := nanos % int64(time.Second)
	if frac == 0 {
		return strconv.FormatInt(secs, 10) + "s"
	}

	fraction := strings.TrimRight(fmt.Sprintf("%09d", frac), "0")
	return fmt.Sprintf("%d.%ss", secs, fraction)
}
