// normalize reads raw feed messages (one JSON envelope per line) and prints the record the
// bridge would store for each. Useful for checking vendor payloads offline.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/moveo-mobility/aws-websocket-bridge/internal/telematics/normalize"
)

func main() {
	tenant := flag.StringP("tenant", "t", "default", "Tenant id stamped on records")
	session := flag.StringP("session", "s", "", "Session id stamped on records")
	pretty := flag.BoolP("pretty", "p", false, "Indent output")
	flag.Parse()

	in := io.Reader(os.Stdin)
	if flag.NArg() > 0 {
		f, err := os.Open(flag.Arg(0))
		if err != nil {
			fmt.Fprintln(os.Stderr, "normalize:", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}
	if n, err := run(in, os.Stdout, *tenant, *session, *pretty); err != nil {
		fmt.Fprintln(os.Stderr, "normalize:", err)
		os.Exit(1)
	} else if n > 0 {
		fmt.Fprintf(os.Stderr, "normalize: %d line(s) rejected\n", n)
		os.Exit(2)
	}
}

// run normalizes each non-blank line of in to out and returns how many lines failed to decode.
func run(in io.Reader, out io.Writer, tenant, session string, pretty bool) (int, error) {
	enc := json.NewEncoder(out)
	if pretty {
		enc.SetIndent("", "  ")
	}
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	rejected, line := 0, 0
	for sc.Scan() {
		line++
		data := sc.Bytes()
		if len(data) == 0 {
			continue
		}
		env, err := normalize.Decode(data, time.Now())
		if err != nil {
			fmt.Fprintf(os.Stderr, "line %d: %v\n", line, err)
			rejected++
			continue
		}
		if err := enc.Encode(env.Record(tenant, session)); err != nil {
			return rejected, err
		}
	}
	return rejected, sc.Err()
}
