package main

import (
	"bytes"
	"flag"
	"strings"
	"testing"
)

func TestUsageNamesEngines(t *testing.T) {
	var buf bytes.Buffer
	flag.CommandLine.SetOutput(&buf)
	defer flag.CommandLine.SetOutput(nil)

	usage()
	out := buf.String()
	for _, want := range []string{"Database engines: sqlite.", "Access .mdb/.accdb", "--concat"} {
		if !strings.Contains(out, want) {
			t.Errorf("usage does not mention %q:\n%s", want, out)
		}
	}
}
