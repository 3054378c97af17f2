// Command xq runs a single XQuery/XPath 3.1 query from the command line
// and prints its serialized result, for manual exploration against the
// engine package. The test harness itself talks to package engine
// directly (Engine.Eval / Engine.EvalOnSpec), never to this binary.
//
// Grounded on the teacher's own main.go, which builds one expression,
// runs it through the machine, and prints the result - this keeps that
// same flag-free, single-shot shape, adapted to read a query from argv
// or stdin instead of hard-coding an XPath string.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/oss-xquery/xq31/engine"
)

func main() {
	query, err := readQuery()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	e := engine.New(log.StandardLogger())
	result := e.Eval(nil, query)
	if result.Err != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", result.Err.Code, result.Err.Message)
		os.Exit(1)
	}

	out, serr := result.Serialize()
	if serr != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", serr.Code, serr.Message)
		os.Exit(1)
	}
	fmt.Println(out)
}

func readQuery() (string, error) {
	if len(os.Args) > 1 {
		return os.Args[1], nil
	}
	b, err := io.ReadAll(bufio.NewReader(os.Stdin))
	if err != nil {
		return "", fmt.Errorf("reading query from stdin: %w", err)
	}
	return string(b), nil
}
