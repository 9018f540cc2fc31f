package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jrsteele09/go-classroom-client/tab"
	"github.com/pkg/errors"
)

// promptConfirmer asks on out and reads y/N from in. Anything but yes declines.
func promptConfirmer(in *bufio.Reader, out io.Writer) tab.Confirmer {
	return tab.ConfirmFunc(func(ctx context.Context, prompt string) (bool, error) {
		answer, err := ask(ctx, in, out, prompt+" [y/N] ")
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "y", "yes":
			return true, nil
		}
		return false, nil
	})
}

// ask prints prompt and returns the next trimmed line of input. A closed
// input counts as an empty answer.
func ask(ctx context.Context, in *bufio.Reader, out io.Writer, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprint(out, prompt)
	line, err := in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", errors.Wrap(err, "read answer")
	}
	return strings.TrimSpace(line), nil
}
