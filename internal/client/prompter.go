package client

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
)

var (
	// ErrInputClosed means the terminal input reached end of file.
	ErrInputClosed = errors.New("input closed")
	// ErrNotANumber means the next input token was not a decimal integer.
	ErrNotANumber = errors.New("not a number")
)

// Prompter reads whitespace-separated integers typed by the user.
type Prompter struct {
	sc *bufio.Scanner
}

// NewPrompter reads tokens from in.
func NewPrompter(in io.Reader) *Prompter {
	sc := bufio.NewScanner(in)
	sc.Split(bufio.ScanWords)
	return &Prompter{sc: sc}
}

// ReadInt consumes the next token. A token that is not an integer is
// consumed and reported as ErrNotANumber.
func (p *Prompter) ReadInt() (int64, error) {
	if !p.sc.Scan() {
		if err := p.sc.Err(); err != nil {
			return 0, fmt.Errorf("read input: %w", err)
		}
		return 0, ErrInputClosed
	}
	v, err := strconv.ParseInt(p.sc.Text(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNotANumber, p.sc.Text())
	}
	return v, nil
}

// Choose calls show and reads integers until one falls within [lo, hi].
// show may be nil.
func (p *Prompter) Choose(lo, hi int64, show func()) (int64, error) {
	for {
		if show != nil {
			show()
		}
		v, err := p.ReadInt()
		if errors.Is(err, ErrNotANumber) {
			continue
		}
		if err != nil {
			return 0, err
		}
		if v >= lo && v <= hi {
			return v, nil
		}
	}
}
