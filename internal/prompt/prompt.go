package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// DefaultDelay is used when the delay answer is not a non-negative integer.
const DefaultDelay = 3 * time.Second

// ErrInputClosed is returned when the input ends before every question is answered.
var ErrInputClosed = errors.New("input closed before all answers were given")

// Answers holds the values collected from the operator.
type Answers struct {
	InputFile string
	Email     string
	Phone     string
	Message   string

	// Delay is nil until it is known.
	Delay *time.Duration
}

// Prompter reads answers from in and writes the questions to out.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// New creates a Prompter.
func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{
		in:  bufio.NewReader(in),
		out: out,
	}
}

// Collect asks for every value that is empty in defaults and returns the
// completed answers. Answers are whitespace-trimmed; nothing else is validated.
func (p *Prompter) Collect(defaults Answers) (Answers, error) {
	answers := defaults

	questions := []struct {
		label  string
		target *string
	}{
		{"Path to the file with website URLs", &answers.InputFile},
		{"Email address", &answers.Email},
		{"Phone number", &answers.Phone},
		{"Message", &answers.Message},
	}

	for _, q := range questions {
		if *q.target != "" {
			continue
		}
		text, err := p.ask(q.label)
		if err != nil {
			return answers, err
		}
		*q.target = text
	}

	if answers.Delay == nil {
		text, err := p.ask(fmt.Sprintf("Delay between sites in seconds (default %d)", int(DefaultDelay.Seconds())))
		if err != nil {
			return answers, err
		}
		delay := ParseDelay(text)
		answers.Delay = &delay
	}

	return answers, nil
}

// ask prints label and reads one line. A final line without a newline counts
// as an answer.
func (p *Prompter) ask(label string) (string, error) {
	if _, err := fmt.Fprintf(p.out, "%s: ", label); err != nil {
		return "", fmt.Errorf("write prompt: %w", err)
	}

	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("%w: %s", ErrInputClosed, strings.ToLower(label))
		}
		return "", fmt.Errorf("read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// ParseDelay converts an answer to a delay. Text that is not a non-negative
// integer number of seconds yields DefaultDelay.
func ParseDelay(text string) time.Duration {
	seconds, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || seconds < 0 {
		return DefaultDelay
	}
	return time.Duration(seconds) * time.Second
}
