package lines

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// chipDriver requests output lines from a GPIO character device.
type chipDriver struct {
	chip     string
	consumer string
}

// NewChipDriver returns a Driver backed by /dev/<chip>.
func NewChipDriver(chip, consumer string) Driver {
	return &chipDriver{chip: chip, consumer: consumer}
}

func (d *chipDriver) Request(offset int) (Line, error) {
	line, err := gpiocdev.RequestLine(
		d.chip,
		offset,
		gpiocdev.AsOutput(0),
		gpiocdev.WithConsumer(d.consumer),
	)
	if err != nil {
		return nil, fmt.Errorf("request %s line %d: %w", d.chip, offset, err)
	}
	return &chipLine{line: line}, nil
}

type chipLine struct {
	line *gpiocdev.Line
}

func (l *chipLine) On() error { return l.line.SetValue(1) }

func (l *chipLine) Off() error { return l.line.SetValue(0) }

func (l *chipLine) Close() error { return l.line.Close() }
