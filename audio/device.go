package audio

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Device is an input-capable capture device.
type Device struct {
	Index      int
	Name       string
	Channels   int
	SampleRate float64
	Default    bool
}

// SelectDevice resolves spec against devices. An empty spec picks the
// default device, a number picks by index, anything else matches the
// name case-insensitively (exact match first, then substring).
func SelectDevice(devices []Device, spec string) (Device, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		for _, d := range devices {
			if d.Default {
				return d, nil
			}
		}
		return Device{}, errors.Wrap(ErrDeviceNotFound, "no default input device")
	}

	if idx, err := strconv.Atoi(spec); err == nil {
		for _, d := range devices {
			if d.Index == idx {
				return d, nil
			}
		}
		return Device{}, errors.Wrapf(ErrDeviceNotFound, "index %d", idx)
	}

	lower := strings.ToLower(spec)
	for _, d := range devices {
		if strings.ToLower(d.Name) == lower {
			return d, nil
		}
	}
	for _, d := range devices {
		if strings.Contains(strings.ToLower(d.Name), lower) {
			return d, nil
		}
	}
	return Device{}, errors.Wrapf(ErrDeviceNotFound, "name %q", spec)
}
