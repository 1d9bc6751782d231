package core

import (
	"errors"

	"github.com/signalsfoundry/radioprop/itm"
)

var (
	// ErrOutOfRange is the explicit no-signal outcome: the transmitter is
	// beyond the distance or radio horizon the selected model covers.
	ErrOutOfRange = errors.New("transmitter out of range")
	// ErrFrequencyOutOfRange is returned for carriers outside the band the
	// propagation models are valid for.
	ErrFrequencyOutOfRange = errors.New("frequency out of range")
	// ErrNotTuned is returned when neither comm radio is tuned to the
	// transmission frequency.
	ErrNotTuned = errors.New("receiver not tuned to frequency")
	// ErrInvalidProfile is returned when no usable terrain profile can be
	// built between the two terminals.
	ErrInvalidProfile = itm.ErrInvalidProfile
)
