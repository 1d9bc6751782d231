package core

import (
	"fmt"
	"math"

	"github.com/signalsfoundry/radioprop/model"
)

// LinkBudget is the loss a link can absorb before the signal drops below
// the receiver sensitivity. AntennaGainDB and LineLossDB are the sums over
// both ends of the link.
type LinkBudget struct {
	TxPowerDBm       float64
	RxSensitivityDBm float64
	AntennaGainDB    float64
	LineLossDB       float64
}

// Budget returns the tolerable path loss in dB.
func (b LinkBudget) Budget() float64 {
	return b.TxPowerDBm - b.RxSensitivityDBm + b.AntennaGainDB - b.LineLossDB
}

// ReceivedDBm is the power at the receiver input after lossDB of path
// loss.
func (b LinkBudget) ReceivedDBm(lossDB float64) float64 {
	return b.TxPowerDBm + b.AntennaGainDB - b.LineLossDB - lossDB
}

// FreeSpaceLossDB is the free-space path loss for a distance in metres and
// a frequency in MHz.
func FreeSpaceLossDB(distanceM, freqMHz float64) float64 {
	return 20*math.Log10(distanceM) + 20*math.Log10(freqMHz) - 27.55
}

// RadioHorizonM is the radio horizon of an antenna heightM above the
// surface under a 4/3 effective earth radius.
func RadioHorizonM(heightM float64) float64 {
	return 4.12 * math.Sqrt(max(heightM, 0)) * 1000
}

// LineOfSightLoss is the free-space loss between two antennas, or
// ErrOutOfRange when the path is longer than the sum of their radio
// horizons.
func LineOfSightLoss(distanceM, freqMHz, txHeightM, rxHeightM float64) (float64, error) {
	horizon := RadioHorizonM(txHeightM) + RadioHorizonM(rxHeightM)
	if distanceM > horizon {
		return 0, fmt.Errorf("%w: %.1f km beyond the %.1f km radio horizon",
			ErrOutOfRange, distanceM/1000, horizon/1000)
	}
	return FreeSpaceLossDB(distanceM, freqMHz), nil
}

// maxTiltDeg keeps the mismatch angle away from the 90° pole.
const maxTiltDeg = 85.0

// PolarizationLossDB is the (non-positive) gain from the mismatch between
// a ground station antenna and the own-ship antenna tilted by roll and
// pitch.
func PolarizationLossDB(att model.Attitude, pol model.Polarization) float64 {
	roll := min(math.Abs(att.RollDeg), maxTiltDeg)
	pitch := min(math.Abs(att.PitchDeg), maxTiltDeg)

	tr := math.Tan(roll * math.Pi / 180)
	tp := math.Tan(pitch * math.Pi / 180)
	theta := math.Atan(math.Sqrt(tr*tr+tp*tp)) * 180 / math.Pi
	if pol == model.PolarizationHorizontal {
		theta = 90 - theta
	}
	theta = min(theta, maxTiltDeg)

	c := math.Cos(theta * math.Pi / 180)
	return 10 * math.Log10(c*c)
}

// WattToDBm converts a power in watts to dBm.
func WattToDBm(w float64) float64 { return 10 * math.Log10(1000*w) }

// DBmToWatt converts dBm to watts.
func DBmToWatt(dbm float64) float64 { return math.Pow(10, (dbm-30)/10) }

// DBmToMicrovolt is the RMS voltage across a 50 Ω receiver input.
func DBmToMicrovolt(dbm float64) float64 { return math.Sqrt(DBmToWatt(dbm)*50) * 1e6 }

// Readability is how a consumer should render a transmission.
type Readability int

const (
	Inaudible Readability = iota
	Marginal
	Readable
)

// ReadableMarginDB is the margin above which a transmission is clear.
const ReadableMarginDB = 12.0

// ClassifyMargin maps a signal margin onto a readability bucket.
func ClassifyMargin(marginDB float64) Readability {
	switch {
	case marginDB <= 0:
		return Inaudible
	case marginDB < ReadableMarginDB:
		return Marginal
	default:
		return Readable
	}
}

func (r Readability) String() string {
	switch r {
	case Inaudible:
		return "inaudible"
	case Marginal:
		return "marginal"
	case Readable:
		return "readable"
	default:
		return fmt.Sprintf("readability(%d)", int(r))
	}
}

// Clarity scales a marginal signal to [0,1] for audio mixing: 0 at the
// noise floor, 1 from ReadableMarginDB upwards.
func Clarity(marginDB float64) float64 {
	return min(max(marginDB/ReadableMarginDB, 0), 1)
}
