package core

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/signalsfoundry/radioprop/itm"
	"github.com/signalsfoundry/radioprop/model"
)

// PropagationModel selects how path loss is computed.
type PropagationModel int

const (
	// PropagationNone skips path loss entirely.
	PropagationNone PropagationModel = iota
	// PropagationLineOfSight is free space inside the radio horizon.
	PropagationLineOfSight
	// PropagationITM samples terrain and runs the Irregular Terrain Model.
	PropagationITM
)

func (m PropagationModel) String() string {
	switch m {
	case PropagationNone:
		return "none"
	case PropagationLineOfSight:
		return "los"
	case PropagationITM:
		return "itm"
	default:
		return fmt.Sprintf("model(%d)", int(m))
	}
}

// ParsePropagationModel accepts the names produced by String.
func ParsePropagationModel(s string) (PropagationModel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "0":
		return PropagationNone, nil
	case "los", "line_of_sight", "1":
		return PropagationLineOfSight, nil
	case "itm", "", "2":
		return PropagationITM, nil
	default:
		return 0, fmt.Errorf("unknown propagation model %q", s)
	}
}

func (m PropagationModel) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *PropagationModel) UnmarshalText(b []byte) error {
	parsed, err := ParsePropagationModel(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Config is the static configuration of the own-ship radio and the
// defaults applied to transmitters that do not override them.
type Config struct {
	Model PropagationModel `json:"model"`

	ReceiverSensitivityDBm float64 `json:"receiver_sensitivity_dbm"`
	TransmitterPowerDBm    float64 `json:"transmitter_power_dbm"`
	TxAntennaHeightM       float64 `json:"tx_antenna_height_m"`
	RxAntennaHeightM       float64 `json:"rx_antenna_height_m"`
	TxAntennaGainDBi       float64 `json:"tx_antenna_gain_dbi"`
	RxAntennaGainDBi       float64 `json:"rx_antenna_gain_dbi"`
	TxLineLossDB           float64 `json:"tx_line_loss_db"`
	RxLineLossDB           float64 `json:"rx_line_loss_db"`

	Polarization model.Polarization `json:"polarization"`

	SamplingDistanceM  float64 `json:"sampling_distance_m"`
	MaxDistanceM       float64 `json:"max_distance_m"`
	FreeSpaceAltitudeM float64 `json:"free_space_altitude_m"`

	Permittivity        float64 `json:"permittivity"`
	Conductivity        float64 `json:"conductivity"`
	SurfaceRefractivity float64 `json:"surface_refractivity"`
	Climate             string  `json:"climate"`
	Confidence          float64 `json:"confidence"`
	Reliability         float64 `json:"reliability"`

	Clutter   bool                `json:"clutter"`
	Materials map[string]Material `json:"materials,omitempty"`

	GroundToAir GroundToAirBonus `json:"ground_to_air"`
}

// GroundToAirBonus is added to ground station transmissions, whose
// equipment outperforms airborne radios.
type GroundToAirBonus struct {
	PowerDB        float64 `json:"power_db"`
	AntennaGainDB  float64 `json:"antenna_gain_db"`
	AntennaHeightM float64 `json:"antenna_height_m"`
}

// DefaultSamplingDistanceM matches the spacing of SRTM elevation data.
const DefaultSamplingDistanceM = 90.0

// DefaultConfig returns an airband receiver with a 20 W transmitter.
func DefaultConfig() Config {
	return Config{
		Model:                  PropagationITM,
		ReceiverSensitivityDBm: -105,
		TransmitterPowerDBm:    43,
		TxAntennaHeightM:       2,
		RxAntennaHeightM:       2,
		TxAntennaGainDBi:       1,
		RxAntennaGainDBi:       1,
		TxLineLossDB:           2,
		RxLineLossDB:           2,
		Polarization:           model.PolarizationVertical,
		SamplingDistanceM:      DefaultSamplingDistanceM,
		MaxDistanceM:           300e3,
		FreeSpaceAltitudeM:     8000,
		Permittivity:           15,
		Conductivity:           0.005,
		SurfaceRefractivity:    301,
		Climate:                itm.ContinentalTemperate.String(),
		Confidence:             0.9,
		Reliability:            0.9,
		GroundToAir: GroundToAirBonus{
			PowerDB:        6,
			AntennaGainDB:  3,
			AntennaHeightM: 30,
		},
	}
}

// LoadConfig decodes a JSON config on top of DefaultConfig.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode radio config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfigFile reads a JSON config from path.
func LoadConfigFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open radio config %q: %w", path, err)
	}
	defer f.Close()
	return LoadConfig(f)
}

// ApplyEnv overrides fields from RADIO_* variables read through getenv.
// Unparseable values are reported, not ignored.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv("RADIO_MODEL"); v != "" {
		m, err := ParsePropagationModel(v)
		if err != nil {
			return fmt.Errorf("RADIO_MODEL: %w", err)
		}
		c.Model = m
	}
	if v := getenv("RADIO_CLUTTER"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("RADIO_CLUTTER: %w", err)
		}
		c.Clutter = b
	}
	if v := getenv("RADIO_CLIMATE"); v != "" {
		c.Climate = v
	}
	floats := []struct {
		env string
		dst *float64
	}{
		{"RADIO_SAMPLING_DISTANCE_M", &c.SamplingDistanceM},
		{"RADIO_RX_SENSITIVITY_DBM", &c.ReceiverSensitivityDBm},
		{"RADIO_TX_POWER_DBM", &c.TransmitterPowerDBm},
		{"RADIO_CONFIDENCE", &c.Confidence},
		{"RADIO_RELIABILITY", &c.Reliability},
	}
	for _, f := range floats {
		v := getenv(f.env)
		if v == "" {
			continue
		}
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", f.env, err)
		}
		*f.dst = parsed
	}
	return c.Validate()
}

// Validate rejects configurations the radio layer cannot run with.
func (c Config) Validate() error {
	if !(c.SamplingDistanceM > 0) {
		return fmt.Errorf("sampling distance %.1f m must be positive", c.SamplingDistanceM)
	}
	if !(c.MaxDistanceM > 0) {
		return fmt.Errorf("max distance %.1f m must be positive", c.MaxDistanceM)
	}
	for name, q := range map[string]float64{"confidence": c.Confidence, "reliability": c.Reliability} {
		if !(q > 0 && q < 1) {
			return fmt.Errorf("%s %.3f must lie in (0,1)", name, q)
		}
	}
	if _, err := itm.ParseClimate(c.Climate); err != nil {
		return err
	}
	switch c.Polarization {
	case model.PolarizationVertical, model.PolarizationHorizontal:
	default:
		return fmt.Errorf("unknown polarization %q", c.Polarization)
	}
	return nil
}

// itmParameters builds the model inputs for a path; heights are in
// profile order.
func (c Config) itmParameters(freqMHz, txHeightM, rxHeightM float64, pol model.Polarization) itm.Parameters {
	p := itm.DefaultParameters()
	p.TransmitterHeightM = txHeightM
	p.ReceiverHeightM = rxHeightM
	p.FrequencyMHz = freqMHz
	p.Permittivity = c.Permittivity
	p.Conductivity = c.Conductivity
	p.SurfaceRefractivity = c.SurfaceRefractivity
	if climate, err := itm.ParseClimate(c.Climate); err == nil {
		p.Climate = climate
	}
	p.Polarization = itm.Vertical
	if pol == model.PolarizationHorizontal {
		p.Polarization = itm.Horizontal
	}
	p.Confidence = c.Confidence
	p.Reliability = c.Reliability
	return p
}
