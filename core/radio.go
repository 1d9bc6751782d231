package core

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/brunoga/deep"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/signalsfoundry/radioprop/internal/logging"
	"github.com/signalsfoundry/radioprop/itm"
	"github.com/signalsfoundry/radioprop/model"
	"github.com/signalsfoundry/radioprop/scenery"
)

const tracerName = "github.com/signalsfoundry/radioprop/core"

// Frequencies outside this band are not modelled.
const (
	MinFrequencyMHz = 40.0
	MaxFrequencyMHz = 20000.0
)

// TuningToleranceMHz is how close a station must be to a selected
// frequency to be heard.
const TuningToleranceMHz = 0.0001

// minPathM keeps co-located terminals out of the logarithms.
const minPathM = 1.0

// maxReceiveParallelism bounds ReceiveAll.
const maxReceiveParallelism = 8

// Query asks what the own-ship receiver at Receiver, flying with
// Attitude, hears of Station.
type Query struct {
	Station  model.Station
	Receiver model.Position
	Attitude model.Attitude
}

// Reception is the outcome of one receive query.
type Reception struct {
	StationID string
	// RequestID is the request or batch the reception was computed for,
	// empty when the context carried none.
	RequestID    string
	FrequencyMHz float64
	Kind         model.TransmissionKind
	Model        PropagationModel
	DistanceM    float64
	// FreeSpace is set when the high-altitude fast path skipped terrain
	// sampling.
	FreeSpace bool

	TransmitterHeightM float64
	ReceiverHeightM    float64

	LinkBudgetDB float64
	// ReferenceAttenuationDB is the median terrain attenuation. On the
	// free-space paths it is the free-space loss itself.
	ReferenceAttenuationDB float64
	// AttenuationDB is the path loss subtracted from the link budget.
	AttenuationDB      float64
	ClutterLossDB      float64
	PolarizationLossDB float64

	SignalMarginDB         float64
	SignalDBm              float64
	FieldStrengthMicrovolt float64
	TxERPWatts             float64

	Mode            itm.Mode
	PropagationCode int
	Severity        itm.Severity
	Readability     Readability

	// Profile is the elevation profile handed to the propagation model,
	// empty when no terrain was sampled.
	Profile itm.Profile
}

// Clarity is the audio clarity for the reception in [0,1].
func (r *Reception) Clarity() float64 { return Clarity(r.SignalMarginDB) }

// MetricsRecorder receives per-reception measurements.
type MetricsRecorder interface {
	ObserveReception(r *Reception, elapsed time.Duration)
	ObserveRejection(reason string)
}

// RadioServiceOption customises RadioService construction.
type RadioServiceOption func(*RadioService)

// WithLogger attaches a structured logger.
func WithLogger(l logging.Logger) RadioServiceOption {
	return func(s *RadioService) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetricsRecorder attaches an optional recorder for reception metrics.
func WithMetricsRecorder(m MetricsRecorder) RadioServiceOption {
	return func(s *RadioService) {
		s.metrics = m
	}
}

// WithMaterials replaces the clutter material table.
func WithMaterials(t MaterialTable) RadioServiceOption {
	return func(s *RadioService) {
		s.materials = t
	}
}

// RadioService computes what the own-ship radio receives from ground and
// airborne transmitters. It holds no per-query state; concurrent queries
// are safe.
type RadioService struct {
	cfg       Config
	sampler   *Sampler
	materials MaterialTable
	log       logging.Logger
	metrics   MetricsRecorder
	tracer    trace.Tracer

	mu  sync.RWMutex
	com [2]float64
}

// NewRadioService builds a service over the given scenery.
func NewRadioService(cfg Config, provider scenery.Provider, opts ...RadioServiceOption) (*RadioService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &RadioService{
		cfg: cfg,
		sampler: &Sampler{
			Scenery:      provider,
			SpacingM:     cfg.SamplingDistanceM,
			MaxDistanceM: cfg.MaxDistanceM,
		},
		materials: DefaultMaterials().With(cfg.Materials),
		log:       logging.Noop(),
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Config returns a copy of the service configuration.
func (s *RadioService) Config() Config { return deep.MustCopy(s.cfg) }

// Tune selects the two comm frequencies. Zero leaves a radio off.
func (s *RadioService) Tune(com1, com2 float64) {
	s.mu.Lock()
	s.com = [2]float64{com1, com2}
	s.mu.Unlock()
}

// Tuned reports whether either comm radio is on freqMHz.
func (s *RadioService) Tuned(freqMHz float64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.com {
		if f > 0 && math.Abs(freqMHz-f) <= TuningToleranceMHz {
			return true
		}
	}
	return false
}

// ReceiveATC evaluates a voice transmission. The station must be on one
// of the tuned comm frequencies.
func (s *RadioService) ReceiveATC(ctx context.Context, st model.Station, rx model.Position, att model.Attitude) (*Reception, error) {
	if !s.Tuned(st.FrequencyMHz) {
		s.reject("not_tuned")
		return nil, fmt.Errorf("%w: %s on %.3f MHz", ErrNotTuned, st.ID, st.FrequencyMHz)
	}
	return s.Receive(ctx, Query{Station: st, Receiver: rx, Attitude: att})
}

// ReceiveNav evaluates a navaid signal. Nav receivers are tuned
// separately, so no comm tuning check applies.
func (s *RadioService) ReceiveNav(ctx context.Context, st model.Station, rx model.Position) (*Reception, error) {
	st.Kind = model.Navigation
	return s.Receive(ctx, Query{Station: st, Receiver: rx})
}

// ReceiveBeacon evaluates a beacon on a comm frequency, such as a ham
// band beacon. Station power and antenna figures replace the configured
// defaults where set.
func (s *RadioService) ReceiveBeacon(ctx context.Context, st model.Station, rx model.Position, att model.Attitude) (*Reception, error) {
	if !s.Tuned(st.FrequencyMHz) {
		s.reject("not_tuned")
		return nil, fmt.Errorf("%w: beacon %s on %.3f MHz", ErrNotTuned, st.ID, st.FrequencyMHz)
	}
	st.Kind = model.Beacon
	return s.Receive(ctx, Query{Station: st, Receiver: rx, Attitude: att})
}

// Result pairs a station with its reception or the reason there is none.
type Result struct {
	StationID string
	Reception *Reception
	Err       error
}

// ReceiveAll evaluates one query per station concurrently. A station that
// cannot be heard yields a Result carrying its error; only context
// cancellation aborts the batch. Every reception of the batch shares the
// context's request ID, one being assigned when absent.
func (s *RadioService) ReceiveAll(ctx context.Context, stations []model.Station, rx model.Position, att model.Attitude) ([]Result, error) {
	ctx, batchID := logging.EnsureRequestID(ctx)
	if logging.LoggerFromContext(ctx) == nil {
		ctx = logging.ContextWithLogger(ctx, s.log.With(logging.String("request_id", batchID)))
	}

	results := make([]Result, len(stations))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxReceiveParallelism)
	for i, st := range stations {
		g.Go(func() error {
			r, err := s.Receive(gctx, Query{Station: st, Receiver: rx, Attitude: att})
			if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
				return err
			}
			results[i] = Result{StationID: st.ID, Reception: r, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// link is the per-query view of the configuration after station
// overrides and the ground station bonus.
type link struct {
	cfg           Config
	budget        LinkBudget
	txGainDBi     float64
	txLineLossDB  float64
	polarization  model.Polarization
	receiverFirst bool
}

func (s *RadioService) linkFor(st model.Station) link {
	cfg := deep.MustCopy(s.cfg)
	if st.TxPowerDBm != 0 {
		cfg.TransmitterPowerDBm = st.TxPowerDBm
	}
	if st.AntennaHeightM != 0 {
		cfg.TxAntennaHeightM = st.AntennaHeightM
	}
	if st.AntennaGainDBi != 0 {
		cfg.TxAntennaGainDBi = st.AntennaGainDBi
	}
	if st.LineLossDB != 0 {
		cfg.TxLineLossDB = st.LineLossDB
	}
	if st.Polarization != "" {
		cfg.Polarization = st.Polarization
	}
	if st.Kind == model.GroundToAir {
		cfg.TransmitterPowerDBm += cfg.GroundToAir.PowerDB
		cfg.TxAntennaGainDBi += cfg.GroundToAir.AntennaGainDB
		cfg.TxAntennaHeightM += cfg.GroundToAir.AntennaHeightM
	}

	b := LinkBudget{
		TxPowerDBm:       cfg.TransmitterPowerDBm,
		RxSensitivityDBm: cfg.ReceiverSensitivityDBm,
		AntennaGainDB:    cfg.TxAntennaGainDBi + cfg.RxAntennaGainDBi,
		LineLossDB:       cfg.TxLineLossDB + cfg.RxLineLossDB,
	}
	return link{
		cfg:           cfg,
		budget:        b,
		txGainDBi:     cfg.TxAntennaGainDBi,
		txLineLossDB:  cfg.TxLineLossDB,
		polarization:  cfg.Polarization,
		receiverFirst: st.Kind.ReceiverFirst(),
	}
}

// Receive evaluates a single query, logging through the context logger
// when one is attached. Stations beyond the maximum range
// return ErrOutOfRange and frequencies outside the modelled band return
// ErrFrequencyOutOfRange; every other path yields a Reception, degraded
// model inputs being reported through its Severity.
func (s *RadioService) Receive(ctx context.Context, q Query) (*Reception, error) {
	requestID := logging.RequestIDFromContext(ctx)
	ctx, span := s.tracer.Start(ctx, "radio.Receive", trace.WithAttributes(
		attribute.String("station_id", q.Station.ID),
		attribute.Float64("frequency_mhz", q.Station.FrequencyMHz),
		attribute.String("kind", q.Station.Kind.String()),
		attribute.String("request_id", requestID),
	))
	defer span.End()
	start := time.Now()

	r, err := s.receive(ctx, q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	r.RequestID = requestID

	span.SetAttributes(
		attribute.String("mode", r.Mode.String()),
		attribute.Float64("signal_margin_db", r.SignalMarginDB),
		attribute.Int("samples", len(r.Profile.Elevations)),
	)
	elapsed := time.Since(start)
	if s.metrics != nil {
		s.metrics.ObserveReception(r, elapsed)
	}

	fields := []logging.Field{
		logging.String("station_id", r.StationID),
		logging.Float("distance_km", r.DistanceM/1000),
		logging.String("mode", r.Mode.String()),
		logging.Float("attenuation_db", r.AttenuationDB),
		logging.Float("signal_margin_db", r.SignalMarginDB),
		logging.String("severity", r.Severity.String()),
	}
	log := s.log
	if l := logging.LoggerFromContext(ctx); l != nil {
		log = l
	}
	if r.Severity >= itm.SeverityOutOfRange {
		log.Warn(ctx, "propagation inputs out of range", fields...)
	} else {
		log.Debug(ctx, "reception computed", fields...)
	}
	return r, nil
}

func (s *RadioService) receive(ctx context.Context, q Query) (*Reception, error) {
	st := q.Station
	f := st.FrequencyMHz
	if f < MinFrequencyMHz || f > MaxFrequencyMHz {
		s.reject("frequency")
		return nil, fmt.Errorf("%w: %.3f MHz", ErrFrequencyOutOfRange, f)
	}

	l := s.linkFor(st)
	d := q.Receiver.DistanceM(st.Position)
	if d > l.cfg.MaxDistanceM {
		s.reject("distance")
		return nil, fmt.Errorf("%w: %s at %.1f km", ErrOutOfRange, st.ID, d/1000)
	}

	r := &Reception{
		StationID:    st.ID,
		FrequencyMHz: f,
		Kind:         st.Kind,
		Model:        l.cfg.Model,
		DistanceM:    d,
		LinkBudgetDB: l.budget.Budget(),
		TxERPWatts:   DBmToWatt(l.cfg.TransmitterPowerDBm + l.txGainDBi - l.txLineLossDB),
		Mode:         itm.LineOfSight,
	}

	rxGround := s.sampler.GroundAt(q.Receiver)
	txGround := s.sampler.GroundAt(st.Position)
	r.ReceiverHeightM = HeightAboveGround(q.Receiver, rxGround, l.cfg.RxAntennaHeightM)
	r.TransmitterHeightM = HeightAboveGround(st.Position, txGround, l.cfg.TxAntennaHeightM)

	switch {
	case l.cfg.Model == PropagationNone:
	case l.cfg.Model == PropagationITM && q.Receiver.AltitudeM > l.cfg.FreeSpaceAltitudeM:
		r.FreeSpace = true
		r.AttenuationDB = FreeSpaceLossDB(max(d, minPathM), f)
		r.ReferenceAttenuationDB = r.AttenuationDB
	case l.cfg.Model == PropagationLineOfSight:
		loss, err := LineOfSightLoss(max(d, minPathM), f, r.TransmitterHeightM, r.ReceiverHeightM)
		if err != nil {
			s.reject("horizon")
			return nil, err
		}
		r.AttenuationDB = loss
		r.ReferenceAttenuationDB = loss
		r.PolarizationLossDB = s.polarizationLoss(l, q.Attitude)
	default:
		if err := s.terrainLoss(ctx, q, l, r); err != nil {
			return nil, err
		}
		r.PolarizationLossDB = s.polarizationLoss(l, q.Attitude)
	}

	extra := r.ClutterLossDB - r.PolarizationLossDB
	r.SignalMarginDB = r.LinkBudgetDB - r.AttenuationDB - extra
	r.SignalDBm = l.budget.ReceivedDBm(r.AttenuationDB + extra)
	r.FieldStrengthMicrovolt = DBmToMicrovolt(r.SignalDBm)
	r.Readability = ClassifyMargin(r.SignalMarginDB)
	return r, nil
}

// terrainLoss samples the path and runs the terrain model, filling the
// attenuation, clutter and mode fields of r.
func (s *RadioService) terrainLoss(ctx context.Context, q Query, l link, r *Reception) error {
	path, err := s.sampler.Sample(ctx, q.Receiver, q.Station.Position)
	if err != nil {
		if errors.Is(err, ErrOutOfRange) {
			s.reject("distance")
		}
		return err
	}
	profile, materials := path.Oriented(l.receiverFirst)

	// Heights follow the profile orientation.
	h := [2]float64{r.TransmitterHeightM, r.ReceiverHeightM}
	if l.receiverFirst {
		h = [2]float64{r.ReceiverHeightM, r.TransmitterHeightM}
	}
	params := l.cfg.itmParameters(r.FrequencyMHz, h[0], h[1], l.polarization)
	res, err := itm.PointToPoint(profile, params)
	if err != nil {
		return fmt.Errorf("point-to-point %s: %w", q.Station.ID, err)
	}

	r.Profile = profile
	r.ReferenceAttenuationDB = res.ReferenceAttenuationDB
	r.AttenuationDB = res.TotalLossDB
	r.Mode = res.Mode
	r.PropagationCode = res.PropagationCode()
	r.Severity = res.Severity

	if l.cfg.Clutter {
		r.ClutterLossDB = ClutterLoss(r.FrequencyMHz, profile, materials, h, res.Mode,
			res.HorizonDistancesM[:res.HorizonCount], s.materials)
	}
	return nil
}

// polarizationLoss is only modelled for vertically polarized links.
func (s *RadioService) polarizationLoss(l link, att model.Attitude) float64 {
	if l.polarization != model.PolarizationVertical {
		return 0
	}
	return PolarizationLossDB(att, l.polarization)
}

func (s *RadioService) reject(reason string) {
	if s.metrics != nil {
		s.metrics.ObserveRejection(reason)
	}
}
