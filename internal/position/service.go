package position

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"lps/internal/storage"
)

// Solver kinds accepted by ServiceConfig.
const (
	SolverClosedForm   = "closed-form"
	SolverLeastSquares = "lsq"
)

// MetricsRecorder receives the outcome and latency of every solve.
type MetricsRecorder interface {
	ObserveSolve(outcome string, elapsed time.Duration)
}

type ServiceConfig struct {
	// AnchorIDs maps storage keys to anchors 1, 2 and 3.
	AnchorIDs [3]string
	// MaxRangeAge rejects ranges older than this. Zero disables the check.
	MaxRangeAge time.Duration
	// Solver is SolverClosedForm (default) or SolverLeastSquares.
	Solver  string
	Metrics MetricsRecorder
}

// Fix is one solved probe position.
type Fix struct {
	Position r3.Vec
	Ranges   [3]float64
	SolvedAt time.Time
	Solver   string
}

// PositionService solves the probe position from the latest stored ranges.
type PositionService struct {
	mu      sync.Mutex
	storage *storage.Storage
	frame   *Frame
	cfg     ServiceConfig
	log     *slog.Logger
	now     func() time.Time
}

func NewPositionService(s *storage.Storage, frame *Frame, cfg ServiceConfig, log *slog.Logger) (*PositionService, error) {
	switch cfg.Solver {
	case "":
		cfg.Solver = SolverClosedForm
	case SolverClosedForm, SolverLeastSquares:
	default:
		return nil, fmt.Errorf("unknown solver %q", cfg.Solver)
	}
	for i, id := range cfg.AnchorIDs {
		if id == "" {
			return nil, fmt.Errorf("anchor %d has no id", i+1)
		}
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &PositionService{
		storage: s,
		frame:   frame,
		cfg:     cfg,
		log:     log,
		now:     time.Now,
	}, nil
}

// GetCurrentPosition solves the probe position from the latest range to
// each anchor.
func (ps *PositionService) GetCurrentPosition() (Fix, error) {
	start := ps.now()
	fix, err := ps.solve(start)
	if ps.cfg.Metrics != nil {
		ps.cfg.Metrics.ObserveSolve(Outcome(err), ps.now().Sub(start))
	}
	if err != nil {
		ps.log.Debug("probe position not solved", "err", err)
		return Fix{}, err
	}
	return fix, nil
}

func (ps *PositionService) solve(now time.Time) (Fix, error) {
	snapshot := ps.storage.GetMany(ps.cfg.AnchorIDs[:]...)

	var ranges [3]float64
	for i, id := range ps.cfg.AnchorIDs {
		data, ok := snapshot[id]
		if !ok {
			return Fix{}, fmt.Errorf("%w: anchor %q", ErrMissingRange, id)
		}
		if ps.cfg.MaxRangeAge > 0 {
			if age := now.Sub(data.UpdatedAt); age > ps.cfg.MaxRangeAge {
				return Fix{}, fmt.Errorf("%w: anchor %q last updated %s ago", ErrStaleRange, id, age)
			}
		}
		ranges[i] = data.Distance
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()

	ps.frame.SetProbeDistances(ranges[0], ranges[1], ranges[2])
	var (
		p   r3.Vec
		err error
	)
	if ps.cfg.Solver == SolverLeastSquares {
		p, err = ps.frame.EstimateProbePosition()
	} else {
		p, err = ps.frame.ProbePosition()
	}
	if err != nil {
		return Fix{}, err
	}
	return Fix{Position: p, Ranges: ranges, SolvedAt: now, Solver: ps.cfg.Solver}, nil
}
