package access

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/sharanvkt/insane-dashboard-v2/am"
	"github.com/sharanvkt/insane-dashboard-v2/errors"
)

// ErrStaleTable is returned when a reload would install an older table version.
var ErrStaleTable = errors.New("permission table version is older than the one in force")

// Checker is the read side of the resolver used by services.
type Checker interface {
	Resolve(identity string) Resolution
	CanAccess(identity, domainName string) bool
}

// Resolver serves lookups from the table currently in force.
type Resolver struct {
	current atomic.Pointer[Table]
	logger  *zap.SugaredLogger
}

// NewResolver creates a resolver serving t.
func NewResolver(t *Table, logger *zap.SugaredLogger) *Resolver {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	r := &Resolver{logger: logger}
	r.current.Store(t)
	return r
}

// Current returns the table in force.
func (r *Resolver) Current() *Table {
	return r.current.Load()
}

// Version returns the version of the table in force.
func (r *Resolver) Version() string {
	return r.Current().Version()
}

// Resolve delegates to the current table.
func (r *Resolver) Resolve(identity string) Resolution {
	return r.Current().Resolve(identity)
}

// CanAccess delegates to the current table.
func (r *Resolver) CanAccess(identity, domainName string) bool {
	return r.Current().CanAccess(identity, domainName)
}

// Swap installs next unless its version is lower than the current one.
// Lookups in flight keep the table they started with.
func (r *Resolver) Swap(next *Table) error {
	for {
		prev := r.current.Load()
		if next.version.LessThan(prev.version) {
			return errors.Wrapf(ErrStaleTable, "have %s, got %s", prev.Version(), next.Version())
		}
		if r.current.CompareAndSwap(prev, next) {
			r.logger.Infow("Permission table swapped",
				"from_version", prev.Version(),
				"to_version", next.Version(),
				"grants", len(next.grants))
			return nil
		}
	}
}

// Reload is an am.ReloadCallback that rebuilds and swaps the table.
func (r *Resolver) Reload(cfg *am.Config) error {
	next, err := NewTable(cfg.Access)
	if err != nil {
		return err
	}
	return r.Swap(next)
}
